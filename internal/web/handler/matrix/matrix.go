// Package matrix serves permission matrix export, validation and import.
package matrix

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler"
)

const (
	// Path is the route of the matrix endpoints below the API root.
	Path = "/matrix"
	// FormField is the multipart field carrying the matrix file.
	FormField = "csv_file"

	contentTypeCSV   = "text/csv; charset=utf-8"
	fileNameLayout   = "20060102-150405"
	templateFileName = "permission-matrix-template.csv"
)

// Service is the permission matrix handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	rbac *rbac.Service
}

var (
	// Handler is the permission matrix handler.
	Handler = Service{}
)

// Init registers the matrix routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, svc *rbac.Service) {
	if router == nil || cfg == nil || svc == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.rbac = svc

	export := auth.RequirePermission(svc, auth.PermExportMatrix)
	imp := auth.RequirePermission(svc, auth.PermImportMatrix)

	grp := router.Group(Path)
	grp.Get("/export", export, s.Export)
	grp.Get("/template", export, s.Template)
	grp.Post("/validate", imp, s.Validate)
	grp.Post("/import", imp, s.Import)
}

// Export downloads the roles of the caller's tenant as a permission matrix.
func (s *Service) Export(c *fiber.Ctx) error {
	data, err := s.rbac.ExportCSV(c.UserContext(), handler.Caller(c).TenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	name := fmt.Sprintf("permission-matrix-%s.csv", s.rbac.Now().Format(fileNameLayout))

	return sendCSV(c, name, data)
}

// Template downloads an example permission matrix.
func (s *Service) Template(c *fiber.Ctx) error {
	return sendCSV(c, templateFileName, rbac.TemplateCSV())
}

// Validate checks an uploaded matrix without applying it.
func (s *Service) Validate(c *fiber.Ctx) error {
	data, ok, err := s.upload(c)
	if !ok {
		return err
	}

	report, err := s.rbac.ValidateCSV(c.UserContext(), data, handler.Caller(c).TenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{"data": report})
}

// Import validates an uploaded matrix and applies it. An invalid file changes
// nothing and is answered with 422 carrying the validation errors and stats.
func (s *Service) Import(c *fiber.Ctx) error {
	data, ok, err := s.upload(c)
	if !ok {
		return err
	}

	id := handler.Caller(c)

	res, err := s.rbac.ImportCSV(c.UserContext(), data, id.TenantID, id.UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	if !res.Success {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"status":  handler.StatusError,
			"message": res.Message,
			"stats":   res.Validation,
			"errors":  res.Errors,
		})
	}

	log.Info().Uint64("user_id", id.UserID).Uint64("tenant_id", id.TenantID).
		Int("rows", res.Stats.RowsProcessed).Int("roles_created", res.Stats.RolesCreated).
		Msg("permission matrix imported")

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"message":    res.Message,
		"stats":      res.Stats,
		"validation": res.Validation,
	})
}

// upload reads the matrix file of the request. ok is false when a response
// was already written or err is set.
func (s *Service) upload(c *fiber.Ctx) (data []byte, ok bool, err error) {
	fh, err := c.FormFile(FormField)
	if err != nil {
		return nil, false, handler.Invalid(c, map[string]string{FormField: FormField + " is required"})
	}

	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		return nil, false, handler.Invalid(c, map[string]string{FormField: FormField + " must be a file of type: csv"})
	}

	limit := s.maxBytes()
	if fh.Size > int64(limit) {
		return nil, false, handler.Invalid(c, map[string]string{
			FormField: fmt.Sprintf("%s must not be larger than %d bytes", FormField, limit),
		})
	}

	f, err := fh.Open()
	if err != nil {
		return nil, false, handler.Error(c, errors.Wrap(err, "open uploaded matrix"))
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, int64(limit)+1))
	if err != nil {
		return nil, false, handler.Error(c, errors.Wrap(err, "read uploaded matrix"))
	}

	return data, true, nil
}

func (s *Service) maxBytes() int {
	if s.cfg.RBAC.MaxImportBytes > 0 {
		return s.cfg.RBAC.MaxImportBytes
	}

	return s.rbac.MaxImportBytes()
}

func sendCSV(c *fiber.Ctx, name string, data []byte) error {
	c.Attachment(name)
	// Attachment guesses the type from the extension
	c.Set(fiber.HeaderContentType, contentTypeCSV)

	return c.Status(fiber.StatusOK).Send(data)
}
