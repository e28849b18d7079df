// Package audit serves the RBAC audit log.
package audit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler"
)

// Path is the route of the audit log below the API root.
const Path = "/audit"

// Service is the audit log handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	rbac *rbac.Service
}

var (
	// Handler is the audit log handler.
	Handler = Service{}
)

// Init registers the audit routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, svc *rbac.Service) {
	if router == nil || cfg == nil || svc == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.rbac = svc

	router.Get(Path, auth.RequirePermission(svc, auth.PermViewAudit), s.List)
}

// List returns audit entries of the caller's tenant, newest first.
// The global context (no tenant) sees every tenant.
func (s *Service) List(c *fiber.Ctx) error {
	fields := map[string]string{}

	filter := rbac.AuditFilter{
		UserID:          handler.QueryID(c, "user_id", fields),
		ProjectID:       handler.QueryID(c, "project_id", fields),
		TenantID:        handler.Caller(c).TenantID,
		EventTypePrefix: c.Query("event_type"),
		From:            handler.QueryDate(c, "from_date", false, fields),
		To:              handler.QueryDate(c, "to_date", true, fields),
	}

	if len(fields) > 0 {
		return handler.Invalid(c, fields)
	}

	page, err := s.rbac.QueryAuditLog(c.UserContext(), filter, rbac.Page{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", rbac.DefaultPerPage),
	})
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"data":         handler.NewAuditEntryDTOs(page.Entries),
		"current_page": page.CurrentPage,
		"per_page":     page.PerPage,
		"total":        page.Total,
		"last_page":    page.LastPage,
	})
}
