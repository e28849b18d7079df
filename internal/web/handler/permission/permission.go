// Package permission serves the permission catalog.
package permission

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler"
)

const (
	// Path is the route of the permission catalog below the API root.
	Path = "/permissions"

	hierarchyKey = "hierarchy"
)

// Service is the permission catalog handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	rbac  *rbac.Service
	cache *expirable.LRU[string, Hierarchy]
}

// Action is one leaf of the hierarchy.
type Action struct {
	Action      string `json:"action"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Module groups the actions of one module.
type Module struct {
	Module  string   `json:"module"`
	Actions []Action `json:"actions"`
}

// Hierarchy is the catalog grouped by module, sorted by module then action.
type Hierarchy struct {
	Hierarchy        []Module `json:"hierarchy"`
	TotalModules     int      `json:"total_modules"`
	TotalPermissions int      `json:"total_permissions"`
}

type createRequest struct {
	Module      string `json:"module" validate:"required,max=100"`
	Action      string `json:"action" validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

var (
	// Handler is the permission catalog handler.
	Handler = Service{}
)

// Init registers the catalog routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, svc *rbac.Service) {
	if router == nil || cfg == nil || svc == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.rbac = svc
	s.cache = nil

	if ttl := cfg.Webserver.HierarchyCacheTTL; ttl > 0 {
		s.cache = expirable.NewLRU[string, Hierarchy](1, nil, time.Duration(ttl)*time.Second)
	}

	router.Get(Path, auth.RequirePermission(svc, auth.PermViewPermissions), s.List)
	router.Get(Path+"/hierarchy", auth.RequirePermission(svc, auth.PermViewPermissions), s.Hierarchy)
	router.Post(Path, auth.RequirePermission(svc, auth.PermCreatePermissions), s.Create)
	router.Delete(Path+"/:code", auth.RequirePermission(svc, auth.PermDeletePermissions), s.Delete)
}

// List returns the catalog, paginated or grouped by module.
func (s *Service) List(c *fiber.Ctx) error {
	switch c.Query("group_by") {
	case "":
	case "module":
		groups, err := s.rbac.ListByModule(c.UserContext())
		if err != nil {
			return handler.Error(c, err)
		}

		data := make(map[string][]handler.PermissionDTO, len(groups))
		for _, g := range groups {
			data[g.Module] = handler.NewPermissionDTOs(g.Permissions)
		}

		return handler.Success(c, fiber.StatusOK, fiber.Map{"data": data})
	default:
		return handler.Invalid(c, map[string]string{"group_by": "group_by must be module"})
	}

	page, err := s.rbac.ListPermissions(c.UserContext(), rbac.PermissionFilter{
		Module: c.Query("module"),
		Action: c.Query("action"),
		Search: c.Query("search"),
	}, rbac.Page{
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", rbac.DefaultPerPage),
	})
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"data":         handler.NewPermissionDTOs(page.Permissions),
		"current_page": page.CurrentPage,
		"per_page":     page.PerPage,
		"total":        page.Total,
		"last_page":    page.LastPage,
	})
}

// Create adds a permission.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if handled, err := handler.Bind(c, &req); handled {
		return err
	}

	perm, err := s.rbac.CreatePermission(c.UserContext(), req.Module, req.Action, req.Description, handler.Caller(c).UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	s.invalidate()

	return handler.Success(c, fiber.StatusCreated, fiber.Map{
		"message":    "Permission created",
		"permission": handler.NewPermissionDTO(*perm),
	})
}

// Delete removes a permission no role grants.
func (s *Service) Delete(c *fiber.Ctx) error {
	code := c.Params("code")

	if err := s.rbac.DeletePermission(c.UserContext(), code, handler.Caller(c).UserID); err != nil {
		return handler.Error(c, err)
	}

	s.invalidate()

	return handler.Success(c, fiber.StatusOK, fiber.Map{"message": "Permission deleted", "code": code})
}

// Hierarchy returns the catalog grouped by module.
func (s *Service) Hierarchy(c *fiber.Ctx) error {
	if s.cache != nil {
		if h, ok := s.cache.Get(hierarchyKey); ok {
			return handler.Success(c, fiber.StatusOK, h.fields())
		}
	}

	groups, err := s.rbac.ListByModule(c.UserContext())
	if err != nil {
		return handler.Error(c, err)
	}

	h := buildHierarchy(groups)

	if s.cache != nil {
		s.cache.Add(hierarchyKey, h)
	}

	return handler.Success(c, fiber.StatusOK, h.fields())
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func buildHierarchy(groups []rbac.ModuleGroup) Hierarchy {
	h := Hierarchy{Hierarchy: make([]Module, 0, len(groups))}

	for _, g := range groups {
		m := Module{Module: g.Module, Actions: make([]Action, 0, len(g.Permissions))}

		for _, p := range g.Permissions {
			m.Actions = append(m.Actions, Action{Action: p.Action, Code: p.Code, Description: p.Description})
		}

		h.Hierarchy = append(h.Hierarchy, m)
		h.TotalPermissions += len(m.Actions)
	}

	h.TotalModules = len(h.Hierarchy)

	return h
}

func (h Hierarchy) fields() fiber.Map {
	return fiber.Map{
		"hierarchy":         h.Hierarchy,
		"total_modules":     h.TotalModules,
		"total_permissions": h.TotalPermissions,
	}
}
