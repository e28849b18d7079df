// Package role serves role management and bulk role assignment.
package role

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/web/handler"
)

// Path is the route of the roles below the API root.
const Path = "/roles"

// Service is the role handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	rbac *rbac.Service
}

type createRequest struct {
	Name            string   `json:"name" validate:"required,max=100"`
	Description     string   `json:"description" validate:"max=255"`
	Scope           string   `json:"scope" validate:"required,oneof=system custom project"`
	PermissionCodes []string `json:"permission_codes" validate:"dive,required"`
}

type permissionsRequest struct {
	PermissionCodes []string `json:"permission_codes" validate:"required,dive,required"`
}

type bulkAssignRequest struct {
	UserIDs   []uint64 `json:"user_ids" validate:"required,min=1,dive,gt=0"`
	RoleIDs   []uint   `json:"role_ids" validate:"required,min=1,dive,gt=0"`
	Scope     string   `json:"scope" validate:"required,oneof=system project"`
	ProjectID uint64   `json:"project_id" validate:"required_if=Scope project"`
}

var (
	// Handler is the role handler.
	Handler = Service{}
)

// Init registers the role routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, svc *rbac.Service) {
	if router == nil || cfg == nil || svc == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.rbac = svc

	// assignment managers pick the roles they grant
	view := auth.RequireAnyPermission(svc, auth.PermViewRoles, auth.PermManageAssignments)

	router.Get(Path, view, s.List)
	router.Post(Path, auth.RequirePermission(svc, auth.PermCreateRoles), s.Create)
	router.Post(Path+"/bulk-assign",
		auth.RequireAllPermissions(svc, auth.PermManageAssignments, auth.PermViewRoles), s.BulkAssign)
	router.Get(Path+"/:id", view, s.Get)
	router.Put(Path+"/:id/permissions", auth.RequirePermission(svc, auth.PermUpdateRoles), s.SetPermissions)
	router.Delete(Path+"/:id", auth.RequirePermission(svc, auth.PermDeleteRoles), s.Delete)
}

// List returns the roles visible in the caller's tenant, optionally by scope.
func (s *Service) List(c *fiber.Ctx) error {
	scope := c.Query("scope", rbac.ScopeFilterAll)

	roles, err := s.rbac.ListRoles(c.UserContext(), scope, handler.Caller(c).TenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"scope": scope,
		"data":  handler.NewRoleDTOs(roles),
		"total": len(roles),
	})
}

// Get returns one visible role with its permissions.
func (s *Service) Get(c *fiber.Ctx) error {
	role, err := s.visibleRole(c)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{"role": handler.NewRoleDTO(*role)})
}

// Create creates a role owned by the caller's tenant.
func (s *Service) Create(c *fiber.Ctx) error {
	var req createRequest
	if handled, err := handler.Bind(c, &req); handled {
		return err
	}

	caller := handler.Caller(c)

	role, err := s.rbac.CreateRole(c.UserContext(), rbac.RoleInput{
		Name:            req.Name,
		Description:     req.Description,
		Scope:           models.RoleScope(req.Scope),
		TenantID:        caller.TenantID,
		PermissionCodes: req.PermissionCodes,
	}, caller.UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusCreated, fiber.Map{
		"message": "Role created",
		"role":    handler.NewRoleDTO(*role),
	})
}

// SetPermissions replaces the permissions of a role owned by the caller's tenant.
func (s *Service) SetPermissions(c *fiber.Ctx) error {
	role, err := s.ownedRole(c)
	if err != nil {
		return handler.Error(c, err)
	}

	var req permissionsRequest
	if handled, err := handler.Bind(c, &req); handled {
		return err
	}

	role, err = s.rbac.SetRolePermissions(c.UserContext(), role.ID, req.PermissionCodes, handler.Caller(c).UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Role permissions updated",
		"role":    handler.NewRoleDTO(*role),
	})
}

// Delete removes a role owned by the caller's tenant with its assignments.
func (s *Service) Delete(c *fiber.Ctx) error {
	role, err := s.ownedRole(c)
	if err != nil {
		return handler.Error(c, err)
	}

	removed, err := s.rbac.DeleteRole(c.UserContext(), role.ID, handler.Caller(c).UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"message":             "Role deleted",
		"assignments_removed": removed,
	})
}

// BulkAssign assigns every role to every user in one transaction.
func (s *Service) BulkAssign(c *fiber.Ctx) error {
	var req bulkAssignRequest
	if handled, err := handler.Bind(c, &req); handled {
		return err
	}

	caller := handler.Caller(c)

	results, err := s.rbac.BulkAssignRoles(c.UserContext(), rbac.BulkAssignInput{
		UserIDs:   req.UserIDs,
		RoleIDs:   req.RoleIDs,
		Scope:     models.AssignmentScope(req.Scope),
		ProjectID: req.ProjectID,
		TenantID:  caller.TenantID,
	}, caller.UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	created := 0

	for _, r := range results {
		if !r.AlreadyAssigned {
			created++
		}
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"message":           fmt.Sprintf("%d role assignment(s) processed", len(results)),
		"data":              results,
		"total_assignments": len(results),
		"new_assignments":   created,
	})
}

func (s *Service) visibleRole(c *fiber.Ctx) (*models.Role, error) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return nil, fmt.Errorf("%w: role %q", rbac.ErrNotFound, c.Params("id"))
	}

	role, err := s.rbac.GetRole(c.UserContext(), uint(id))
	if err != nil {
		return nil, err
	}

	if !role.VisibleTo(handler.Caller(c).TenantID) {
		return nil, fmt.Errorf("%w: role %d", rbac.ErrNotFound, id)
	}

	return role, nil
}

// ownedRole only admits changes from the tenant owning the role; global
// roles are changed from the global context.
func (s *Service) ownedRole(c *fiber.Ctx) (*models.Role, error) {
	role, err := s.visibleRole(c)
	if err != nil {
		return nil, err
	}

	if role.TenantID != handler.Caller(c).TenantID {
		return nil, fmt.Errorf("%w: role %q is global and cannot be changed from a tenant", rbac.ErrConflict, role.Name)
	}

	return role, nil
}
