// Package assignment serves role assignments and effective permissions of users.
package assignment

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

const (
	// Path is the route of a user's permissions and roles below the API root.
	Path = "/users/:user_id"

	// ProjectPath is the route of the assignments of a project.
	ProjectPath = "/projects/:project_id/assignments"
)

// Service is the assignment handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	rbac *rbac.Service
}

type checkRequest struct {
	PermissionCode string `json:"permission_code" validate:"required"`
	ProjectID      uint64 `json:"project_id"`
}

type assignRequest struct {
	RoleID    uint   `json:"role_id" validate:"required,gt=0"`
	Scope     string `json:"scope" validate:"required,oneof=system project"`
	ProjectID uint64 `json:"project_id" validate:"required_if=Scope project"`
}

var (
	// Handler is the assignment handler.
	Handler = Service{}
)

// Init registers the assignment routes.
func (s *Service) Init(router fiber.Router, cfg *config.Config, svc *rbac.Service) {
	if router == nil || cfg == nil || svc == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.rbac = svc

	view := auth.RequirePermission(svc, auth.PermViewAssignments)
	manage := auth.RequirePermission(svc, auth.PermManageAssignments)

	router.Get(Path+"/permissions", view, s.EffectivePermissions)
	router.Post(Path+"/permissions/check", view, s.Check)
	router.Get(Path+"/roles", view, s.Roles)
	router.Post(Path+"/roles", manage, s.Assign)
	router.Delete(Path+"/roles/:role_id", manage, s.Revoke)
	router.Delete(ProjectPath, manage, s.RemoveProject)
}

// EffectivePermissions returns the resolved permission codes of a user.
func (s *Service) EffectivePermissions(c *fiber.Ctx) error {
	userID, ok := handler.ParamID(c, "user_id")
	if !ok {
		return handler.Invalid(c, map[string]string{"user_id": "user_id must be a positive integer"})
	}

	fields := map[string]string{}

	projectID := handler.QueryID(c, "project_id", fields)
	if len(fields) > 0 {
		return handler.Invalid(c, fields)
	}

	tenantID := handler.Caller(c).TenantID

	set, err := s.rbac.Resolve(c.UserContext(), userID, projectID, tenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"user_id":               userID,
		"project_id":            handler.OptionalID(projectID),
		"tenant_id":             handler.OptionalID(tenantID),
		"effective_permissions": set.Codes(),
		"computed_at":           s.rbac.Now(),
	})
}

// Check answers whether a user holds one permission.
func (s *Service) Check(c *fiber.Ctx) error {
	userID, ok := handler.ParamID(c, "user_id")
	if !ok {
		return handler.Invalid(c, map[string]string{"user_id": "user_id must be a positive integer"})
	}

	var req checkRequest
	if handled, err := handler.Bind(c, &req); handled {
		return err
	}

	has, err := s.rbac.UserHasPermission(c.UserContext(), userID, req.PermissionCode, req.ProjectID, handler.Caller(c).TenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"user_id":         userID,
		"permission_code": req.PermissionCode,
		"project_id":      handler.OptionalID(req.ProjectID),
		"has_permission":  has,
		"checked_at":      s.rbac.Now(),
	})
}

// Roles returns the roles applicable to a user and the assignments behind them.
func (s *Service) Roles(c *fiber.Ctx) error {
	userID, ok := handler.ParamID(c, "user_id")
	if !ok {
		return handler.Invalid(c, map[string]string{"user_id": "user_id must be a positive integer"})
	}

	fields := map[string]string{}

	projectID := handler.QueryID(c, "project_id", fields)
	if len(fields) > 0 {
		return handler.Invalid(c, fields)
	}

	tenantID := handler.Caller(c).TenantID

	roles, err := s.rbac.GetUserRoles(c.UserContext(), userID, projectID, tenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	assignments, err := s.rbac.ListUserAssignments(c.UserContext(), userID, tenantID)
	if err != nil {
		return handler.Error(c, err)
	}

	out := make([]handler.AssignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, handler.NewAssignmentDTO(a))
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"user_id":     userID,
		"project_id":  handler.OptionalID(projectID),
		"data":        handler.NewRoleDTOs(roles),
		"assignments": out,
	})
}

// Assign binds a role to a user. Repeating an assignment answers 200 with already_assigned.
func (s *Service) Assign(c *fiber.Ctx) error {
	userID, ok := handler.ParamID(c, "user_id")
	if !ok {
		return handler.Invalid(c, map[string]string{"user_id": "user_id must be a positive integer"})
	}

	var req assignRequest
	if handled, err := handler.Bind(c, &req); handled {
		return err
	}

	caller := handler.Caller(c)

	var (
		a       *models.Assignment
		created bool
		err     error
	)

	switch models.AssignmentScope(req.Scope) {
	case models.AssignmentScopeSystem:
		if req.ProjectID != 0 {
			return handler.Invalid(c, map[string]string{"project_id": "project_id must be empty for system scope"})
		}

		a, created, err = s.rbac.AssignSystemRole(c.UserContext(), userID, req.RoleID, caller.TenantID, caller.UserID)
	case models.AssignmentScopeProject:
		a, created, err = s.rbac.AssignProjectRole(c.UserContext(), userID, req.ProjectID, req.RoleID, caller.TenantID, caller.UserID)
	default:
		return handler.Invalid(c, map[string]string{"scope": "scope must be one of: system, project"})
	}

	if err != nil {
		return handler.Error(c, err)
	}

	status, msg := fiber.StatusCreated, "Role assigned"
	if !created {
		status, msg = fiber.StatusOK, "Role already assigned"
	}

	return handler.Success(c, status, fiber.Map{
		"message":          msg,
		"assignment":       handler.NewAssignmentDTO(*a),
		"already_assigned": !created,
	})
}

// Revoke removes one assignment. scope defaults to project when project_id is given.
func (s *Service) Revoke(c *fiber.Ctx) error {
	fields := map[string]string{}

	userID, ok := handler.ParamID(c, "user_id")
	if !ok {
		fields["user_id"] = "user_id must be a positive integer"
	}

	roleID, ok := handler.ParamID(c, "role_id")
	if !ok {
		fields["role_id"] = "role_id must be a positive integer"
	}

	projectID := handler.QueryID(c, "project_id", fields)
	if len(fields) > 0 {
		return handler.Invalid(c, fields)
	}

	scope := models.AssignmentScope(c.Query("scope"))
	if scope == "" {
		scope = models.AssignmentScopeSystem
		if projectID != 0 {
			scope = models.AssignmentScopeProject
		}
	}

	caller := handler.Caller(c)

	removed, err := s.rbac.RevokeRole(c.UserContext(), userID, uint(roleID), scope, projectID, caller.TenantID, caller.UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	msg := "Role revoked"
	if !removed {
		msg = "Assignment not found, nothing to revoke"
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{"message": msg, "removed": removed})
}

// RemoveProject drops every assignment bound to a deleted project.
func (s *Service) RemoveProject(c *fiber.Ctx) error {
	projectID, ok := handler.ParamID(c, "project_id")
	if !ok {
		return handler.Invalid(c, map[string]string{"project_id": "project_id must be a positive integer"})
	}

	caller := handler.Caller(c)

	removed, err := s.rbac.RemoveProjectAssignments(c.UserContext(), projectID, caller.TenantID, caller.UserID)
	if err != nil {
		return handler.Error(c, err)
	}

	return handler.Success(c, fiber.StatusOK, fiber.Map{
		"message": fmt.Sprintf("%d assignment(s) removed", removed),
		"removed": removed,
	})
}
