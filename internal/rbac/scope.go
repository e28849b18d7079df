package rbac

import (
	"strings"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// ScopeFilterAll lists roles of every scope.
const ScopeFilterAll = "all"

// ValidScopeFilters returns the accepted ListRoles scope filters.
func ValidScopeFilters() []string {
	out := make([]string, 0, len(models.RoleScopes())+1)
	for _, s := range models.RoleScopes() {
		out = append(out, string(s))
	}

	return append(out, ScopeFilterAll)
}

// parseScopeFilter returns the scopes selected by filter. An empty filter means all.
func parseScopeFilter(filter string) ([]models.RoleScope, error) {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" || f == ScopeFilterAll {
		return models.RoleScopes(), nil
	}

	switch scope := models.RoleScope(f); scope {
	case models.RoleScopeSystem, models.RoleScopeCustom, models.RoleScopeProject:
		return []models.RoleScope{scope}, nil
	default:
		return nil, invalidArgument("invalid scope %q, valid scopes: %s", filter,
			strings.Join(ValidScopeFilters(), ", "))
	}
}

// checkRoleTenant enforces which tenant a role of the given scope may belong to.
func checkRoleTenant(scope models.RoleScope, tenantID uint64) error {
	if err := checkWriteTenant(tenantID); err != nil {
		return err
	}

	switch scope {
	case models.RoleScopeSystem:
		if tenantID != 0 {
			return invalidFields(map[string]string{"tenant_id": "system roles cannot belong to a tenant"})
		}
	case models.RoleScopeCustom:
		if tenantID == 0 {
			return invalidFields(map[string]string{"tenant_id": "custom roles require a tenant"})
		}
	case models.RoleScopeProject:
	default:
		return invalidFields(map[string]string{"scope": "invalid scope " + string(scope)})
	}

	return nil
}

// checkAssignable enforces which roles may be bound at the given assignment scope
// from the given tenant context.
func checkAssignable(role *models.Role, scope models.AssignmentScope, tenantID uint64) error {
	if err := checkWriteTenant(tenantID); err != nil {
		return err
	}

	switch role.Scope {
	case models.RoleScopeSystem, models.RoleScopeCustom:
	case models.RoleScopeProject:
		if scope != models.AssignmentScopeProject {
			return invalidArgument("role %q has project scope and can only be assigned to a project", role.Name)
		}
	default:
		return invalidArgument("role %q has unknown scope %q", role.Name, role.Scope)
	}

	if !role.VisibleTo(tenantID) {
		return invalidArgument("role %q does not belong to tenant %d", role.Name, tenantID)
	}

	return nil
}

// checkAssignmentScope validates the scope/project pair of an assignment.
func checkAssignmentScope(scope models.AssignmentScope, projectID uint64) error {
	switch scope {
	case models.AssignmentScopeSystem:
		if projectID != 0 {
			return invalidFields(map[string]string{"project_id": "project_id must be empty for system scope"})
		}
	case models.AssignmentScopeProject:
		if projectID == 0 {
			return invalidFields(map[string]string{"project_id": "project_id is required for project scope"})
		}
	default:
		return invalidFields(map[string]string{"scope": "scope must be one of: system, project"})
	}

	return nil
}
