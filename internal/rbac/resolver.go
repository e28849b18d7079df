package rbac

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// PermissionSet is the set of effective permission codes of a user.
type PermissionSet map[string]struct{}

// Has reports whether code is in the set. Codes that are not in the catalog
// are never in a set.
func (p PermissionSet) Has(code string) bool {
	_, ok := p[code]

	return ok
}

// Codes returns the sorted codes.
func (p PermissionSet) Codes() []string {
	out := make([]string, 0, len(p))
	for c := range p {
		out = append(out, c)
	}

	sort.Strings(out)

	return out
}

// applies reports whether an assignment contributes to the context projectID.
// Project assignments only apply to their own project; there is no
// inheritance between projects.
func applies(a *models.Assignment, projectID uint64) (bool, error) {
	switch a.ScopeType {
	case models.AssignmentScopeSystem:
		return true, nil
	case models.AssignmentScopeProject:
		return projectID != 0 && a.ProjectID == projectID, nil
	default:
		return false, invalidArgument("assignment %d has unknown scope %q", a.ID, a.ScopeType)
	}
}

// applicableRoleIDs returns the distinct roles of the assignments of userID
// that apply in the given project and tenant context.
func applicableRoleIDs(tx *gorm.DB, userID, projectID, tenantID uint64) ([]uint, error) {
	var assignments []models.Assignment

	err := whereTenant(tx.Where("user_id = ?", userID), tenantID).
		Where("(scope_type = ? OR (scope_type = ? AND project_id = ?))",
			string(models.AssignmentScopeSystem), string(models.AssignmentScopeProject), projectID).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(assignments))
	ids := make([]uint, 0, len(assignments))

	for i := range assignments {
		ok, err := applies(&assignments[i], projectID)
		if err != nil {
			return nil, err
		}

		if _, dup := seen[assignments[i].RoleID]; !ok || dup {
			continue
		}

		seen[assignments[i].RoleID] = struct{}{}
		ids = append(ids, assignments[i].RoleID)
	}

	return ids, nil
}

// Resolve computes the effective permissions of userID: the union of the
// permissions of every role assigned system wide, plus those assigned for
// projectID when it is set. tenantID 0 only sees global assignments; a tenant
// sees its own and the global ones; AnyTenant sees the assignments of every
// tenant. Unknown users resolve to an empty set.
func (s *Service) Resolve(ctx context.Context, userID, projectID, tenantID uint64) (PermissionSet, error) {
	db := s.db.WithContext(ctx)

	roleIDs, err := applicableRoleIDs(db, userID, projectID, tenantID)
	if err != nil {
		return nil, storageError("resolve permissions", err)
	}

	set := PermissionSet{}
	if len(roleIDs) == 0 {
		return set, nil
	}

	var codes []string

	err = db.Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id IN ?", roleIDs).
		Distinct().Pluck("permissions.code", &codes).Error
	if err != nil {
		return nil, storageError("resolve permissions", err)
	}

	for _, c := range codes {
		set[c] = struct{}{}
	}

	return set, nil
}

// UserHasPermission reports whether code is in the effective permissions of userID.
func (s *Service) UserHasPermission(ctx context.Context, userID uint64, code string, projectID, tenantID uint64) (bool, error) {
	set, err := s.Resolve(ctx, userID, projectID, tenantID)
	if err != nil {
		return false, err
	}

	return set.Has(code), nil
}

// HasAnyPermission reports whether userID holds at least one of codes.
func (s *Service) HasAnyPermission(ctx context.Context, userID uint64, codes []string, projectID, tenantID uint64) (bool, error) {
	if len(codes) == 0 {
		return false, nil
	}

	set, err := s.Resolve(ctx, userID, projectID, tenantID)
	if err != nil {
		return false, err
	}

	for _, c := range codes {
		if set.Has(c) {
			return true, nil
		}
	}

	return false, nil
}

// HasAllPermissions reports whether userID holds every one of codes.
func (s *Service) HasAllPermissions(ctx context.Context, userID uint64, codes []string, projectID, tenantID uint64) (bool, error) {
	if len(codes) == 0 {
		return true, nil
	}

	set, err := s.Resolve(ctx, userID, projectID, tenantID)
	if err != nil {
		return false, err
	}

	for _, c := range codes {
		if !set.Has(c) {
			return false, nil
		}
	}

	return true, nil
}
