package rbac

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// AssignSystemRole binds roleID to userID for every project. Assigning a role
// the user already holds is a no-op: created is false and no audit event is
// written.
func (s *Service) AssignSystemRole(
	ctx context.Context, userID uint64, roleID uint, tenantID, actorID uint64,
) (*models.Assignment, bool, error) {
	return s.assign(ctx, userID, roleID, models.AssignmentScopeSystem, 0, tenantID, actorID)
}

// AssignProjectRole binds roleID to userID for projectID only. Same
// idempotency contract as AssignSystemRole.
func (s *Service) AssignProjectRole(
	ctx context.Context, userID, projectID uint64, roleID uint, tenantID, actorID uint64,
) (*models.Assignment, bool, error) {
	return s.assign(ctx, userID, roleID, models.AssignmentScopeProject, projectID, tenantID, actorID)
}

func (s *Service) assign(
	ctx context.Context, userID uint64, roleID uint, scope models.AssignmentScope,
	projectID, tenantID, actorID uint64,
) (*models.Assignment, bool, error) {
	if userID == 0 {
		return nil, false, invalidFields(map[string]string{"user_id": "user_id is required"})
	}

	if err := checkAssignmentScope(scope, projectID); err != nil {
		return nil, false, err
	}

	var (
		assignment *models.Assignment
		created    bool
		ev         auditEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := findRole(tx, roleID)
		if err != nil {
			return err
		}

		if err := checkAssignable(role, scope, tenantID); err != nil {
			return err
		}

		assignment, created, err = s.insertAssignment(tx, models.Assignment{
			UserID:     userID,
			RoleID:     roleID,
			ScopeType:  scope,
			ProjectID:  projectID,
			TenantID:   tenantID,
			AssignedBy: actorID,
		})
		if err != nil || !created {
			return err
		}

		ev = auditEvent{
			name:          EventRoleAssigned,
			actorID:       actorID,
			subjectUserID: userID,
			tenantID:      tenantID,
			projectID:     projectID,
			payload: map[string]any{
				"user_id":   userID,
				"role_id":   role.ID,
				"role_name": role.Name,
				"scope":     string(scope),
			},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return nil, false, storageError("assign role", err)
	}

	if created {
		s.publish(ctx, ev)
	}

	return assignment, created, nil
}

// insertAssignment inserts a unless its (user, role, scope, project, tenant)
// tuple exists already, and returns the stored row. Concurrent identical inserts
// leave exactly one row.
func (s *Service) insertAssignment(tx *gorm.DB, a models.Assignment) (*models.Assignment, bool, error) {
	a.AssignedAt = s.now().UTC()

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&a)
	if res.Error != nil {
		return nil, false, res.Error
	}

	if res.RowsAffected == 1 {
		return &a, true, nil
	}

	var existing models.Assignment
	if err := tx.Where("user_id = ? AND role_id = ? AND scope_type = ? AND project_id = ? AND tenant_id = ?",
		a.UserID, a.RoleID, string(a.ScopeType), a.ProjectID, a.TenantID).First(&existing).Error; err != nil {
		return nil, false, err
	}

	return &existing, false, nil
}

// RevokeRole removes the assignment made in tenantID. It reports whether a
// row was removed; revoking an assignment that does not exist is not an error.
// Assignments of other tenants are never touched.
func (s *Service) RevokeRole(
	ctx context.Context, userID uint64, roleID uint, scope models.AssignmentScope,
	projectID, tenantID, actorID uint64,
) (bool, error) {
	if err := checkWriteTenant(tenantID); err != nil {
		return false, err
	}

	if err := checkAssignmentScope(scope, projectID); err != nil {
		return false, err
	}

	var (
		removed bool
		ev      auditEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Assignment

		err := tx.Where("user_id = ? AND role_id = ? AND scope_type = ? AND project_id = ? AND tenant_id = ?",
			userID, roleID, string(scope), projectID, tenantID).First(&a).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		if err != nil {
			return err
		}

		if err := tx.Delete(&a).Error; err != nil {
			return err
		}

		removed = true
		ev = auditEvent{
			name:          EventRoleRevoked,
			actorID:       actorID,
			subjectUserID: userID,
			tenantID:      tenantID,
			projectID:     projectID,
			payload: map[string]any{
				"user_id": userID,
				"role_id": roleID,
				"scope":   string(scope),
			},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return false, storageError("revoke role", err)
	}

	if removed {
		s.publish(ctx, ev)
	}

	return removed, nil
}

// GetUserRoles returns the roles held by userID in the given context: system
// assignments always, project assignments only for projectID.
func (s *Service) GetUserRoles(ctx context.Context, userID, projectID, tenantID uint64) ([]models.Role, error) {
	db := s.db.WithContext(ctx)

	roleIDs, err := applicableRoleIDs(db, userID, projectID, tenantID)
	if err != nil {
		return nil, storageError("get user roles", err)
	}

	roles := make([]models.Role, 0, len(roleIDs))
	if len(roleIDs) == 0 {
		return roles, nil
	}

	if err := db.Where("id IN ?", roleIDs).Order("name, id").Find(&roles).Error; err != nil {
		return nil, storageError("get user roles", err)
	}

	if err := loadPermissions(db, roles); err != nil {
		return nil, storageError("get user roles", err)
	}

	return roles, nil
}

// ListUserAssignments returns every assignment of userID visible from tenantID.
func (s *Service) ListUserAssignments(ctx context.Context, userID, tenantID uint64) ([]models.Assignment, error) {
	var out []models.Assignment

	if err := whereTenant(s.db.WithContext(ctx).Where("user_id = ?", userID), tenantID).
		Order("scope_type, project_id, role_id").Find(&out).Error; err != nil {
		return nil, storageError("list assignments", err)
	}

	return out, nil
}

// RemoveProjectAssignments deletes every assignment bound to projectID in
// tenantID. It is the cascade hook for project deletion and returns the
// number of removed rows.
func (s *Service) RemoveProjectAssignments(ctx context.Context, projectID, tenantID, actorID uint64) (int64, error) {
	if err := checkWriteTenant(tenantID); err != nil {
		return 0, err
	}

	if projectID == 0 {
		return 0, invalidFields(map[string]string{"project_id": "project_id is required"})
	}

	var (
		removed int64
		ev      auditEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("scope_type = ? AND project_id = ? AND tenant_id = ?",
			string(models.AssignmentScopeProject), projectID, tenantID).Delete(&models.Assignment{})
		if res.Error != nil {
			return res.Error
		}

		removed = res.RowsAffected
		if removed == 0 {
			return nil
		}

		ev = auditEvent{
			name:      EventProjectAssignmentsRemoved,
			actorID:   actorID,
			tenantID:  tenantID,
			projectID: projectID,
			payload:   map[string]any{"assignments_removed": removed},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return 0, storageError("remove project assignments", err)
	}

	if removed > 0 {
		s.publish(ctx, ev)
	}

	return removed, nil
}
