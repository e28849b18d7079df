package rbac

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// BulkAssignInput assigns every role of RoleIDs to every user of UserIDs.
type BulkAssignInput struct {
	UserIDs   []uint64
	RoleIDs   []uint
	Scope     models.AssignmentScope
	ProjectID uint64
	TenantID  uint64
}

// BulkAssignResult is the outcome of one (user, role) pair.
type BulkAssignResult struct {
	UserID          uint64                 `json:"user_id"`
	RoleID          uint                   `json:"role_id"`
	ProjectID       *uint64                `json:"project_id"`
	Scope           models.AssignmentScope `json:"scope"`
	Assigned        bool                   `json:"assigned"`
	AlreadyAssigned bool                   `json:"already_assigned"`
}

// BulkAssignRoles assigns the cartesian product of users and roles in one
// transaction: either every pair is assigned or none is. All roles are
// validated before the first write. Pairs that were already assigned are
// reported with AlreadyAssigned. A single audit event summarizes the batch
// when at least one new assignment was made.
func (s *Service) BulkAssignRoles(ctx context.Context, in BulkAssignInput, actorID uint64) ([]BulkAssignResult, error) {
	userIDs := uniqueUint64(in.UserIDs)
	roleIDs := uniqueUint(in.RoleIDs)

	fields := map[string]string{}
	if len(userIDs) == 0 {
		fields["user_ids"] = "user_ids must not be empty"
	}

	if len(roleIDs) == 0 {
		fields["role_ids"] = "role_ids must not be empty"
	}

	for _, err := range []error{checkAssignmentScope(in.Scope, in.ProjectID), checkWriteTenant(in.TenantID)} {
		if verr, ok := err.(*ValidationError); ok { //nolint:errorlint // produced locally, never wrapped
			for k, v := range verr.Fields {
				fields[k] = v
			}
		}
	}

	if len(fields) > 0 {
		return nil, invalidFields(fields)
	}

	var (
		results []BulkAssignResult
		ev      auditEvent
		created int
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var roles []models.Role
		if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return err
		}

		byID := make(map[uint]*models.Role, len(roles))
		for i := range roles {
			byID[roles[i].ID] = &roles[i]
		}

		for _, id := range roleIDs {
			role, ok := byID[id]
			if !ok {
				return notFound("role %d", id)
			}

			if err := checkAssignable(role, in.Scope, in.TenantID); err != nil {
				return err
			}
		}

		results = make([]BulkAssignResult, 0, len(userIDs)*len(roleIDs))

		for _, userID := range userIDs {
			for _, roleID := range roleIDs {
				_, isNew, err := s.insertAssignment(tx, models.Assignment{
					UserID:     userID,
					RoleID:     roleID,
					ScopeType:  in.Scope,
					ProjectID:  in.ProjectID,
					TenantID:   in.TenantID,
					AssignedBy: actorID,
				})
				if err != nil {
					return err
				}

				if isNew {
					created++
				}

				results = append(results, BulkAssignResult{
					UserID:          userID,
					RoleID:          roleID,
					ProjectID:       optionalID(in.ProjectID),
					Scope:           in.Scope,
					Assigned:        true,
					AlreadyAssigned: !isNew,
				})
			}
		}

		if created == 0 {
			return nil
		}

		ev = auditEvent{
			name:      EventRolesBulkAssigned,
			actorID:   actorID,
			tenantID:  in.TenantID,
			projectID: in.ProjectID,
			payload: map[string]any{
				"batch_id":          uuid.NewString(),
				"user_ids":          userIDs,
				"role_ids":          roleIDs,
				"scope":             string(in.Scope),
				"total_assignments": len(results),
				"new_assignments":   created,
			},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return nil, storageError("bulk assign roles", err)
	}

	if created > 0 {
		s.publish(ctx, ev)
	}

	return results, nil
}

func optionalID(id uint64) *uint64 {
	if id == 0 {
		return nil
	}

	return &id
}

func uniqueUint64(in []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(in))
	out := make([]uint64, 0, len(in))

	for _, v := range in {
		if _, ok := seen[v]; ok || v == 0 {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}

func uniqueUint(in []uint) []uint {
	seen := make(map[uint]struct{}, len(in))
	out := make([]uint, 0, len(in))

	for _, v := range in {
		if _, ok := seen[v]; ok || v == 0 {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
