package rbac_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

func TestPublishFailureDoesNotRollBack(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view")
	role := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "project.view")

	rec.Fail(errors.New("bus unavailable"))

	_, created, err := svc.AssignSystemRole(ctx, 3, role.ID, 0, admin)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 3, 0, 0))
	assert.Zero(t, rec.Count(rbac.EventRoleAssigned))

	var n int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("event_name = ?", rbac.EventRoleAssigned).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestQueryAuditLog(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.AuditLog{
		{EventName: rbac.EventPermissionCreated, ActorID: 1, CreatedAt: base},
		{EventName: rbac.EventRoleCreated, ActorID: 1, TenantID: 7, CreatedAt: base.Add(time.Hour)},
		{EventName: rbac.EventRoleAssigned, ActorID: 1, SubjectUserID: 42, ProjectID: 100, TenantID: 7, CreatedAt: base.Add(2 * time.Hour)},
		{EventName: rbac.EventRoleRevoked, ActorID: 42, SubjectUserID: 43, ProjectID: 100, CreatedAt: base.Add(3 * time.Hour)},
		{EventName: rbac.EventRolesBulkAssigned, ActorID: 2, ProjectID: 200, CreatedAt: base.Add(4 * time.Hour)},
		{EventName: "rbac_role.other", ActorID: 2, CreatedAt: base.Add(5 * time.Hour)},
	}
	require.NoError(t, db.Create(&entries).Error)

	names := func(filter rbac.AuditFilter, page rbac.Page) ([]string, rbac.PageInfo) {
		res, err := svc.QueryAuditLog(ctx, filter, page)
		require.NoError(t, err)

		out := []string{}
		for _, e := range res.Entries {
			out = append(out, e.EventName)
		}

		return out, res.PageInfo
	}

	got, info := names(rbac.AuditFilter{}, rbac.Page{PerPage: 4})
	assert.Equal(t, []string{"rbac_role.other", rbac.EventRolesBulkAssigned, rbac.EventRoleRevoked, rbac.EventRoleAssigned}, got)
	assert.Equal(t, rbac.PageInfo{CurrentPage: 1, PerPage: 4, Total: 6, LastPage: 2}, info)

	got, _ = names(rbac.AuditFilter{}, rbac.Page{Page: 2, PerPage: 4})
	assert.Equal(t, []string{rbac.EventRoleCreated, rbac.EventPermissionCreated}, got)

	got, _ = names(rbac.AuditFilter{UserID: 42}, rbac.Page{})
	assert.Equal(t, []string{rbac.EventRoleRevoked, rbac.EventRoleAssigned}, got)

	got, _ = names(rbac.AuditFilter{ProjectID: 100}, rbac.Page{})
	assert.Equal(t, []string{rbac.EventRoleRevoked, rbac.EventRoleAssigned}, got)

	got, _ = names(rbac.AuditFilter{TenantID: 7}, rbac.Page{})
	assert.Equal(t, []string{rbac.EventRoleAssigned, rbac.EventRoleCreated}, got)

	// "_" is not a wildcard
	got, _ = names(rbac.AuditFilter{EventTypePrefix: "rbac.role."}, rbac.Page{})
	assert.Equal(t, []string{rbac.EventRoleRevoked, rbac.EventRoleAssigned, rbac.EventRoleCreated}, got)

	got, _ = names(rbac.AuditFilter{EventTypePrefix: "rbac_"}, rbac.Page{})
	assert.Equal(t, []string{"rbac_role.other"}, got)

	got, _ = names(rbac.AuditFilter{From: base.Add(time.Hour), To: base.Add(3 * time.Hour)}, rbac.Page{})
	assert.Equal(t, []string{rbac.EventRoleRevoked, rbac.EventRoleAssigned, rbac.EventRoleCreated}, got)

	_, err := svc.QueryAuditLog(ctx, rbac.AuditFilter{From: base.Add(time.Hour), To: base}, rbac.Page{})
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)
}

func TestMutationsWriteAuditRows(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view")
	role := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "project.view")

	_, _, err := svc.AssignSystemRole(ctx, 42, role.ID, 0, admin)
	require.NoError(t, err)

	res, err := svc.QueryAuditLog(ctx, rbac.AuditFilter{EventTypePrefix: "rbac."}, rbac.Page{})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	// same timestamp for all rows, newest id first
	assigned := res.Entries[0]
	assert.Equal(t, rbac.EventRoleAssigned, assigned.EventName)
	assert.Equal(t, admin, assigned.ActorID)
	assert.Equal(t, uint64(42), assigned.SubjectUserID)
	assert.Equal(t, "Viewer", assigned.Payload["role_name"])
}
