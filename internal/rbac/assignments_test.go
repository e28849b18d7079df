package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

func TestAssignSystemRoleIsIdempotent(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view")
	role := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "project.view")
	rec.Reset()

	first, created, err := svc.AssignSystemRole(ctx, 42, role.ID, 0, admin)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.AssignmentScopeSystem, first.ScopeType)
	assert.Zero(t, first.ProjectID)

	second, created, err := svc.AssignSystemRole(ctx, 42, role.ID, 0, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, admin, second.AssignedBy)

	var n int64
	require.NoError(t, db.Model(&models.Assignment{}).
		Where("user_id = ? AND role_id = ? AND scope_type = ?", 42, role.ID, "system").Count(&n).Error)
	assert.Equal(t, int64(1), n)

	// only the first grant is audited
	assert.Equal(t, []string{rbac.EventRoleAssigned}, rec.Names())
	require.NoError(t, db.Model(&models.AuditLog{}).Where("event_name = ?", rbac.EventRoleAssigned).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAssignProjectRole(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()

	role := createRole(t, svc, "Contributor", models.RoleScopeProject, 0)
	rec.Reset()

	_, created, err := svc.AssignProjectRole(ctx, 42, 100, role.ID, 0, admin)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = svc.AssignProjectRole(ctx, 42, 100, role.ID, 0, admin)
	require.NoError(t, err)
	assert.False(t, created)

	_, created, err = svc.AssignProjectRole(ctx, 42, 101, role.ID, 0, admin)
	require.NoError(t, err)
	assert.True(t, created)

	assert.Equal(t, int64(2), count(t, db, &models.Assignment{}))
	assert.Equal(t, 2, rec.Count(rbac.EventRoleAssigned))

	var entry models.AuditLog
	require.NoError(t, db.Where("event_name = ?", rbac.EventRoleAssigned).Order("id").First(&entry).Error)
	assert.Equal(t, uint64(42), entry.SubjectUserID)
	assert.Equal(t, uint64(100), entry.ProjectID)
	assert.Equal(t, "project", entry.Payload["scope"])
}

func TestAssignRejectsInvalidInput(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()

	system := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0)
	project := createRole(t, svc, "Contributor", models.RoleScopeProject, 0)
	custom := createRole(t, svc, "Auditor", models.RoleScopeCustom, 7)

	testCases := []struct {
		name    string
		assign  func() error
		wantErr error
	}{
		{
			name: "unknown role",
			assign: func() error {
				_, _, err := svc.AssignSystemRole(ctx, 42, 999, 0, admin)
				return err
			},
			wantErr: rbac.ErrNotFound,
		},
		{
			name: "project role at system scope",
			assign: func() error {
				_, _, err := svc.AssignSystemRole(ctx, 42, project.ID, 0, admin)
				return err
			},
			wantErr: rbac.ErrInvalidArgument,
		},
		{
			name: "custom role of another tenant",
			assign: func() error {
				_, _, err := svc.AssignSystemRole(ctx, 42, custom.ID, 8, admin)
				return err
			},
			wantErr: rbac.ErrInvalidArgument,
		},
		{
			name: "project assignment without project",
			assign: func() error {
				_, _, err := svc.AssignProjectRole(ctx, 42, 0, system.ID, 0, admin)
				return err
			},
			wantErr: rbac.ErrInvalidArgument,
		},
		{
			name: "missing user",
			assign: func() error {
				_, _, err := svc.AssignSystemRole(ctx, 0, system.ID, 0, admin)
				return err
			},
			wantErr: rbac.ErrInvalidArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.assign(), tc.wantErr)
		})
	}

	assert.Zero(t, count(t, db, &models.Assignment{}))

	// a system role may be bound to a single project
	_, created, err := svc.AssignProjectRole(ctx, 42, 100, system.ID, 0, admin)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = svc.AssignSystemRole(ctx, 42, custom.ID, 7, admin)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRevokeRole(t *testing.T) {
	svc, _, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view")
	role := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "project.view")

	_, _, err := svc.AssignSystemRole(ctx, 42, role.ID, 0, admin)
	require.NoError(t, err)
	_, _, err = svc.AssignProjectRole(ctx, 42, 100, role.ID, 0, admin)
	require.NoError(t, err)

	rec.Reset()

	removed, err := svc.RevokeRole(ctx, 42, role.ID, models.AssignmentScopeSystem, 0, 0, admin)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.RevokeRole(ctx, 42, role.ID, models.AssignmentScopeSystem, 0, 0, admin)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, []string{rbac.EventRoleRevoked}, rec.Names())

	// the project binding is untouched
	assert.Empty(t, resolve(t, svc, 42, 0, 0))
	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 42, 100, 0))

	_, err = svc.RevokeRole(ctx, 42, role.ID, models.AssignmentScopeProject, 0, 0, admin)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)

	_, err = svc.RevokeRole(ctx, 42, role.ID, "tenant", 0, 0, admin)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)
}

func TestGetUserRoles(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	viewer := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0)
	lead := createRole(t, svc, "Lead", models.RoleScopeProject, 0)
	auditor := createRole(t, svc, "Auditor", models.RoleScopeCustom, 7)

	_, _, err := svc.AssignSystemRole(ctx, 42, viewer.ID, 0, admin)
	require.NoError(t, err)
	_, _, err = svc.AssignProjectRole(ctx, 42, 100, lead.ID, 0, admin)
	require.NoError(t, err)
	_, _, err = svc.AssignSystemRole(ctx, 42, auditor.ID, 7, admin)
	require.NoError(t, err)

	names := func(projectID, tenantID uint64) []string {
		roles, err := svc.GetUserRoles(ctx, 42, projectID, tenantID)
		require.NoError(t, err)

		out := []string{}
		for _, r := range roles {
			out = append(out, r.Name)
		}

		return out
	}

	assert.Equal(t, []string{"Viewer"}, names(0, 0))
	assert.Equal(t, []string{"Lead", "Viewer"}, names(100, 0))
	assert.Equal(t, []string{"Viewer"}, names(101, 0))
	assert.Equal(t, []string{"Auditor", "Lead", "Viewer"}, names(100, 7))
	assert.Equal(t, []string{}, func() []string {
		roles, err := svc.GetUserRoles(ctx, 7777, 100, 7)
		require.NoError(t, err)

		out := []string{}
		for _, r := range roles {
			out = append(out, r.Name)
		}

		return out
	}())

	assignments, err := svc.ListUserAssignments(ctx, 42, 7)
	require.NoError(t, err)
	assert.Len(t, assignments, 3)
}

func TestRemoveProjectAssignments(t *testing.T) {
	svc, _, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "task.view", "project.view")
	lead := createRole(t, svc, "Lead", models.RoleScopeProject, 0, "task.view")
	viewer := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "project.view")

	for _, user := range []uint64{1, 2, 3} {
		_, _, err := svc.AssignProjectRole(ctx, user, 100, lead.ID, 0, admin)
		require.NoError(t, err)
	}

	_, _, err := svc.AssignProjectRole(ctx, 1, 200, lead.ID, 0, admin)
	require.NoError(t, err)
	_, _, err = svc.AssignSystemRole(ctx, 1, viewer.ID, 0, admin)
	require.NoError(t, err)

	rec.Reset()

	removed, err := svc.RemoveProjectAssignments(ctx, 100, 0, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.Equal(t, []string{rbac.EventProjectAssignmentsRemoved}, rec.Names())

	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 1, 100, 0))
	assert.Equal(t, []string{"project.view", "task.view"}, resolve(t, svc, 1, 200, 0))

	removed, err = svc.RemoveProjectAssignments(ctx, 100, 0, admin)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Len(t, rec.Names(), 1)

	_, err = svc.RemoveProjectAssignments(ctx, 0, 0, admin)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)
}

func TestAssignmentsAreTenantScoped(t *testing.T) {
	svc, _, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view")
	viewer := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "project.view")

	inFive, created, err := svc.AssignSystemRole(ctx, 42, viewer.ID, 5, admin)
	require.NoError(t, err)
	assert.True(t, created)

	inSix, created, err := svc.AssignSystemRole(ctx, 42, viewer.ID, 6, admin)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, inFive.ID, inSix.ID)
	assert.Equal(t, uint64(6), inSix.TenantID)

	again, created, err := svc.AssignSystemRole(ctx, 42, viewer.ID, 5, admin)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, inFive.ID, again.ID)

	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 42, 0, 5))
	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 42, 0, 6))
	assert.Empty(t, resolve(t, svc, 42, 0, 0))

	rec.Reset()

	// another tenant cannot revoke it
	removed, err := svc.RevokeRole(ctx, 42, viewer.ID, models.AssignmentScopeSystem, 0, 7, admin)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = svc.RevokeRole(ctx, 42, viewer.ID, models.AssignmentScopeSystem, 0, 6, admin)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Empty(t, resolve(t, svc, 42, 0, 6))
	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 42, 0, 5))

	evs := rec.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, rbac.EventRoleRevoked, evs[0].Name)
	assert.Equal(t, uint64(6), evs[0].Payload["tenant_id"])
}

func TestRemoveProjectAssignmentsStaysInTenant(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "task.view")
	lead := createRole(t, svc, "Lead", models.RoleScopeProject, 0, "task.view")

	_, _, err := svc.AssignProjectRole(ctx, 1, 100, lead.ID, 5, admin)
	require.NoError(t, err)
	_, _, err = svc.AssignProjectRole(ctx, 2, 100, lead.ID, 6, admin)
	require.NoError(t, err)

	removed, err := svc.RemoveProjectAssignments(ctx, 100, 7, admin)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = svc.RemoveProjectAssignments(ctx, 100, 6, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	assert.Empty(t, resolve(t, svc, 2, 100, 6))
	assert.Equal(t, []string{"task.view"}, resolve(t, svc, 1, 100, 5))
}

func TestAnyTenantReadsEveryTenant(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view", "task.view")
	viewer := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "task.view")
	auditor := createRole(t, svc, "Auditor", models.RoleScopeCustom, 5, "project.view")

	_, _, err := svc.AssignSystemRole(ctx, 42, viewer.ID, 0, admin)
	require.NoError(t, err)
	_, _, err = svc.AssignSystemRole(ctx, 42, auditor.ID, 5, admin)
	require.NoError(t, err)

	assert.Equal(t, []string{"task.view"}, resolve(t, svc, 42, 0, 0))
	assert.Equal(t, []string{"task.view"}, resolve(t, svc, 42, 0, 6))
	assert.Equal(t, []string{"project.view", "task.view"}, resolve(t, svc, 42, 0, 5))
	assert.Equal(t, []string{"project.view", "task.view"}, resolve(t, svc, 42, 0, rbac.AnyTenant))

	ok, err := svc.UserHasPermission(ctx, 42, "project.view", 0, rbac.AnyTenant)
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := svc.ListUserAssignments(ctx, 42, rbac.AnyTenant)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	global, err := svc.ListUserAssignments(ctx, 42, 0)
	require.NoError(t, err)
	assert.Len(t, global, 1)

	roles, err := svc.ListRoles(ctx, "", rbac.AnyTenant)
	require.NoError(t, err)
	assert.Len(t, roles, 2)

	// changes need a concrete tenant context
	_, _, err = svc.AssignSystemRole(ctx, 43, viewer.ID, rbac.AnyTenant, admin)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)

	_, err = svc.RevokeRole(ctx, 42, viewer.ID, models.AssignmentScopeSystem, 0, rbac.AnyTenant, admin)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)

	_, err = svc.RemoveProjectAssignments(ctx, 100, rbac.AnyTenant, admin)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)

	_, err = svc.CreateRole(ctx, rbac.RoleInput{
		Name: "Ghost", Scope: models.RoleScopeCustom, TenantID: rbac.AnyTenant,
	}, admin)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)

	assert.Equal(t, []string{"task.view"}, resolve(t, svc, 42, 0, 0))
}
