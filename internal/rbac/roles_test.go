package rbac_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

func TestCreateRole(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view", "project.create")
	rec.Reset()

	role := createRole(t, svc, "Admin", models.RoleScopeSystem, 0, "project.view", "project.create", "project.view")
	assert.Equal(t, models.RoleScopeSystem, role.Scope)
	assert.Equal(t, []string{"project.create", "project.view"}, codesOf(role.Permissions))
	assert.Equal(t, int64(2), count(t, db, &models.RolePermission{}))
	assert.Equal(t, []string{rbac.EventRoleCreated}, rec.Names())

	testCases := []struct {
		name    string
		in      rbac.RoleInput
		wantErr error
	}{
		{
			name:    "system role with tenant",
			in:      rbac.RoleInput{Name: "Ops", Scope: models.RoleScopeSystem, TenantID: 7},
			wantErr: rbac.ErrInvalidArgument,
		},
		{
			name:    "custom role without tenant",
			in:      rbac.RoleInput{Name: "Ops", Scope: models.RoleScopeCustom},
			wantErr: rbac.ErrInvalidArgument,
		},
		{
			name:    "unknown scope",
			in:      rbac.RoleInput{Name: "Ops", Scope: "tenant"},
			wantErr: rbac.ErrInvalidArgument,
		},
		{
			name:    "empty name",
			in:      rbac.RoleInput{Name: "  ", Scope: models.RoleScopeSystem},
			wantErr: rbac.ErrInvalidArgument,
		},
		{
			name:    "unknown permission",
			in:      rbac.RoleInput{Name: "Ops", Scope: models.RoleScopeSystem, PermissionCodes: []string{"project.view", "task.fly"}},
			wantErr: rbac.ErrUnknownPermission,
		},
		{
			name:    "global name taken",
			in:      rbac.RoleInput{Name: "Admin", Scope: models.RoleScopeSystem},
			wantErr: rbac.ErrConflict,
		},
		{
			name:    "global name visible in tenant",
			in:      rbac.RoleInput{Name: "Admin", Scope: models.RoleScopeCustom, TenantID: 7},
			wantErr: rbac.ErrConflict,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateRole(ctx, tc.in, admin)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.Equal(t, int64(1), count(t, db, &models.Role{}))

	// the same custom name may exist in two tenants
	createRole(t, svc, "Ops", models.RoleScopeCustom, 7)
	createRole(t, svc, "Ops", models.RoleScopeCustom, 8)

	_, err := svc.CreateRole(ctx, rbac.RoleInput{Name: "Ops", Scope: models.RoleScopeSystem}, admin)
	require.ErrorIs(t, err, rbac.ErrConflict)
}

func TestListRoles(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view")
	createRole(t, svc, "Admin", models.RoleScopeSystem, 0, "project.view")
	createRole(t, svc, "Contributor", models.RoleScopeProject, 0)
	createRole(t, svc, "Auditor", models.RoleScopeCustom, 7)
	createRole(t, svc, "Other", models.RoleScopeCustom, 8)

	testCases := []struct {
		filter   string
		tenantID uint64
		want     []string
	}{
		{filter: "", tenantID: 7, want: []string{"Admin", "Auditor", "Contributor"}},
		{filter: "all", tenantID: 7, want: []string{"Admin", "Auditor", "Contributor"}},
		{filter: "system", tenantID: 7, want: []string{"Admin"}},
		{filter: "custom", tenantID: 7, want: []string{"Auditor"}},
		{filter: "project", tenantID: 0, want: []string{"Contributor"}},
		{filter: "all", tenantID: 0, want: []string{"Admin", "Contributor"}},
	}

	for _, tc := range testCases {
		t.Run(tc.filter, func(t *testing.T) {
			roles, err := svc.ListRoles(ctx, tc.filter, tc.tenantID)
			require.NoError(t, err)

			names := make([]string, 0, len(roles))
			for _, r := range roles {
				names = append(names, r.Name)
				assert.NotNil(t, r.Permissions)
			}

			assert.Equal(t, tc.want, names)
		})
	}
}

func TestListRolesRejectsUnknownScope(t *testing.T) {
	svc, _, _ := setupService(t)

	createRole(t, svc, "Admin", models.RoleScopeSystem, 0)

	roles, err := svc.ListRoles(context.Background(), "bogus", 0)
	require.ErrorIs(t, err, rbac.ErrInvalidArgument)
	assert.Nil(t, roles)
	assert.Contains(t, err.Error(), "system, custom, project, all")
}

func TestGetRoleByNamePrefersTenantRole(t *testing.T) {
	svc, db, _ := setupService(t)
	ctx := context.Background()

	global := createRole(t, svc, "Reviewer", models.RoleScopeSystem, 0)

	// a tenant role shadowing a global name can only predate the global role
	tenantRole := models.Role{Name: "Reviewer", Scope: models.RoleScopeCustom, TenantID: 7}
	require.NoError(t, db.Create(&tenantRole).Error)

	got, err := svc.GetRoleByName(ctx, "Reviewer", 7)
	require.NoError(t, err)
	assert.Equal(t, tenantRole.ID, got.ID)

	got, err = svc.GetRoleByName(ctx, "Reviewer", 8)
	require.NoError(t, err)
	assert.Equal(t, global.ID, got.ID)

	_, err = svc.GetRoleByName(ctx, "Nobody", 7)
	require.ErrorIs(t, err, rbac.ErrNotFound)
}

func TestSetRolePermissions(t *testing.T) {
	svc, _, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view", "project.create", "task.view")
	role := createRole(t, svc, "Editor", models.RoleScopeSystem, 0, "project.view", "project.create")
	rec.Reset()

	updated, err := svc.SetRolePermissions(ctx, role.ID, []string{"project.view", "task.view"}, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"project.view", "task.view"}, codesOf(updated.Permissions))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, rbac.EventRolePermissionsUpdated, events[0].Name)
	assert.Equal(t, []string{"task.view"}, events[0].Payload["added"])
	assert.Equal(t, []string{"project.create"}, events[0].Payload["removed"])

	_, err = svc.SetRolePermissions(ctx, role.ID, []string{"task.nope"}, admin)
	require.ErrorIs(t, err, rbac.ErrUnknownPermission)

	_, err = svc.SetRolePermissions(ctx, 999, nil, admin)
	require.ErrorIs(t, err, rbac.ErrNotFound)

	got, err := svc.GetRole(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"project.view", "task.view"}, codesOf(got.Permissions))
}

func TestDeleteRoleCascades(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()

	seedPermissions(t, svc, "project.view", "project.create", "task.view")
	viewer := createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "project.view")
	creator := createRole(t, svc, "Creator", models.RoleScopeProject, 0, "project.create", "task.view")

	for _, user := range []uint64{10, 11} {
		_, _, err := svc.AssignSystemRole(ctx, user, viewer.ID, 0, admin)
		require.NoError(t, err)
		_, _, err = svc.AssignProjectRole(ctx, user, 100, creator.ID, 0, admin)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"project.create", "project.view", "task.view"}, resolve(t, svc, 10, 100, 0))

	rec.Reset()

	removed, err := svc.DeleteRole(ctx, creator.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	var left int64
	require.NoError(t, db.Model(&models.Assignment{}).Where("role_id = ?", creator.ID).Count(&left).Error)
	assert.Zero(t, left)
	require.NoError(t, db.Model(&models.RolePermission{}).Where("role_id = ?", creator.ID).Count(&left).Error)
	assert.Zero(t, left)

	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 10, 100, 0))
	assert.Equal(t, []string{"project.view"}, resolve(t, svc, 11, 100, 0))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, rbac.EventRoleDeleted, events[0].Name)
	assert.Equal(t, int64(2), events[0].Payload["assignments_removed"])

	_, err = svc.DeleteRole(ctx, creator.ID, admin)
	require.ErrorIs(t, err, rbac.ErrNotFound)
}

func codesOf(perms []models.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.Code)
	}

	return out
}
