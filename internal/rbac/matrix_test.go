package rbac_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

const header = "role_name,module,action,permission_code,allow\n"

func seedMatrix(t *testing.T, svc *rbac.Service) {
	t.Helper()

	seedPermissions(t, svc, "project.create", "project.view", "task.view", "task.delete")
	createRole(t, svc, "Viewer", models.RoleScopeSystem, 0, "task.view", "project.view")
	createRole(t, svc, "Admin", models.RoleScopeSystem, 0, "project.view", "project.create", "task.delete")
	createRole(t, svc, "Empty", models.RoleScopeSystem, 0)
	createRole(t, svc, "Auditor", models.RoleScopeCustom, 7, "task.view")
}

func TestExportCSV(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seedMatrix(t, svc)

	out, err := svc.ExportCSV(ctx, 0)
	require.NoError(t, err)

	want := header +
		"Admin,project,create,project.create,true\n" +
		"Admin,project,view,project.view,true\n" +
		"Admin,task,delete,task.delete,true\n" +
		"Viewer,project,view,project.view,true\n" +
		"Viewer,task,view,task.view,true\n"
	assert.Equal(t, want, string(out))

	again, err := svc.ExportCSV(ctx, 0)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(out, again))

	tenant, err := svc.ExportCSV(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, header+"Auditor,task,view,task.view,true\n", string(tenant))
}

func TestImportExportRoundTrip(t *testing.T) {
	svc, _, rec := setupService(t)
	ctx := context.Background()

	seedMatrix(t, svc)

	for _, tenantID := range []uint64{0, 7} {
		out, err := svc.ExportCSV(ctx, tenantID)
		require.NoError(t, err)

		rec.Reset()

		res, err := svc.ImportCSV(ctx, out, tenantID, admin)
		require.NoError(t, err)
		require.True(t, res.Success, res.Errors)
		assert.Zero(t, res.Stats.GrantsAdded)
		assert.Zero(t, res.Stats.GrantsRemoved)
		assert.Zero(t, res.Stats.RolesCreated)
		assert.Equal(t, []string{rbac.EventMatrixImported}, rec.Names())

		again, err := svc.ExportCSV(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, string(out), string(again))
	}
}

func TestImportCSVApplies(t *testing.T) {
	svc, _, rec := setupService(t)
	ctx := context.Background()

	seedMatrix(t, svc)
	rec.Reset()

	data := header +
		"Viewer,task,view,task.view,no\n" +
		"Viewer,project,create,project.create,1\n" +
		"\"Project Manager\",task,delete,task.delete,yes\n" +
		"Project Manager, project , view ,project.view,Allow\n" +
		"Viewer,project,create,project.create,true\n" +
		",,,,\n"

	res, err := svc.ImportCSV(ctx, []byte(data), 0, admin)
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, rbac.ImportStats{RowsProcessed: 5, RolesCreated: 1, GrantsAdded: 3, GrantsRemoved: 1}, res.Stats)
	assert.Empty(t, res.Errors)

	viewer, err := svc.GetRoleByName(ctx, "Viewer", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"project.create", "project.view"}, codesOf(viewer.Permissions))

	pm, err := svc.GetRoleByName(ctx, "Project Manager", 0)
	require.NoError(t, err)
	assert.Equal(t, models.RoleScopeSystem, pm.Scope)
	assert.Equal(t, []string{"project.view", "task.delete"}, codesOf(pm.Permissions))

	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 5, events[0].Payload["rows_processed"])
	assert.Equal(t, 1, events[0].Payload["roles_created"])
	assert.Equal(t, 3, events[0].Payload["grants_added"])
	assert.Equal(t, 1, events[0].Payload["grants_removed"])

	// tenant imports create custom roles
	res, err = svc.ImportCSV(ctx, []byte(header+"Reviewer,task,view,task.view,true\n"), 7, admin)
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)

	reviewer, err := svc.GetRoleByName(ctx, "Reviewer", 7)
	require.NoError(t, err)
	assert.Equal(t, models.RoleScopeCustom, reviewer.Scope)
	assert.Equal(t, uint64(7), reviewer.TenantID)
}

func TestValidateCSV(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	seedMatrix(t, svc)

	testCases := []struct {
		name      string
		data      string
		tenantID  uint64
		wantValid bool
		wantErrs  []string
	}{
		{
			name:      "valid with new role",
			data:      header + "Viewer,task,delete,task.delete,false\nNewbie,task,view,task.view,y\n",
			wantValid: true,
		},
		{
			name:      "header only",
			data:      header,
			wantValid: true,
		},
		{
			name:     "empty file",
			data:     "",
			wantErrs: []string{"file is empty"},
		},
		{
			name:     "wrong header",
			data:     "role,module,action,code,allow\nViewer,task,view,task.view,true\n",
			wantErrs: []string{"invalid header"},
		},
		{
			name: "row errors are all collected",
			data: header +
				"Viewer,task,view,task.edit,true\n" +
				"Viewer,task,fly,task.fly,true\n" +
				",task,view,task.view,true\n" +
				"Viewer,task,view,task.view,maybe\n" +
				"Viewer,task,view\n",
			wantErrs: []string{
				"line 2: permission_code \"task.edit\" does not match",
				"line 4: role_name is required",
				"line 5: allow must be one of",
				"line 6: expected 5 columns, got 3",
				"line 3: unknown permission \"task.fly\"",
			},
		},
		{
			name:     "contradicting rows",
			data:     header + "Viewer,task,view,task.view,true\nViewer,task,view,task.view,false\n",
			wantErrs: []string{"line 3: contradicts line 2"},
		},
		{
			name:     "module with a dot",
			data:     header + "Viewer,task.sub,view,task.sub.view,true\n",
			wantErrs: []string{"line 2: module must not contain '.'"},
		},
		{
			name:     "global role from a tenant",
			data:     header + "Viewer,task,view,task.view,true\n",
			tenantID: 7,
			wantErrs: []string{"line 2: role \"Viewer\" is a global role"},
		},
		{
			name:     "tenant role from global context",
			data:     header + "Auditor,task,view,task.view,true\n",
			wantErrs: []string{"line 2: role \"Auditor\" belongs to tenant 7"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report, err := svc.ValidateCSV(ctx, []byte(tc.data), tc.tenantID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantValid, report.Valid, report.Errors)
			require.Len(t, report.Errors, len(tc.wantErrs), report.Errors)

			for i, want := range tc.wantErrs {
				assert.Contains(t, report.Errors[i], want)
			}
		})
	}

	report, err := svc.ValidateCSV(ctx, []byte(header+"Viewer,task,delete,task.delete,false\nNewbie,task,view,task.view,y\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, rbac.MatrixStats{
		TotalRows: 2, ValidRows: 2, Roles: 2, NewRoles: 1, Grants: 1, Revocations: 1,
	}, report.Stats)
}

func TestValidateCSVSizeLimit(t *testing.T) {
	svc, _, _ := setupService(t, rbac.WithMaxImportBytes(64))

	data := header + strings.Repeat("Viewer,task,view,task.view,true\n", 4)

	report, err := svc.ValidateCSV(context.Background(), []byte(data), 0)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "maximum size of 64 bytes")
}

func TestInvalidImportChangesNothing(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()

	seedMatrix(t, svc)
	rec.Reset()

	before := snapshot(t, db)

	data := header +
		"Viewer,task,delete,task.delete,true\n" +
		"Brand New,project,view,project.view,true\n" +
		"Viewer,report,export,report.export,true\n"

	res, err := svc.ImportCSV(ctx, []byte(data), 0, admin)
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "report.export")
	assert.Equal(t, rbac.ImportStats{}, res.Stats)
	assert.Equal(t, 1, res.Validation.InvalidRows)

	assert.Equal(t, before, snapshot(t, db))
	assert.Empty(t, rec.Events())
}

func TestImportReportsEveryError(t *testing.T) {
	svc, db, rec := setupService(t)
	ctx := context.Background()

	seedMatrix(t, svc)
	rec.Reset()

	before := snapshot(t, db)

	// a malformed row next to rows only the catalog and role checks catch
	data := []byte(header +
		"Viewer,task,view,task.view,maybe\n" +
		"Viewer,report,export,report.export,true\n" +
		"Auditor,task,view,task.view,true\n")

	report, err := svc.ValidateCSV(ctx, data, 0)
	require.NoError(t, err)
	require.Len(t, report.Errors, 3, report.Errors)

	res, err := svc.ImportCSV(ctx, data, 0, admin)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, report.Errors, res.Errors)
	assert.Equal(t, report.Stats, res.Validation)
	assert.Equal(t, 3, res.Validation.TotalRows)
	assert.Equal(t, 3, res.Validation.InvalidRows)
	assert.Contains(t, res.Message, "3 error(s)")

	assert.Equal(t, before, snapshot(t, db))
	assert.Empty(t, rec.Events())
}

func TestTemplateCSVIsValid(t *testing.T) {
	svc, _, _ := setupService(t)

	seedPermissions(t, svc, "project.create", "project.view", "task.delete", "document.view")

	tpl := rbac.TemplateCSV()
	assert.True(t, strings.HasPrefix(string(tpl), header))

	report, err := svc.ValidateCSV(context.Background(), tpl, 0)
	require.NoError(t, err)
	assert.True(t, report.Valid, report.Errors)
}

type storeSnapshot struct {
	Roles       []models.Role
	Grants      []models.RolePermission
	Assignments []models.Assignment
}

func snapshot(t *testing.T, db *gorm.DB) storeSnapshot {
	t.Helper()

	var s storeSnapshot
	require.NoError(t, db.Order("id").Find(&s.Roles).Error)
	require.NoError(t, db.Order("role_id, permission_id").Find(&s.Grants).Error)
	require.NoError(t, db.Order("id").Find(&s.Assignments).Error)

	return s
}
