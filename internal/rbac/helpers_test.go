package rbac_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/events"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac/rbactest"
)

const admin = rbactest.Actor

func setupService(t *testing.T, opts ...rbac.Option) (*rbac.Service, *gorm.DB, *events.Recorder) {
	t.Helper()

	return rbactest.NewService(t, opts...)
}

// seedPermissions creates the permissions for codes in module.action form.
func seedPermissions(t *testing.T, svc *rbac.Service, codes ...string) {
	t.Helper()

	for _, code := range codes {
		module, action, ok := strings.Cut(code, ".")
		require.True(t, ok, code)

		_, err := svc.CreatePermission(context.Background(), module, action, "", admin)
		require.NoError(t, err, code)
	}
}

func createRole(
	t *testing.T, svc *rbac.Service, name string, scope models.RoleScope, tenantID uint64, codes ...string,
) *models.Role {
	t.Helper()

	role, err := svc.CreateRole(context.Background(), rbac.RoleInput{
		Name:            name,
		Scope:           scope,
		TenantID:        tenantID,
		PermissionCodes: codes,
	}, admin)
	require.NoError(t, err, name)

	return role
}

func resolve(t *testing.T, svc *rbac.Service, userID, projectID, tenantID uint64) []string {
	t.Helper()

	set, err := svc.Resolve(context.Background(), userID, projectID, tenantID)
	require.NoError(t, err)

	return set.Codes()
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)

	return n
}
