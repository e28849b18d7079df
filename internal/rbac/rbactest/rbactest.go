// Package rbactest provides an in-memory RBAC service for tests.
package rbactest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/events"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

// Actor is the user id used for seeded changes.
const Actor uint64 = 1

// Clock is the fixed time returned by services from NewService.
var Clock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals

// OpenDB creates an in-memory SQLite database with the RBAC schema.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	return db
}

// NewService returns a service over a fresh database, publishing into a Recorder.
func NewService(t testing.TB, opts ...rbac.Option) (*rbac.Service, *gorm.DB, *events.Recorder) {
	t.Helper()

	db := OpenDB(t)
	rec := events.NewRecorder()

	opts = append([]rbac.Option{rbac.WithClock(func() time.Time { return Clock })}, opts...)

	return rbac.NewService(db, rec, opts...), db, rec
}

// Permissions creates every module.action code missing from the catalog.
func Permissions(t testing.TB, svc *rbac.Service, codes ...string) {
	t.Helper()

	ctx := context.Background()

	for _, code := range codes {
		if _, err := svc.GetPermission(ctx, code); err == nil {
			continue
		}

		module, action, ok := strings.Cut(code, ".")
		require.True(t, ok, code)

		_, err := svc.CreatePermission(ctx, module, action, "", Actor)
		require.NoError(t, err, code)
	}
}

// Grant gives userID a fresh system role holding codes in tenantID.
func Grant(t testing.TB, svc *rbac.Service, userID, tenantID uint64, codes ...string) *models.Role {
	t.Helper()

	Permissions(t, svc, codes...)

	scope := models.RoleScopeSystem
	if tenantID != 0 {
		scope = models.RoleScopeCustom
	}

	ctx := context.Background()

	role, err := svc.CreateRole(ctx, rbac.RoleInput{
		Name:            fmt.Sprintf("grant-%d-%d-%d", userID, tenantID, time.Now().UnixNano()),
		Scope:           scope,
		TenantID:        tenantID,
		PermissionCodes: codes,
	}, Actor)
	require.NoError(t, err)

	_, _, err = svc.AssignSystemRole(ctx, userID, role.ID, tenantID, Actor)
	require.NoError(t, err)

	return role
}
