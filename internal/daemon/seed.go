package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/auth"
	"github.com/kha997/zenamanagephp-sub030/internal/config"
	"github.com/kha997/zenamanagephp-sub030/internal/db/controller/setting"
	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
	"github.com/kha997/zenamanagephp-sub030/internal/rbac"
)

const (
	// AdminRoleName is the global role holding every guard permission.
	AdminRoleName = "Admin"

	// SeedSettingName names the setting recording the last seed run.
	SeedSettingName = "rbac.seed"

	seedVersion = 1
)

// SeedState is stored under SeedSettingName after every seed run.
type SeedState struct {
	Version              int       `json:"version"`
	SeededAt             time.Time `json:"seeded_at"`
	AdminRoleID          uint      `json:"admin_role_id"`
	BootstrapAdminUserID uint64    `json:"bootstrap_admin_user_id,omitempty"`
}

// Seed makes sure the guard permissions and the Admin role exist and binds
// the configured bootstrap user to Admin. Running it again changes nothing.
func Seed(ctx context.Context, cfg *config.Config, db *gorm.DB, svc *rbac.Service) (*SeedState, error) {
	for _, d := range auth.Definitions() {
		code := rbac.GenerateCode(auth.Module, d.Action)

		_, err := svc.GetPermission(ctx, code)
		if err == nil {
			continue
		}

		if !errors.Is(err, rbac.ErrNotFound) {
			return nil, err
		}

		if _, err := svc.CreatePermission(ctx, auth.Module, d.Action, d.Description, 0); err != nil {
			return nil, err
		}

		log.Info().Str("code", code).Msg("seeded guard permission")
	}

	role, err := seedAdminRole(ctx, svc)
	if err != nil {
		return nil, err
	}

	state := &SeedState{
		Version:     seedVersion,
		SeededAt:    svc.Now(),
		AdminRoleID: role.ID,
	}

	if uid := cfg.RBAC.BootstrapAdminUserID; uid != 0 {
		_, created, err := svc.AssignSystemRole(ctx, uid, role.ID, 0, 0)
		if err != nil {
			return nil, err
		}

		if created {
			log.Info().Uint64("user_id", uid).Msg("bootstrap admin assigned")
		}

		state.BootstrapAdminUserID = uid
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	if _, err := setting.Set(db.WithContext(ctx), SeedSettingName, raw); err != nil {
		return nil, err
	}

	return state, nil
}

// LoadSeedState returns the state of the last seed run.
func LoadSeedState(db *gorm.DB) (*SeedState, error) {
	s, err := setting.Get(db, SeedSettingName)
	if err != nil {
		return nil, err
	}

	var state SeedState
	if err := json.Unmarshal(s.Value, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// seedAdminRole creates the Admin role, or adds guard permissions it is missing.
func seedAdminRole(ctx context.Context, svc *rbac.Service) (*models.Role, error) {
	role, err := svc.GetRoleByName(ctx, AdminRoleName, 0)
	if errors.Is(err, rbac.ErrNotFound) {
		return svc.CreateRole(ctx, rbac.RoleInput{
			Name:            AdminRoleName,
			Description:     "Full access to the RBAC administration API",
			Scope:           models.RoleScopeSystem,
			PermissionCodes: auth.All(),
		}, 0)
	}

	if err != nil {
		return nil, err
	}

	held := make(map[string]bool, len(role.Permissions))
	codes := make([]string, 0, len(role.Permissions))

	for _, p := range role.Permissions {
		held[p.Code] = true
		codes = append(codes, p.Code)
	}

	missing := false

	for _, code := range auth.All() {
		if !held[code] {
			codes = append(codes, code)
			missing = true
		}
	}

	if !missing {
		return role, nil
	}

	return svc.SetRolePermissions(ctx, role.ID, codes, 0)
}
