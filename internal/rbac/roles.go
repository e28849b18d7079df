package rbac

import (
	"context"
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

const maxRoleNameLen = 100

// RoleInput describes a role to create.
type RoleInput struct {
	Name        string
	Description string
	Scope       models.RoleScope
	// TenantID owns the role; 0 creates a global role.
	TenantID        uint64
	PermissionCodes []string
}

// CreateRole creates a role and grants it the given permissions.
func (s *Service) CreateRole(ctx context.Context, in RoleInput, actorID uint64) (*models.Role, error) {
	name := strings.TrimSpace(in.Name)

	switch {
	case name == "":
		return nil, invalidFields(map[string]string{"name": "name is required"})
	case len(name) > maxRoleNameLen:
		return nil, invalidFields(map[string]string{"name": "name is too long"})
	}

	if err := checkRoleTenant(in.Scope, in.TenantID); err != nil {
		return nil, err
	}

	role := models.Role{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Scope:       in.Scope,
		TenantID:    in.TenantID,
	}

	var ev auditEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms, err := permissionsByCode(tx, in.PermissionCodes)
		if err != nil {
			return err
		}

		if err := checkRoleNameFree(tx, name, in.TenantID); err != nil {
			return err
		}

		if err := tx.Create(&role).Error; err != nil {
			return err
		}

		if err := grant(tx, role.ID, perms); err != nil {
			return err
		}

		role.Permissions = sortPermissions(perms)

		ev = auditEvent{
			name:     EventRoleCreated,
			actorID:  actorID,
			tenantID: role.TenantID,
			payload: map[string]any{
				"role_id":          role.ID,
				"name":             role.Name,
				"scope":            string(role.Scope),
				"permission_codes": permissionCodes(role.Permissions),
			},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return nil, storageError("create role", err)
	}

	s.publish(ctx, ev)

	return &role, nil
}

// checkRoleNameFree fails with ErrConflict when name is already visible from tenantID.
// A global role name must be free in every tenant, since global roles are
// visible everywhere.
func checkRoleNameFree(tx *gorm.DB, name string, tenantID uint64) error {
	q := tx.Model(&models.Role{}).Where("name = ?", name)
	if tenantID != 0 {
		q = q.Where("tenant_id IN ?", tenantScope(tenantID))
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return conflict("role %q already exists", name)
	}

	return nil
}

// ListRoles returns the roles visible from tenantID, filtered by scope
// ("system", "custom", "project", "all" or empty), ordered by name.
func (s *Service) ListRoles(ctx context.Context, scopeFilter string, tenantID uint64) ([]models.Role, error) {
	scopes, err := parseScopeFilter(scopeFilter)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(scopes))
	for _, sc := range scopes {
		names = append(names, string(sc))
	}

	db := s.db.WithContext(ctx)

	var roles []models.Role
	if err := whereTenant(db.Where("scope IN ?", names), tenantID).
		Order("name, tenant_id").Find(&roles).Error; err != nil {
		return nil, storageError("list roles", err)
	}

	if err := loadPermissions(db, roles); err != nil {
		return nil, storageError("list roles", err)
	}

	return roles, nil
}

// GetRole returns a role with its permissions.
func (s *Service) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	db := s.db.WithContext(ctx)

	role, err := findRole(db, id)
	if err != nil {
		return nil, storageError("get role", err)
	}

	roles := []models.Role{*role}
	if err := loadPermissions(db, roles); err != nil {
		return nil, storageError("get role", err)
	}

	return &roles[0], nil
}

// GetRoleByName returns the role named name that is visible from tenantID.
// A tenant's own role wins over a global role of the same name.
func (s *Service) GetRoleByName(ctx context.Context, name string, tenantID uint64) (*models.Role, error) {
	db := s.db.WithContext(ctx)

	var role models.Role

	err := db.Where("name = ? AND tenant_id IN ?", strings.TrimSpace(name), tenantScope(tenantID)).
		Order("tenant_id DESC").First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("role %q", name)
	}

	if err != nil {
		return nil, storageError("get role", err)
	}

	roles := []models.Role{role}
	if err := loadPermissions(db, roles); err != nil {
		return nil, storageError("get role", err)
	}

	return &roles[0], nil
}

// SetRolePermissions replaces the permissions granted by a role.
func (s *Service) SetRolePermissions(ctx context.Context, roleID uint, codes []string, actorID uint64) (*models.Role, error) {
	var (
		role *models.Role
		ev   auditEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		role, err = findRole(tx, roleID)
		if err != nil {
			return err
		}

		perms, err := permissionsByCode(tx, codes)
		if err != nil {
			return err
		}

		current, err := rolePermissions(tx, []uint{roleID})
		if err != nil {
			return err
		}

		want := make(map[uint]models.Permission, len(perms))
		for _, p := range perms {
			want[p.ID] = p
		}

		have := make(map[uint]models.Permission, len(current[roleID]))
		for _, p := range current[roleID] {
			have[p.ID] = p
		}

		var added, removed []models.Permission

		for id, p := range want {
			if _, ok := have[id]; !ok {
				added = append(added, p)
			}
		}

		for id, p := range have {
			if _, ok := want[id]; !ok {
				removed = append(removed, p)
			}
		}

		if err := revoke(tx, roleID, removed); err != nil {
			return err
		}

		if err := grant(tx, roleID, added); err != nil {
			return err
		}

		role.Permissions = sortPermissions(perms)

		ev = auditEvent{
			name:     EventRolePermissionsUpdated,
			actorID:  actorID,
			tenantID: role.TenantID,
			payload: map[string]any{
				"role_id": role.ID,
				"name":    role.Name,
				"added":   permissionCodes(sortPermissions(added)),
				"removed": permissionCodes(sortPermissions(removed)),
			},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return nil, storageError("set role permissions", err)
	}

	s.publish(ctx, ev)

	return role, nil
}

// DeleteRole deletes a role together with its grants and every assignment
// referencing it, in one transaction. It returns the number of removed assignments.
func (s *Service) DeleteRole(ctx context.Context, roleID uint, actorID uint64) (int64, error) {
	var (
		removed int64
		ev      auditEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := findRole(tx, roleID)
		if err != nil {
			return err
		}

		res := tx.Where("role_id = ?", roleID).Delete(&models.Assignment{})
		if res.Error != nil {
			return res.Error
		}

		removed = res.RowsAffected

		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		if err := tx.Delete(role).Error; err != nil {
			return err
		}

		ev = auditEvent{
			name:     EventRoleDeleted,
			actorID:  actorID,
			tenantID: role.TenantID,
			payload: map[string]any{
				"role_id":             role.ID,
				"name":                role.Name,
				"scope":               string(role.Scope),
				"assignments_removed": removed,
			},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return 0, storageError("delete role", err)
	}

	s.publish(ctx, ev)

	return removed, nil
}

func findRole(tx *gorm.DB, id uint) (*models.Role, error) {
	var role models.Role

	err := tx.First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("role %d", id)
	}

	if err != nil {
		return nil, err
	}

	return &role, nil
}

// rolePermissions returns the permissions granted by each of roleIDs.
func rolePermissions(tx *gorm.DB, roleIDs []uint) (map[uint][]models.Permission, error) {
	out := make(map[uint][]models.Permission, len(roleIDs))
	if len(roleIDs) == 0 {
		return out, nil
	}

	var links []models.RolePermission
	if err := tx.Where("role_id IN ?", roleIDs).Find(&links).Error; err != nil {
		return nil, err
	}

	if len(links) == 0 {
		return out, nil
	}

	permIDs := make([]uint, 0, len(links))
	for _, l := range links {
		permIDs = append(permIDs, l.PermissionID)
	}

	var perms []models.Permission
	if err := tx.Where("id IN ?", permIDs).Find(&perms).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Permission, len(perms))
	for _, p := range perms {
		byID[p.ID] = p
	}

	for _, l := range links {
		if p, ok := byID[l.PermissionID]; ok {
			out[l.RoleID] = append(out[l.RoleID], p)
		}
	}

	for id := range out {
		out[id] = sortPermissions(out[id])
	}

	return out, nil
}

// loadPermissions fills Permissions of every role in place.
func loadPermissions(tx *gorm.DB, roles []models.Role) error {
	ids := make([]uint, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}

	byRole, err := rolePermissions(tx, ids)
	if err != nil {
		return err
	}

	for i := range roles {
		roles[i].Permissions = byRole[roles[i].ID]
		if roles[i].Permissions == nil {
			roles[i].Permissions = []models.Permission{}
		}
	}

	return nil
}

func grant(tx *gorm.DB, roleID uint, perms []models.Permission) error {
	if len(perms) == 0 {
		return nil
	}

	links := make([]models.RolePermission, 0, len(perms))
	for _, p := range perms {
		links = append(links, models.RolePermission{RoleID: roleID, PermissionID: p.ID})
	}

	return tx.Create(&links).Error
}

func revoke(tx *gorm.DB, roleID uint, perms []models.Permission) error {
	if len(perms) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}

	return tx.Where("role_id = ? AND permission_id IN ?", roleID, ids).Delete(&models.RolePermission{}).Error
}

func sortPermissions(perms []models.Permission) []models.Permission {
	out := make([]models.Permission, len(perms))
	copy(out, perms)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}

		return out[i].Action < out[j].Action
	})

	return out
}

func permissionCodes(perms []models.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.Code)
	}

	return out
}
