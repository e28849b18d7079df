package models

import "time"

// RoleScope represents the breadth at which a role applies.
type RoleScope string

const (
	// RoleScopeSystem is a global role. System roles never belong to a tenant.
	RoleScopeSystem RoleScope = "system"
	// RoleScopeCustom is a tenant-defined role that behaves like a system role inside its tenant.
	RoleScopeCustom RoleScope = "custom"
	// RoleScopeProject is a role that is only meaningful when attached to a single project.
	RoleScopeProject RoleScope = "project"
)

// RoleScopes lists every valid role scope in display order.
func RoleScopes() []RoleScope {
	return []RoleScope{RoleScopeSystem, RoleScopeCustom, RoleScopeProject}
}

// Valid reports whether s is one of the known role scopes.
func (s RoleScope) Valid() bool {
	switch s {
	case RoleScopeSystem, RoleScopeCustom, RoleScopeProject:
		return true
	default:
		return false
	}
}

// Role represents a role in the role-based access control (RBAC) system.
// Roles are named bundles of permissions that are bound to users through assignments.
// Examples include "Admin", "Project Manager" and "Viewer".
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the name of the role, unique within its tenant (global roles use tenant 0).
	Name string `gorm:"size:100;not null;uniqueIndex:idx_roles_tenant_name,priority:2" json:"name"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255" json:"description"`
	// Scope is the breadth at which this role applies.
	Scope RoleScope `gorm:"type:varchar(20);not null;index" json:"scope"`
	// TenantID is the owning tenant, 0 for global roles.
	TenantID uint64 `gorm:"not null;default:0;uniqueIndex:idx_roles_tenant_name,priority:1" json:"tenant_id"`
	// Permissions is the set of permissions granted by this role (loaded through role_permissions).
	Permissions []Permission `gorm:"-" json:"permissions"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Role model.
// This overrides GORM's default pluralized table naming.
func (Role) TableName() string {
	return "roles"
}

// IsGlobal reports whether the role is visible to every tenant.
func (r *Role) IsGlobal() bool {
	return r.TenantID == 0
}

// VisibleTo reports whether the role may be used inside the given tenant context.
func (r *Role) VisibleTo(tenantID uint64) bool {
	return r.TenantID == 0 || r.TenantID == tenantID
}
