// Package models contains the gorm model definitions of the RBAC schema:
// permissions, roles, the role_permissions join table, role assignments,
// the append-only audit log and the settings table holding installation state.
package models
