package models

// RolePermission represents the many-to-many relationship between roles and permissions.
// This junction table maps which permissions are granted by which roles.
// Rows are removed explicitly when a role is deleted; the store never relies on database cascades.
type RolePermission struct {
	// RoleID is the ID of the role in this mapping.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// PermissionID is the ID of the permission in this mapping.
	PermissionID uint `gorm:"primaryKey;column:permission_id;index"`
}

// TableName specifies the database table name for the RolePermission model.
// This overrides GORM's default pluralized table naming.
func (RolePermission) TableName() string {
	return "role_permissions"
}
