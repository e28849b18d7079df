package models

import "time"

// Permission represents a single grantable capability in the authorization catalog.
// Permissions are near-static: they are created by administrators, never renamed,
// and only deleted while no role references them.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey" json:"id"`
	// Code is the unique permission identifier in module.action format (e.g., "project.create").
	// It is derived from Module and Action and never updated in place.
	Code string `gorm:"uniqueIndex;size:160;not null" json:"code"`
	// Module is the functional area this permission belongs to (e.g., "project", "task", "document").
	Module string `gorm:"size:100;not null;index" json:"module"`
	// Action is the action allowed inside the module (e.g., "create", "view", "delete").
	Action string `gorm:"size:50;not null" json:"action"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255" json:"description"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Permission model.
// This overrides GORM's default pluralized table naming.
func (Permission) TableName() string {
	return "permissions"
}
