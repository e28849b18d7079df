package models

import "time"

// Setting is a named blob of installation state, e.g. the seed marker
// written by the migrate command.
type Setting struct {
	ID        uint64    `gorm:"primaryKey"`
	Name      string    `gorm:"size:191;uniqueIndex;not null"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Setting model.
func (Setting) TableName() string {
	return "rbac_settings"
}
