package models

import "time"

// AuditLog is an append-only record of an RBAC state change.
// Rows are written in the same transaction as the change they describe and are never updated.
type AuditLog struct {
	// ID is the unique identifier for the entry.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// EventName is the dot namespaced event name, e.g. "rbac.permission.created".
	EventName string `gorm:"size:150;not null;index" json:"event_name"`
	// ActorID is the user that performed the change.
	ActorID uint64 `gorm:"not null;index" json:"actor_id"`
	// SubjectUserID is the user affected by the change, 0 when the change is not user specific.
	SubjectUserID uint64 `gorm:"not null;default:0;index" json:"subject_user_id"`
	// TenantID is the tenant context of the change, 0 for global.
	TenantID uint64 `gorm:"not null;default:0;index" json:"tenant_id"`
	// ProjectID is the project the change applies to, 0 when not project specific.
	ProjectID uint64 `gorm:"not null;default:0;index" json:"project_id"`
	// Payload is the structured event body.
	Payload map[string]any `gorm:"serializer:json;type:text" json:"payload"`
	// CreatedAt is the time the entry was written.
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the database table name for the AuditLog model.
func (AuditLog) TableName() string {
	return "rbac_audit_logs"
}

// All returns every model managed by the RBAC schema, in migration order.
func All() []any {
	return []any{
		&Permission{},
		&Role{},
		&RolePermission{},
		&Assignment{},
		&AuditLog{},
		&Setting{},
	}
}
