package models

import "time"

// AssignmentScope is the scope of a user to role binding.
type AssignmentScope string

const (
	// AssignmentScopeSystem binds a role for every project of the tenant.
	AssignmentScopeSystem AssignmentScope = "system"
	// AssignmentScopeProject binds a role for a single project.
	AssignmentScopeProject AssignmentScope = "project"
)

// Valid reports whether s is one of the known assignment scopes.
func (s AssignmentScope) Valid() bool {
	switch s {
	case AssignmentScopeSystem, AssignmentScopeProject:
		return true
	default:
		return false
	}
}

// Assignment binds a user to a role, either system wide or for one project.
// The tuple (UserID, RoleID, ScopeType, ProjectID, TenantID) is unique; ProjectID is 0 for system assignments.
type Assignment struct {
	// ID is the unique identifier for the assignment.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// UserID is the user holding the role.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_assignment_key,priority:1" json:"user_id"`
	// RoleID is the granted role.
	RoleID uint `gorm:"not null;uniqueIndex:idx_assignment_key,priority:2;index" json:"role_id"`
	// ScopeType tells whether the binding applies system wide or to ProjectID only.
	ScopeType AssignmentScope `gorm:"type:varchar(20);not null;uniqueIndex:idx_assignment_key,priority:3" json:"scope_type"`
	// ProjectID is the project of a project scoped assignment, 0 otherwise.
	ProjectID uint64 `gorm:"not null;default:0;uniqueIndex:idx_assignment_key,priority:4;index" json:"project_id"`
	// TenantID is the tenant context the assignment was made in, 0 for global.
	TenantID uint64 `gorm:"not null;default:0;uniqueIndex:idx_assignment_key,priority:5;index" json:"tenant_id"`
	// AssignedBy is the actor that created the assignment.
	AssignedBy uint64 `gorm:"not null" json:"assigned_by"`
	// AssignedAt is the time the assignment was created.
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
}

// TableName specifies the database table name for the Assignment model.
func (Assignment) TableName() string {
	return "role_assignments"
}
