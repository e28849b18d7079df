package handler

import (
	"time"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// Storage uses 0 for "no tenant" and "no project", the API renders null.

// OptionalID returns nil for 0.
func OptionalID(id uint64) *uint64 {
	if id == 0 {
		return nil
	}

	return &id
}

// PermissionDTO is the API shape of a permission.
type PermissionDTO struct {
	ID          uint      `json:"id"`
	Code        string    `json:"code"`
	Module      string    `json:"module"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewPermissionDTO converts p.
func NewPermissionDTO(p models.Permission) PermissionDTO {
	return PermissionDTO{
		ID:          p.ID,
		Code:        p.Code,
		Module:      p.Module,
		Action:      p.Action,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

// NewPermissionDTOs converts perms, never returning nil.
func NewPermissionDTOs(perms []models.Permission) []PermissionDTO {
	out := make([]PermissionDTO, 0, len(perms))
	for _, p := range perms {
		out = append(out, NewPermissionDTO(p))
	}

	return out
}

// RoleDTO is the API shape of a role.
type RoleDTO struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Scope       models.RoleScope `json:"scope"`
	TenantID    *uint64          `json:"tenant_id"`
	Permissions []PermissionDTO  `json:"permissions"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewRoleDTO converts r.
func NewRoleDTO(r models.Role) RoleDTO {
	return RoleDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Scope:       r.Scope,
		TenantID:    OptionalID(r.TenantID),
		Permissions: NewPermissionDTOs(r.Permissions),
		CreatedAt:   r.CreatedAt,
	}
}

// NewRoleDTOs converts roles, never returning nil.
func NewRoleDTOs(roles []models.Role) []RoleDTO {
	out := make([]RoleDTO, 0, len(roles))
	for _, r := range roles {
		out = append(out, NewRoleDTO(r))
	}

	return out
}

// AssignmentDTO is the API shape of a role assignment.
type AssignmentDTO struct {
	ID         uint64                 `json:"id"`
	UserID     uint64                 `json:"user_id"`
	RoleID     uint                   `json:"role_id"`
	Scope      models.AssignmentScope `json:"scope"`
	ProjectID  *uint64                `json:"project_id"`
	TenantID   *uint64                `json:"tenant_id"`
	AssignedBy uint64                 `json:"assigned_by"`
	AssignedAt time.Time              `json:"assigned_at"`
}

// NewAssignmentDTO converts a.
func NewAssignmentDTO(a models.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:         a.ID,
		UserID:     a.UserID,
		RoleID:     a.RoleID,
		Scope:      a.ScopeType,
		ProjectID:  OptionalID(a.ProjectID),
		TenantID:   OptionalID(a.TenantID),
		AssignedBy: a.AssignedBy,
		AssignedAt: a.AssignedAt,
	}
}

// AuditEntryDTO is the API shape of an audit log entry.
type AuditEntryDTO struct {
	ID            uint64         `json:"id"`
	EventName     string         `json:"event_name"`
	ActorID       uint64         `json:"actor_id"`
	SubjectUserID *uint64        `json:"subject_user_id"`
	TenantID      *uint64        `json:"tenant_id"`
	ProjectID     *uint64        `json:"project_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// NewAuditEntryDTOs converts entries, never returning nil.
func NewAuditEntryDTOs(entries []models.AuditLog) []AuditEntryDTO {
	out := make([]AuditEntryDTO, 0, len(entries))

	for _, e := range entries {
		out = append(out, AuditEntryDTO{
			ID:            e.ID,
			EventName:     e.EventName,
			ActorID:       e.ActorID,
			SubjectUserID: OptionalID(e.SubjectUserID),
			TenantID:      OptionalID(e.TenantID),
			ProjectID:     OptionalID(e.ProjectID),
			Payload:       e.Payload,
			CreatedAt:     e.CreatedAt,
		})
	}

	return out
}
