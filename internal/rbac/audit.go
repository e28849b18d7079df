package rbac

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// Audit event names.
const (
	EventPermissionCreated         = "rbac.permission.created"
	EventPermissionDeleted         = "rbac.permission.deleted"
	EventRoleCreated               = "rbac.role.created"
	EventRoleDeleted               = "rbac.role.deleted"
	EventRolePermissionsUpdated    = "rbac.role.permissions.updated"
	EventRoleAssigned              = "rbac.role.assigned"
	EventRoleRevoked               = "rbac.role.revoked"
	EventRolesBulkAssigned         = "rbac.roles.bulk.assigned"
	EventProjectAssignmentsRemoved = "rbac.project.assignments.removed"
	EventMatrixImported            = "rbac.permission.matrix.imported"
)

type auditEvent struct {
	name          string
	actorID       uint64
	subjectUserID uint64
	tenantID      uint64
	projectID     uint64
	payload       map[string]any
}

// record appends the audit row using the transaction of the change it describes.
func (s *Service) record(tx *gorm.DB, ev auditEvent) error {
	entry := models.AuditLog{
		EventName:     ev.name,
		ActorID:       ev.actorID,
		SubjectUserID: ev.subjectUserID,
		TenantID:      ev.tenantID,
		ProjectID:     ev.projectID,
		Payload:       ev.payload,
		CreatedAt:     s.now().UTC(),
	}

	return tx.Create(&entry).Error
}

// publish delivers committed audit events to the bus. Delivery is best effort:
// the change is already committed, so failures are logged and counted only.
func (s *Service) publish(ctx context.Context, evs ...auditEvent) {
	for _, ev := range evs {
		payload := make(map[string]any, len(ev.payload)+3)
		for k, v := range ev.payload {
			payload[k] = v
		}

		payload["actor_id"] = ev.actorID

		if ev.tenantID != 0 {
			payload["tenant_id"] = ev.tenantID
		}

		if ev.projectID != 0 {
			payload["project_id"] = ev.projectID
		}

		if err := s.publisher.Publish(ctx, ev.name, payload); err != nil {
			auditPublishFailures.WithLabelValues(ev.name).Inc()
			log.Error().Err(err).Str("event", ev.name).Uint64("actor_id", ev.actorID).
				Msg("failed to publish audit event, audit log row was committed")
		}
	}
}

// AuditFilter narrows QueryAuditLog. Zero values do not filter.
type AuditFilter struct {
	// UserID matches entries where the user is either the actor or the subject.
	UserID    uint64
	ProjectID uint64
	// TenantID restricts the entries to one tenant; 0 returns every tenant.
	TenantID        uint64
	EventTypePrefix string
	From            time.Time
	To              time.Time
}

// AuditPage is a page of audit entries, newest first.
type AuditPage struct {
	Entries []models.AuditLog `json:"data"`
	PageInfo
}

// QueryAuditLog returns audit entries matching filter.
func (s *Service) QueryAuditLog(ctx context.Context, filter AuditFilter, page Page) (*AuditPage, error) {
	page = page.normalize()

	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, invalidArgument("to_date must not be before from_date")
	}

	tx := s.db.WithContext(ctx).Model(&models.AuditLog{})

	if filter.UserID != 0 {
		tx = tx.Where("(actor_id = ? OR subject_user_id = ?)", filter.UserID, filter.UserID)
	}

	if filter.ProjectID != 0 {
		tx = tx.Where("project_id = ?", filter.ProjectID)
	}

	if filter.TenantID != 0 {
		tx = tx.Where("tenant_id = ?", filter.TenantID)
	}

	if prefix := strings.TrimSpace(filter.EventTypePrefix); prefix != "" {
		tx = tx.Where("event_name LIKE ? ESCAPE '!'", escapeLike(prefix)+"%")
	}

	if !filter.From.IsZero() {
		tx = tx.Where("created_at >= ?", filter.From.UTC())
	}

	if !filter.To.IsZero() {
		tx = tx.Where("created_at <= ?", filter.To.UTC())
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, storageError("count audit log", err)
	}

	entries := make([]models.AuditLog, 0, page.PerPage)
	if err := tx.Order("created_at DESC, id DESC").Limit(page.PerPage).Offset(page.offset()).
		Find(&entries).Error; err != nil {
		return nil, storageError("query audit log", err)
	}

	return &AuditPage{Entries: entries, PageInfo: newPageInfo(page, total)}, nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_") //nolint:gochecknoglobals

// escapeLike escapes LIKE wildcards using '!' as the escape character, which
// all supported SQL dialects accept without string literal quirks.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
