package rbac

import (
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/events"
)

// DefaultMaxImportBytes bounds the size of a permission matrix accepted by
// ValidateCSV and ImportCSV.
const DefaultMaxImportBytes = 5 << 20

// Service is the RBAC engine. It keeps no state besides the database handle
// and the event publisher, so it is safe for concurrent use.
type Service struct {
	db             *gorm.DB
	publisher      events.Publisher
	now            func() time.Time
	maxImportBytes int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMaxImportBytes sets the largest permission matrix accepted for import.
func WithMaxImportBytes(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImportBytes = n
		}
	}
}

// NewService creates a new RBAC service. A nil publisher drops all events.
func NewService(db *gorm.DB, publisher events.Publisher, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}

	s := &Service{
		db:             db,
		publisher:      publisher,
		now:            time.Now,
		maxImportBytes: DefaultMaxImportBytes,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Now returns the current time of the service clock in UTC.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}

// MaxImportBytes is the largest permission matrix ValidateCSV and ImportCSV accept.
func (s *Service) MaxImportBytes() int {
	return s.maxImportBytes
}

// AnyTenant is the tenant argument of a read made without a tenant context:
// it matches rows of every tenant. Tenant 0 stays the global context, which
// only sees global rows. Writes always need a concrete context.
const AnyTenant uint64 = math.MaxUint64

// tenantScope returns the tenant ids visible from tenantID: global (0) and,
// when set, the tenant itself.
func tenantScope(tenantID uint64) []uint64 {
	if tenantID == 0 {
		return []uint64{0}
	}

	return []uint64{0, tenantID}
}

// whereTenant restricts q to the rows visible from tenantID.
func whereTenant(q *gorm.DB, tenantID uint64) *gorm.DB {
	if tenantID == AnyTenant {
		return q
	}

	return q.Where("tenant_id IN ?", tenantScope(tenantID))
}

// checkWriteTenant rejects AnyTenant as the context of a change.
func checkWriteTenant(tenantID uint64) error {
	if tenantID == AnyTenant {
		return invalidFields(map[string]string{"tenant_id": "a tenant context is required for changes"})
	}

	return nil
}
