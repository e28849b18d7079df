package rbac

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// auditPublishFailures counts audit events that were committed locally but
	// could not be delivered to the event bus.
	auditPublishFailures = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "rbac_audit_publish_failures_total",
			Help: "Number of audit events that could not be published to the event bus.",
		},
		[]string{"event"},
	)
)
