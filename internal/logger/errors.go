package logger

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settings rejected by Init.
var (
	ErrUnknownLogLevel    = errors.New("unknown Log.LogLevel")
	ErrAppNameIsEmpty     = errors.New("missing Log.AppName")
	ErrServiceNameIsEmpty = errors.New("missing Log.ServiceName")
)

var droppedEvents = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
	Name: "log_events_dropped_total",
	Help: "Log events no writer accepted.",
})

// errorOutput receives the dropped event notices.
var errorOutput io.Writer = os.Stderr //nolint:gochecknoglobals

// ErrorHandler counts a log event the writers failed on and reports it on stderr.
func ErrorHandler(err error) {
	droppedEvents.Inc()

	_, _ = fmt.Fprintf(errorOutput, "rbac: log event dropped: %v\n", err)
}
