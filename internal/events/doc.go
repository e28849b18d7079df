// Package events publishes RBAC change events to an external event bus.
//
// Publishing is best effort: callers commit their state change first and only
// then hand the event to a Publisher. A failed publish is reported to the
// caller as an error, which the RBAC core logs and counts but never returns to
// its own callers.
//
// Drivers:
//   - "redis": PUBLISH of a JSON envelope on "<prefix><event name>" (go-redis)
//   - "kafka": JSON envelope produced to one topic keyed by event name (sarama)
//   - "memory": in-process Recorder, used by tests and local development
//   - "none" or empty: events are dropped
package events
