package events

import (
	"context"
	"sync"
)

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
	err    error
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish implements Publisher. When Fail was called, the configured error is
// returned and nothing is recorded.
func (r *Recorder) Publish(_ context.Context, name string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.events = append(r.events, newEnvelope(defaultSource, name, payload))

	return nil
}

// Fail makes every following Publish return err. Pass nil to recover.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Envelope, len(r.events))
	copy(out, r.events)

	return out
}

// Names returns the recorded event names in publish order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Name)
	}

	return out
}

// Count returns how many events with the given name were recorded.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for _, e := range r.events {
		if e.Name == name {
			n++
		}
	}

	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}
