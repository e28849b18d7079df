package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Publisher sends a named event with a structured payload to an event bus.
type Publisher interface {
	Publish(ctx context.Context, name string, payload map[string]any) error
}

// Envelope is the wire format of a published event.
type Envelope struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Source     string         `json:"source"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

func newEnvelope(source, name string, payload map[string]any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Name:       name,
		Source:     source,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

func (e Envelope) marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Nop drops every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, string, map[string]any) error {
	return nil
}
