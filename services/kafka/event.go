package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event names
const (
	EventLeadAssigned       = "lead.assigned"
	EventLeadReassigned     = "lead.reassigned"
	EventStatusChanged      = "counselor.status_changed"
	EventSessionsReleased   = "session.released"
	EventCounselorLogin     = "counselor.login"
	EventCounselorHeartbeat = "counselor.heartbeat"
	EventCounselorLogout    = "counselor.logout"
	EventEmailSend          = "email.send"
)

// Event is the envelope of every message this service produces.
type Event struct {
	ID         string    `json:"event_id"`
	Name       string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// NewEvent stamps data with a fresh event id.
func NewEvent(name string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Message is an envelope as read back from a topic, data left undecoded.
type Message struct {
	ID         string          `json:"event_id"`
	Name       string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`

	Topic string `json:"-"`
	Key   string `json:"-"`
}

// Decode unmarshals the event data into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("event %s has no data", m.Name)
	}
	return json.Unmarshal(m.Data, v)
}

// Publisher sends events to a topic. Implementations are best effort and
// park undeliverable events in the dead letter table.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, evt Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, Event) error { return nil }
