package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/example/notification-pipeline/internal/event"
	"github.com/example/notification-pipeline/internal/rules"
)

// Notification is the canonical unit of delivery: built once per matched
// event, never mutated afterwards, transient unless the store persists it.
type Notification struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Priority  rules.Priority  `json:"priority"`
	Payload   map[string]any  `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Channels  []rules.Channel `json:"channels"`
}

// Build is a pure constructor: fresh id, current timestamp, rule fields
// copied in, channel set narrowed per event. It performs no I/O.
func Build(r rules.Rule, ev event.DomainEvent) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Type:      r.Type,
		Priority:  r.Priority,
		Payload:   ev.Payload,
		CreatedAt: time.Now().UTC(),
		Channels:  rules.ChannelsFor(r, ev.Payload),
	}
}
