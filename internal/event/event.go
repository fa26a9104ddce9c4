package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// DomainEvent is the envelope every producer publishes: a dot-delimited
// routing key plus an opaque JSON object payload. Events are immutable once
// published.
type DomainEvent struct {
	RoutingKey string
	Payload    map[string]any
	EmittedAt  time.Time
}

// Decode parses a raw message body into a DomainEvent. A body that is not a
// JSON object is malformed and unrecoverable; the caller dead-letters it.
func Decode(routingKey string, body []byte, emittedAt time.Time) (DomainEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return DomainEvent{}, fmt.Errorf("decode event %s: %w", routingKey, err)
	}
	if emittedAt.IsZero() {
		emittedAt = time.Now().UTC()
	}
	return DomainEvent{
		RoutingKey: routingKey,
		Payload:    payload,
		EmittedAt:  emittedAt,
	}, nil
}

// String fetches a string field from the payload, empty if absent or not a
// string.
func (e DomainEvent) String(key string) string {
	v, _ := e.Payload[key].(string)
	return v
}

// Number fetches a numeric field from the payload.
func (e DomainEvent) Number(key string) (float64, bool) {
	v, ok := e.Payload[key].(float64)
	return v, ok
}
