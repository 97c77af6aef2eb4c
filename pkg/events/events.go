// Package events carries governance facts (transitions, violations, suggestion
// lifecycle changes) to interested collaborators over a message bus. Emission
// is observability, not control flow: a failed emit is logged and dropped.
package events

import (
	"context"
	"time"
)

// EventEnvelope is the canonical wrapper for all governance events.
type EventEnvelope struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	EntityID  string                 `json:"entity_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp,omitempty"`
}

// Emitter publishes governance events.
type Emitter interface {
	EmitEvent(ctx context.Context, eventType, entityID string, payload map[string]interface{}) error
}

// NewEnvelope builds an envelope with the current timestamp.
func NewEnvelope(id, eventType, entityID string, payload map[string]interface{}) *EventEnvelope {
	return &EventEnvelope{
		ID:        id,
		Type:      eventType,
		EntityID:  entityID,
		Payload:   payload,
		Timestamp: time.Now().UnixNano(),
	}
}
