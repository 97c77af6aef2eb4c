package models

import "time"

// AuditAction enumerates every admin-initiated state change the core records.
type AuditAction string

const (
	ActionHide               AuditAction = "hide"
	ActionUnhide             AuditAction = "unhide"
	ActionDowngrade          AuditAction = "downgrade"
	ActionPin                AuditAction = "pin"
	ActionUnpin              AuditAction = "unpin"
	ActionSuggestionApplied  AuditAction = "suggestion_applied"
	ActionSuggestionRejected AuditAction = "suggestion_rejected"
	ActionSuggestionExecuted AuditAction = "suggestion_executed"
)

// RequiresReason reports whether the action must carry a free-text reason.
// Pin and unpin are the only cosmetic actions exempt from it.
func (a AuditAction) RequiresReason() bool {
	return a != ActionPin && a != ActionUnpin
}

// AuditEvent is one immutable fact about an admin-caused state change.
// There is no update or delete path; corrections are new events.
type AuditEvent struct {
	ID         int64       `json:"id"`
	EventID    string      `json:"event_id"`
	ActorID    string      `json:"actor_id"`
	ActorRole  Role        `json:"actor_role"`
	Action     AuditAction `json:"action"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`

	// Full snapshots of the governance-relevant fields around the change.
	BeforeState map[string]interface{} `json:"before_state"`
	AfterState  map[string]interface{} `json:"after_state"`

	Reason   string                 `json:"reason"`
	Metadata map[string]interface{} `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}

// AuditFilter narrows an audit timeline query. Zero fields are ignored.
type AuditFilter struct {
	ActorID    string
	Action     AuditAction
	EntityType string
	EntityID   string
	Page       int
	PageSize   int
}
