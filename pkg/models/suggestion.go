package models

import "time"

// SuggestionTTL is how long an untouched suggestion stays reviewable.
const SuggestionTTL = 7 * 24 * time.Hour

// SuggestionScope says what a suggestion targets.
type SuggestionScope string

const (
	ScopeSource   SuggestionScope = "source"
	ScopeCampaign SuggestionScope = "campaign"
)

// SuggestedAction enumerates the actions the engine may propose. None of them
// are ever executed without a human applying the suggestion first.
type SuggestedAction string

const (
	ActionBacklog      SuggestedAction = "backlog"
	ActionHardBacklog  SuggestedAction = "hard_backlog"
	ActionAutoLowValue SuggestedAction = "auto_low_value"
)

// SuggestionReason is the closed set of engine rationales. Free text never
// appears here; reasons drive UI copy and filtering, not prose.
type SuggestionReason string

const (
	ReasonCriticalTrustScore     SuggestionReason = "critical_trust_score"
	ReasonLowTrustAndInstability SuggestionReason = "low_trust_and_instability"
	ReasonRepeatedLowConfidence  SuggestionReason = "repeated_low_confidence"
)

// SuggestionState is the lifecycle filter vocabulary for review surfaces.
type SuggestionState string

const (
	SuggestionNew      SuggestionState = "new"
	SuggestionApplied  SuggestionState = "applied"
	SuggestionRejected SuggestionState = "rejected"
	SuggestionExpired  SuggestionState = "expired"
	SuggestionExecuted SuggestionState = "executed"
)

// Valid reports whether s is a known lifecycle state.
func (s SuggestionState) Valid() bool {
	switch s {
	case SuggestionNew, SuggestionApplied, SuggestionRejected, SuggestionExpired, SuggestionExecuted:
		return true
	}
	return false
}

// Suggestion is a non-binding, expiring recommendation for a human reviewer.
type Suggestion struct {
	SuggestionID string           `json:"suggestion_id"`
	Scope        SuggestionScope  `json:"scope"`
	TargetID     string           `json:"target_id"`
	Action       SuggestedAction  `json:"suggested_action"`
	Confidence   int              `json:"confidence"`
	Reason       SuggestionReason `json:"reason"`

	// Signals is the snapshot of inputs the engine derived this from.
	Signals map[string]interface{} `json:"signals"`

	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	AppliedAt  *time.Time `json:"applied_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

// StateAt derives the lifecycle state of the suggestion at the given instant.
// Applied and rejected dominate expiry; executed dominates applied.
func (s *Suggestion) StateAt(now time.Time) SuggestionState {
	switch {
	case s.ExecutedAt != nil:
		return SuggestionExecuted
	case s.AppliedAt != nil:
		return SuggestionApplied
	case s.RejectedAt != nil:
		return SuggestionRejected
	case now.After(s.ExpiresAt):
		return SuggestionExpired
	default:
		return SuggestionNew
	}
}
