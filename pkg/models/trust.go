package models

import "time"

// RunSignals is one scraper run's aggregate telemetry for a single source.
// Each field is a named signal; the vocabulary is fixed and shared with the
// failure classifier and the suggestion engine.
type RunSignals struct {
	AvgConfidence       float64 `json:"avg_confidence"`
	LowConfidenceRatio  float64 `json:"low_confidence_ratio"`
	DomChangedCount     int     `json:"dom_changed_count"`
	NetworkBlockedCount int     `json:"network_blocked_count"`
	EmptyResultCount    int     `json:"empty_result_count"`
}

// TrustScore is the bounded per-source, per-run reliability estimate together
// with the signal breakdown that explains it.
type TrustScore struct {
	SourceName string     `json:"source_name"`
	Score      int        `json:"score"`
	Signals    RunSignals `json:"signals"`
	RunID      string     `json:"run_id,omitempty"`
	ScoredAt   time.Time  `json:"scored_at"`
}

// ConfidenceFeedback is per-campaign confidence telemetry grouped by source.
type ConfidenceFeedback struct {
	CampaignID      string  `json:"campaign_id"`
	SourceName      string  `json:"source_name"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// AdminFeedback is one prior applied admin action attributed to a source,
// used by the suggestion engine to detect recurring downgrade patterns.
type AdminFeedback struct {
	SourceName    string          `json:"source_name"`
	AppliedAction SuggestedAction `json:"applied_action"`
	AppliedAt     time.Time       `json:"applied_at"`
}
