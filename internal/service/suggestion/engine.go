// Package suggestion closes the loop between scraper telemetry and admin
// action: a deterministic engine distills trust and confidence signals into
// expiring, human-reviewable suggestions, and a service tracks their review
// lifecycle. Nothing here ever mutates a campaign or a source; the engine
// only emits data for a human to act on.
package suggestion

import (
	"fmt"
	"sort"
	"time"

	"github.com/dealgrid/dealgrid/internal/config"
	"github.com/dealgrid/dealgrid/pkg/metrics"
	"github.com/dealgrid/dealgrid/pkg/models"
	"github.com/google/uuid"
)

// suggestionNamespace seeds deterministic suggestion IDs, so regenerating for
// the same run yields the same IDs and persistence stays idempotent.
var suggestionNamespace = uuid.MustParse("8f3c1d2a-9b4e-4f6a-8c7d-2e5b9a0f1c3d")

// Inputs is everything one generation pass reads. The engine is a pure
// function of this struct: identical inputs produce identical output, same
// order, same values.
type Inputs struct {
	RunID              string
	Now                time.Time
	TrustScores        []models.TrustScore
	ConfidenceFeedback []models.ConfidenceFeedback
	AdminFeedback      []models.AdminFeedback
}

// Engine generates suggestions from run telemetry. It shares the trust
// scorer's signal thresholds, so what the scorer penalizes and what a
// suggestion counts as a negative signal never disagree.
type Engine struct {
	cfg   config.SuggestionConfig
	trust config.TrustConfig
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(cfg config.SuggestionConfig, trust config.TrustConfig) *Engine {
	return &Engine{cfg: cfg, trust: trust}
}

// Generate derives suggestions from one run's telemetry. Rules in priority
// order per source: a critically low score suggests hard_backlog; otherwise a
// low score paired with DOM or network instability suggests backlog. Per
// campaign: a source with repeated admin downgrades plus a low-confidence
// campaign suggests auto_low_value. At most one source-scope suggestion per
// source.
func (e *Engine) Generate(in Inputs) []*models.Suggestion {
	now := in.Now.UTC()

	scores := make([]models.TrustScore, len(in.TrustScores))
	copy(scores, in.TrustScores)
	sort.Slice(scores, func(i, j int) bool { return scores[i].SourceName < scores[j].SourceName })

	downgrades := make(map[string]int)
	for _, fb := range in.AdminFeedback {
		switch fb.AppliedAction {
		case models.ActionBacklog, models.ActionHardBacklog, models.ActionAutoLowValue:
			downgrades[fb.SourceName]++
		}
	}

	var out []*models.Suggestion
	for _, score := range scores {
		switch {
		case score.Score < e.cfg.CriticalScoreThreshold:
			out = append(out, e.sourceSuggestion(in.RunID, score, models.ActionHardBacklog, models.ReasonCriticalTrustScore, now))
		case score.Score < e.cfg.LowScoreThreshold &&
			(score.Signals.DomChangedCount >= e.cfg.DomChangedMin || score.Signals.NetworkBlockedCount >= e.cfg.NetworkBlockedMin):
			out = append(out, e.sourceSuggestion(in.RunID, score, models.ActionBacklog, models.ReasonLowTrustAndInstability, now))
		}
	}

	feedback := make([]models.ConfidenceFeedback, len(in.ConfidenceFeedback))
	copy(feedback, in.ConfidenceFeedback)
	sort.Slice(feedback, func(i, j int) bool { return feedback[i].CampaignID < feedback[j].CampaignID })

	for _, fb := range feedback {
		if downgrades[fb.SourceName] >= e.cfg.DowngradeCountMin && fb.ConfidenceScore < e.cfg.LowCampaignConfidence {
			s := &models.Suggestion{
				Scope:      models.ScopeCampaign,
				TargetID:   fb.CampaignID,
				Action:     models.ActionAutoLowValue,
				Reason:     models.ReasonRepeatedLowConfidence,
				Confidence: e.confidence(2),
				Signals: map[string]interface{}{
					"source_name":       fb.SourceName,
					"confidence_score":  fb.ConfidenceScore,
					"downgrade_actions": downgrades[fb.SourceName],
				},
				RunID:     in.RunID,
				CreatedAt: now,
				ExpiresAt: now.Add(models.SuggestionTTL),
			}
			s.SuggestionID = deterministicID(in.RunID, s.Scope, s.TargetID, s.Action)
			out = append(out, s)
		}
	}

	for _, s := range out {
		metrics.SuggestionsGeneratedTotal.WithLabelValues(string(s.Action)).Inc()
	}
	return out
}

func (e *Engine) sourceSuggestion(runID string, score models.TrustScore, action models.SuggestedAction, reason models.SuggestionReason, now time.Time) *models.Suggestion {
	s := &models.Suggestion{
		Scope:      models.ScopeSource,
		TargetID:   score.SourceName,
		Action:     action,
		Reason:     reason,
		Confidence: e.confidence(e.negativeSignalCount(score.Signals)),
		Signals: map[string]interface{}{
			"score":                 score.Score,
			"avg_confidence":        score.Signals.AvgConfidence,
			"low_confidence_ratio":  score.Signals.LowConfidenceRatio,
			"dom_changed_count":     score.Signals.DomChangedCount,
			"network_blocked_count": score.Signals.NetworkBlockedCount,
			"empty_result_count":    score.Signals.EmptyResultCount,
		},
		RunID:     runID,
		CreatedAt: now,
		ExpiresAt: now.Add(models.SuggestionTTL),
	}
	s.SuggestionID = deterministicID(runID, s.Scope, s.TargetID, s.Action)
	return s
}

// confidence maps the number of negative signals behind a suggestion to its
// confidence, penalizing each signal and never dropping below the floor.
func (e *Engine) confidence(negativeSignals int) int {
	c := 100 - e.cfg.ConfidencePenaltyPerSignal*negativeSignals
	if c < e.cfg.ConfidenceFloor {
		c = e.cfg.ConfidenceFloor
	}
	return c
}

func (e *Engine) negativeSignalCount(sig models.RunSignals) int {
	count := 0
	if sig.AvgConfidence < e.trust.LowConfidenceThreshold {
		count++
	}
	if sig.LowConfidenceRatio > e.trust.LowRatioThreshold {
		count++
	}
	if sig.DomChangedCount > 0 {
		count++
	}
	if sig.NetworkBlockedCount > 0 {
		count++
	}
	if sig.EmptyResultCount >= e.trust.EmptyResultThreshold {
		count++
	}
	return count
}

func deterministicID(runID string, scope models.SuggestionScope, targetID string, action models.SuggestedAction) string {
	name := fmt.Sprintf("%s/%s/%s/%s", runID, scope, targetID, action)
	return uuid.NewSHA1(suggestionNamespace, []byte(name)).String()
}
