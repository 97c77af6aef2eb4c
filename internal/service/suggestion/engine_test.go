package suggestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/dealgrid/internal/config"
	"github.com/dealgrid/dealgrid/pkg/models"
)

var genNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func score(source string, value int, sig models.RunSignals) models.TrustScore {
	return models.TrustScore{SourceName: source, Score: value, Signals: sig, RunID: "run-1"}
}

func TestGenerateSourceRulePriority(t *testing.T) {
	e := NewEngine(config.DefaultSuggestionConfig(), config.DefaultTrustConfig())

	unstable := models.RunSignals{DomChangedCount: 3}
	in := Inputs{
		RunID: "run-1",
		Now:   genNow,
		TrustScores: []models.TrustScore{
			// Critically low AND unstable: the critical rule wins, one
			// suggestion per source.
			score("shop-critical", 20, unstable),
			score("shop-unstable", 35, unstable),
			score("shop-blocked", 30, models.RunSignals{NetworkBlockedCount: 1}),
			score("shop-low-but-stable", 30, models.RunSignals{}),
			score("shop-healthy", 90, models.RunSignals{}),
		},
	}

	out := e.Generate(in)
	require.Len(t, out, 3)

	assert.Equal(t, "shop-blocked", out[0].TargetID)
	assert.Equal(t, models.ActionBacklog, out[0].Action)
	assert.Equal(t, models.ReasonLowTrustAndInstability, out[0].Reason)

	assert.Equal(t, "shop-critical", out[1].TargetID)
	assert.Equal(t, models.ActionHardBacklog, out[1].Action)
	assert.Equal(t, models.ReasonCriticalTrustScore, out[1].Reason)

	assert.Equal(t, "shop-unstable", out[2].TargetID)
	assert.Equal(t, models.ActionBacklog, out[2].Action)

	for _, s := range out {
		assert.Equal(t, models.ScopeSource, s.Scope)
		assert.Equal(t, "run-1", s.RunID)
		assert.Equal(t, genNow, s.CreatedAt)
		assert.Equal(t, genNow.Add(7*24*time.Hour), s.ExpiresAt)
	}
}

func TestGenerateCampaignRule(t *testing.T) {
	e := NewEngine(config.DefaultSuggestionConfig(), config.DefaultTrustConfig())

	in := Inputs{
		RunID: "run-1",
		Now:   genNow,
		ConfidenceFeedback: []models.ConfidenceFeedback{
			{CampaignID: "c-2", SourceName: "shop-a", ConfidenceScore: 30},
			{CampaignID: "c-1", SourceName: "shop-a", ConfidenceScore: 20},
			{CampaignID: "c-3", SourceName: "shop-a", ConfidenceScore: 80},
			{CampaignID: "c-4", SourceName: "shop-b", ConfidenceScore: 10},
		},
		AdminFeedback: []models.AdminFeedback{
			{SourceName: "shop-a", AppliedAction: models.ActionBacklog},
			{SourceName: "shop-a", AppliedAction: models.ActionAutoLowValue},
			// shop-b has only one prior downgrade, below the threshold.
			{SourceName: "shop-b", AppliedAction: models.ActionBacklog},
		},
	}

	out := e.Generate(in)
	require.Len(t, out, 2)
	assert.Equal(t, "c-1", out[0].TargetID)
	assert.Equal(t, "c-2", out[1].TargetID)
	for _, s := range out {
		assert.Equal(t, models.ScopeCampaign, s.Scope)
		assert.Equal(t, models.ActionAutoLowValue, s.Action)
		assert.Equal(t, models.ReasonRepeatedLowConfidence, s.Reason)
	}
}

func TestGenerateDeterminism(t *testing.T) {
	e := NewEngine(config.DefaultSuggestionConfig(), config.DefaultTrustConfig())

	in := Inputs{
		RunID: "run-42",
		Now:   genNow,
		TrustScores: []models.TrustScore{
			score("zeta", 10, models.RunSignals{DomChangedCount: 2}),
			score("alpha", 30, models.RunSignals{NetworkBlockedCount: 2}),
		},
		ConfidenceFeedback: []models.ConfidenceFeedback{
			{CampaignID: "c-9", SourceName: "zeta", ConfidenceScore: 12},
		},
		AdminFeedback: []models.AdminFeedback{
			{SourceName: "zeta", AppliedAction: models.ActionBacklog},
			{SourceName: "zeta", AppliedAction: models.ActionHardBacklog},
		},
	}

	first := e.Generate(in)
	second := e.Generate(in)
	assert.Equal(t, first, second)

	// IDs are stable across runs of the process, derived from the inputs.
	for i := range first {
		assert.Equal(t, first[i].SuggestionID, second[i].SuggestionID)
		assert.NotEmpty(t, first[i].SuggestionID)
	}
}

func TestGenerateConfidenceBounds(t *testing.T) {
	e := NewEngine(config.DefaultSuggestionConfig(), config.DefaultTrustConfig())

	// All five negative signals: 100 - 15*5 = 25, above the floor.
	worst := models.RunSignals{
		AvgConfidence:       10,
		LowConfidenceRatio:  0.9,
		DomChangedCount:     3,
		NetworkBlockedCount: 2,
		EmptyResultCount:    4,
	}
	out := e.Generate(Inputs{
		RunID:       "run-1",
		Now:         genNow,
		TrustScores: []models.TrustScore{score("shop-a", 10, worst)},
	})
	require.Len(t, out, 1)
	assert.Equal(t, 25, out[0].Confidence)

	// A clean-signal critical score keeps full confidence.
	out = e.Generate(Inputs{
		RunID:       "run-1",
		Now:         genNow,
		TrustScores: []models.TrustScore{score("shop-a", 10, models.RunSignals{AvgConfidence: 80})},
	})
	require.Len(t, out, 1)
	assert.Equal(t, 100, out[0].Confidence)

	for _, s := range out {
		assert.GreaterOrEqual(t, s.Confidence, 20)
		assert.LessOrEqual(t, s.Confidence, 100)
	}
}

func TestNegativeSignalsFollowTrustThresholds(t *testing.T) {
	sig := models.RunSignals{AvgConfidence: 55, DomChangedCount: 1}
	critical := Inputs{
		RunID:       "run-1",
		Now:         genNow,
		TrustScores: []models.TrustScore{score("shop-a", 10, sig)},
	}

	// Default thresholds: confidence 55 is fine, only the DOM change counts.
	e := NewEngine(config.DefaultSuggestionConfig(), config.DefaultTrustConfig())
	out := e.Generate(critical)
	require.Len(t, out, 1)
	assert.Equal(t, 85, out[0].Confidence)

	// A scorer retuned to distrust anything under 60 pulls suggestion
	// confidence down with it.
	retuned := config.DefaultTrustConfig()
	retuned.LowConfidenceThreshold = 60
	e = NewEngine(config.DefaultSuggestionConfig(), retuned)
	out = e.Generate(critical)
	require.Len(t, out, 1)
	assert.Equal(t, 70, out[0].Confidence)
}

func TestConfidenceFloor(t *testing.T) {
	e := NewEngine(config.DefaultSuggestionConfig(), config.DefaultTrustConfig())
	assert.Equal(t, 100, e.confidence(0))
	assert.Equal(t, 85, e.confidence(1))
	assert.Equal(t, 25, e.confidence(5))
	assert.Equal(t, 20, e.confidence(6))
	assert.Equal(t, 20, e.confidence(100))
}

func TestGenerateEmptyInputs(t *testing.T) {
	e := NewEngine(config.DefaultSuggestionConfig(), config.DefaultTrustConfig())
	assert.Empty(t, e.Generate(Inputs{RunID: "run-1", Now: genNow}))
}
