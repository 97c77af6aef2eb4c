package trust

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dealgrid/dealgrid/internal/config"
	pkgerrors "github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
)

func testScore(source string, score int, sig models.RunSignals) models.TrustScore {
	return models.TrustScore{
		SourceName: source,
		Score:      score,
		Signals:    sig,
		ScoredAt:   time.Now().UTC(),
	}
}

func TestHistoryWindowEviction(t *testing.T) {
	h := NewHistory(config.DefaultTrustConfig(), zaptest.NewLogger(t))

	for i, score := range []int{90, 80, 70, 60} {
		s := testScore("shop-a", score, models.RunSignals{})
		s.RunID = string(rune('a' + i))
		h.Push(s)
	}

	window := h.Window("shop-a")
	require.Len(t, window, 3)
	assert.Equal(t, 80, window[0].Score)
	assert.Equal(t, 70, window[1].Score)
	assert.Equal(t, 60, window[2].Score)
}

func TestHistoryRecordScoresAndRetains(t *testing.T) {
	h := NewHistory(config.DefaultTrustConfig(), zaptest.NewLogger(t))

	score, err := h.Record("shop-a", "run-1", models.RunSignals{AvgConfidence: 90})
	require.NoError(t, err)
	assert.Equal(t, 100, score.Score)

	window := h.Window("shop-a")
	require.Len(t, window, 1)
	assert.Equal(t, "run-1", window[0].RunID)
}

func TestHistorySuggestionsBelowMean(t *testing.T) {
	h := NewHistory(config.DefaultTrustConfig(), zaptest.NewLogger(t))

	sig := models.RunSignals{DomChangedCount: 3}
	h.Push(testScore("shop-a", 30, sig))
	h.Push(testScore("shop-a", 35, sig))
	h.Push(testScore("shop-a", 40, sig))
	// shop-b stays healthy.
	h.Push(testScore("shop-b", 90, models.RunSignals{}))

	suggestions := h.Suggestions()
	require.Len(t, suggestions, 1)
	assert.Equal(t, "shop-a", suggestions[0].SourceName)
	assert.Equal(t, "backlog", suggestions[0].SuggestedStatus)
	assert.InDelta(t, 35.0, suggestions[0].AverageTrustScore, 0.001)
	assert.Equal(t, 3, suggestions[0].Runs)
	assert.Len(t, suggestions[0].Signals, 3)
}

func TestHistorySuggestionsOrderedBySource(t *testing.T) {
	h := NewHistory(config.DefaultTrustConfig(), zaptest.NewLogger(t))

	// Push in reverse name order; map iteration must not leak through.
	for _, source := range []string{"zeta-shop", "mid-shop", "alpha-shop"} {
		h.Push(testScore(source, 10, models.RunSignals{}))
		h.Push(testScore(source, 10, models.RunSignals{}))
	}

	suggestions := h.Suggestions()
	require.Len(t, suggestions, 3)
	assert.Equal(t, "alpha-shop", suggestions[0].SourceName)
	assert.Equal(t, "mid-shop", suggestions[1].SourceName)
	assert.Equal(t, "zeta-shop", suggestions[2].SourceName)
}

func TestHistorySingleFlooredRunNeverSuggests(t *testing.T) {
	h := NewHistory(config.DefaultTrustConfig(), zaptest.NewLogger(t))

	// The worst possible single run still scores the floor, well above the
	// backlog threshold.
	score, err := h.Record("shop-a", "run-1", models.RunSignals{
		AvgConfidence:       0,
		LowConfidenceRatio:  1,
		DomChangedCount:     5,
		NetworkBlockedCount: 5,
		EmptyResultCount:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, score.Score)
	assert.Empty(t, h.Suggestions())
}

func TestHistoryBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cfg := config.DefaultTrustConfig()
	h := NewHistory(cfg, zaptest.NewLogger(t))

	bad := models.RunSignals{AvgConfidence: math.NaN()}
	for i := 0; i < int(cfg.BreakerConsecutiveFailures); i++ {
		_, err := h.Record("shop-a", "run-x", bad)
		require.Error(t, err)
		assert.NotErrorIs(t, err, pkgerrors.ErrLearningDisabled)
	}

	assert.True(t, h.LearningDisabled())

	// Even a valid run is refused while the subsystem is disabled.
	_, err := h.Record("shop-a", "run-y", models.RunSignals{AvgConfidence: 90})
	assert.ErrorIs(t, err, pkgerrors.ErrLearningDisabled)
	assert.Empty(t, h.Window("shop-a"))
}

func TestHistorySuggestionsSuppressedWhileDisabled(t *testing.T) {
	cfg := config.DefaultTrustConfig()
	h := NewHistory(cfg, zaptest.NewLogger(t))

	h.Push(testScore("shop-a", 10, models.RunSignals{}))
	h.Push(testScore("shop-a", 10, models.RunSignals{}))

	bad := models.RunSignals{LowConfidenceRatio: 7}
	for i := 0; i < int(cfg.BreakerConsecutiveFailures); i++ {
		_, _ = h.Record("shop-a", "run-x", bad)
	}
	require.True(t, h.LearningDisabled())

	assert.Nil(t, h.Suggestions())
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory(config.DefaultTrustConfig(), zaptest.NewLogger(t))
	h.Push(testScore("shop-a", 90, models.RunSignals{}))
	h.Reset()
	assert.Empty(t, h.Window("shop-a"))
}

func TestValidateSignals(t *testing.T) {
	tests := []struct {
		name    string
		sig     models.RunSignals
		wantErr bool
	}{
		{"valid", models.RunSignals{AvgConfidence: 50, LowConfidenceRatio: 0.5}, false},
		{"nan confidence", models.RunSignals{AvgConfidence: math.NaN()}, true},
		{"inf confidence", models.RunSignals{AvgConfidence: math.Inf(1)}, true},
		{"nan ratio", models.RunSignals{LowConfidenceRatio: math.NaN()}, true},
		{"ratio above one", models.RunSignals{LowConfidenceRatio: 1.5}, true},
		{"negative ratio", models.RunSignals{LowConfidenceRatio: -0.1}, true},
		{"negative count", models.RunSignals{DomChangedCount: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSignals(tt.sig)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
