package trust

import (
	"time"

	"github.com/dealgrid/dealgrid/internal/config"
	"github.com/dealgrid/dealgrid/pkg/metrics"
	"github.com/dealgrid/dealgrid/pkg/models"
)

// Scorer computes bounded per-source trust scores from one run's signals.
// The weights are tuned heuristics taken from configuration.
type Scorer struct {
	cfg config.TrustConfig
}

// NewScorer creates a scorer with the given weights.
func NewScorer(cfg config.TrustConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the trust score for one source from one run's signals.
// Starting at 100, penalties accumulate per signal; a single run may never
// drop a source below the floor, which bounds the blast radius of one bad
// run. Demotions therefore require sustained low scores across the history
// window, never a single failure.
func (s *Scorer) Score(sourceName, runID string, sig models.RunSignals) models.TrustScore {
	score := 100
	if sig.AvgConfidence < s.cfg.LowConfidenceThreshold {
		score -= s.cfg.LowConfidencePenalty
	}
	if sig.LowConfidenceRatio > s.cfg.LowRatioThreshold {
		score -= s.cfg.LowRatioPenalty
	}
	score -= s.cfg.DomChangedPenalty * sig.DomChangedCount
	score -= s.cfg.NetworkBlockedPenalty * sig.NetworkBlockedCount
	if sig.EmptyResultCount >= s.cfg.EmptyResultThreshold {
		score -= s.cfg.EmptyResultPenalty
	}

	if score < s.cfg.SingleRunFloor {
		score = s.cfg.SingleRunFloor
	}
	score = clamp(score, 0, 100)

	metrics.TrustScores.Observe(float64(score))
	return models.TrustScore{
		SourceName: sourceName,
		Score:      score,
		Signals:    sig,
		RunID:      runID,
		ScoredAt:   time.Now().UTC(),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
