package trust

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dealgrid/dealgrid/internal/config"
	pkgerrors "github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/metrics"
	"github.com/dealgrid/dealgrid/pkg/models"
	cb "github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BacklogSuggestion proposes moving a source into the scrape backlog because
// its trust has stayed low across the whole retained window.
type BacklogSuggestion struct {
	SourceName        string              `json:"source_name"`
	SuggestedStatus   string              `json:"suggested_status"`
	AverageTrustScore float64             `json:"average_trust_score"`
	Runs              int                 `json:"runs"`
	Signals           []models.RunSignals `json:"signals"`
}

// History is the bounded rolling memory of trust scores per source. It is
// process-local, in-memory state: with multiple workers each one's history is
// independent, and no cross-process synchronization is implied. Construct one
// per scoring pipeline and inject it so tests can reset it.
type History struct {
	mu      sync.Mutex
	scores  map[string][]models.TrustScore
	scorer  *Scorer
	breaker *cb.CircuitBreaker
	cfg     config.TrustConfig
	log     *zap.Logger
}

// NewHistory creates a rolling trust history with the learning safety breaker.
func NewHistory(cfg config.TrustConfig, log *zap.Logger) *History {
	h := &History{
		scores: make(map[string][]models.TrustScore),
		scorer: NewScorer(cfg),
		cfg:    cfg,
		log:    log,
	}
	h.breaker = cb.NewCircuitBreaker(cb.Settings{
		Name:        "TrustLearningCB",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures >= h.cfg.BreakerConsecutiveFailures
		},
		OnStateChange: func(name string, from, to cb.State) {
			if to == cb.StateOpen {
				metrics.LearningDisabled.Set(1)
			} else {
				metrics.LearningDisabled.Set(0)
			}
			log.Warn("Trust learning breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return h
}

// Record scores one run's signals through the learning breaker and pushes the
// result into the rolling window. When the breaker is open the subsystem has
// disabled itself; callers get ErrLearningDisabled rather than an unreliable
// score, and the state is visible in logs and metrics, never silent.
func (h *History) Record(sourceName, runID string, sig models.RunSignals) (models.TrustScore, error) {
	v, err := h.breaker.Execute(func() (interface{}, error) {
		if err := validateSignals(sig); err != nil {
			return nil, err
		}
		return h.scorer.Score(sourceName, runID, sig), nil
	})
	if err != nil {
		if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
			return models.TrustScore{}, pkgerrors.ErrLearningDisabled
		}
		h.log.Error("Trust scoring failed",
			zap.String("source", sourceName),
			zap.String("run_id", runID),
			zap.Error(err),
		)
		return models.TrustScore{}, err
	}
	score, ok := v.(models.TrustScore)
	if !ok {
		return models.TrustScore{}, fmt.Errorf("unexpected scorer result type %T", v)
	}
	h.Push(score)
	return score, nil
}

// Push appends a score to the source's window, evicting the oldest run
// beyond the window size.
func (h *History) Push(score models.TrustScore) {
	h.mu.Lock()
	defer h.mu.Unlock()
	window := append(h.scores[score.SourceName], score)
	if len(window) > h.cfg.WindowSize {
		window = window[len(window)-h.cfg.WindowSize:]
	}
	h.scores[score.SourceName] = window
}

// Window returns the retained scores for a source, oldest first.
func (h *History) Window(sourceName string) []models.TrustScore {
	h.mu.Lock()
	defer h.mu.Unlock()
	window := h.scores[sourceName]
	out := make([]models.TrustScore, len(window))
	copy(out, window)
	return out
}

// Reset clears all retained history. For tests and operator resets.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scores = make(map[string][]models.TrustScore)
}

// LearningDisabled reports whether the scoring subsystem has tripped its
// breaker and is refusing to produce trust-derived suggestions.
func (h *History) LearningDisabled() bool {
	return h.breaker.State() == cb.StateOpen
}

// Suggestions proposes a backlog status for every source whose mean score
// across the retained runs sits below the threshold. A single floored run can
// never get a source here; only sustained low trust does. Output is ordered
// by source name. While the learning breaker is open no suggestions are
// produced at all.
func (h *History) Suggestions() []BacklogSuggestion {
	if h.LearningDisabled() {
		h.log.Warn("Trust learning disabled, suppressing backlog suggestions")
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	sources := make([]string, 0, len(h.scores))
	for source := range h.scores {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var out []BacklogSuggestion
	for _, source := range sources {
		window := h.scores[source]
		if len(window) == 0 {
			continue
		}
		sum := 0
		signals := make([]models.RunSignals, 0, len(window))
		for _, score := range window {
			sum += score.Score
			signals = append(signals, score.Signals)
		}
		mean := float64(sum) / float64(len(window))
		if mean < h.cfg.BacklogMeanThreshold {
			out = append(out, BacklogSuggestion{
				SourceName:        source,
				SuggestedStatus:   "backlog",
				AverageTrustScore: mean,
				Runs:              len(window),
				Signals:           signals,
			})
		}
	}
	return out
}

func validateSignals(sig models.RunSignals) error {
	if math.IsNaN(sig.AvgConfidence) || math.IsInf(sig.AvgConfidence, 0) {
		return fmt.Errorf("avg_confidence is not a number")
	}
	if math.IsNaN(sig.LowConfidenceRatio) || math.IsInf(sig.LowConfidenceRatio, 0) {
		return fmt.Errorf("low_confidence_ratio is not a number")
	}
	if sig.LowConfidenceRatio < 0 || sig.LowConfidenceRatio > 1 {
		return fmt.Errorf("low_confidence_ratio %f out of range", sig.LowConfidenceRatio)
	}
	if sig.DomChangedCount < 0 || sig.NetworkBlockedCount < 0 || sig.EmptyResultCount < 0 {
		return fmt.Errorf("negative signal count")
	}
	return nil
}
