package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransitionsTotal counts visibility transitions by action and outcome.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governance_transitions_total",
			Help: "Visibility state transitions processed by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	// InvariantViolationsTotal counts feed invariant violations by guard and mode.
	InvariantViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governance_invariant_violations_total",
			Help: "Feed invariant violations detected by guard and strictness mode",
		},
		[]string{"guard", "mode"},
	)

	// AuditWriteFailuresTotal counts audit appends that failed without blocking the action.
	AuditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "governance_audit_write_failures_total",
			Help: "Audit log appends that failed and were only logged",
		},
	)

	// SuggestionsGeneratedTotal counts suggestions emitted by suggested action.
	SuggestionsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governance_suggestions_generated_total",
			Help: "Suggestions generated by suggested action",
		},
		[]string{"action"},
	)

	// TrustScores observes computed per-run trust scores.
	TrustScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "governance_trust_score",
			Help:    "Per-source per-run trust scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// LearningDisabled is 1 while the trust learning breaker is open.
	LearningDisabled = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "governance_learning_disabled",
			Help: "Whether the trust learning subsystem has disabled itself",
		},
	)

	registerOnce sync.Once
)

// Register registers all governance collectors with the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			TransitionsTotal,
			InvariantViolationsTotal,
			AuditWriteFailuresTotal,
			SuggestionsGeneratedTotal,
			TrustScores,
			LearningDisabled,
		)
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
