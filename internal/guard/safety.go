package guard

import (
	"fmt"
	"time"

	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/metrics"
	"github.com/dealgrid/dealgrid/pkg/models"
	"go.uber.org/zap"
)

// StrictnessMode selects how invariant violations are surfaced.
type StrictnessMode int

const (
	// Strict fails fast: assertions return errors. Used in development.
	Strict StrictnessMode = iota
	// FailSafe protects users: polluted reads come back empty, violations are
	// logged and counted but never served. Used in production.
	FailSafe
)

func (m StrictnessMode) String() string {
	if m == FailSafe {
		return "fail_safe"
	}
	return "strict"
}

// Guards composes the runtime safety assertions. It is the last line of
// defense before data reaches a feed or an admin mutation commits.
type Guards struct {
	Mode StrictnessMode
	log  *zap.Logger
}

// NewGuards creates the guard set with the given strictness.
func NewGuards(mode StrictnessMode, log *zap.Logger) *Guards {
	return &Guards{Mode: mode, log: log}
}

// AssertFeedNotPolluted checks every item against the main feed invariant.
// Strict mode returns the violation as an error; FailSafe mode returns an
// empty slice so polluted data is never served, and the violation is logged.
func (g *Guards) AssertFeedNotPolluted(items []*models.Campaign, now time.Time) ([]*models.Campaign, error) {
	report := Validate(items, now)
	if report.Valid {
		return items, nil
	}
	g.observe("feed_not_polluted", report.Violations)
	if g.Mode == Strict {
		return nil, fmt.Errorf("%w: %s", errors.ErrInvariantViolation, report.Violations[0])
	}
	return []*models.Campaign{}, nil
}

// AssertFeedIsolation checks that every item in a secondary feed carries the
// matching discriminator flags and is not hidden.
func (g *Guards) AssertFeedIsolation(items []*models.Campaign, feed models.FeedKind, now time.Time) ([]*models.Campaign, error) {
	var violations []Violation
	for _, c := range items {
		if c.IsHidden || c.State() == models.StateHidden {
			violations = append(violations, Violation{
				CampaignID: c.ID, Rule: "not_hidden", Field: "is_hidden",
				Expected: "false", Actual: "true",
			})
			continue
		}
		if ok, field := carriesFeedFlags(c, feed); !ok {
			violations = append(violations, Violation{
				CampaignID: c.ID, Rule: "feed_discriminator", Field: field,
				Expected: "true", Actual: "false",
			})
		}
	}
	if len(violations) == 0 {
		return items, nil
	}
	g.observe("feed_isolation", violations)
	if g.Mode == Strict {
		return nil, fmt.Errorf("%w: %s", errors.ErrInvariantViolation, violations[0])
	}
	return []*models.Campaign{}, nil
}

// AssertTransitionSafe is the final gate before a visibility transition
// commits. A post-transition campaign that still claims main feed placement
// (state main, high value) must fully satisfy the invariant; anything else
// means the transition itself is inconsistent and must be rolled back.
// Campaigns routed out of the main feed are not this gate's concern.
func (g *Guards) AssertTransitionSafe(after *models.Campaign, action models.AuditAction, now time.Time) error {
	if after.State() != models.StateMain || after.Value() != models.ValueHigh {
		return nil
	}
	report := Validate([]*models.Campaign{after}, now)
	if report.Valid {
		return nil
	}
	g.observe("transition_safe", report.Violations)
	return fmt.Errorf("%w: %s after %s", errors.ErrInvariantViolation, report.Violations[0], action)
}

// AssertUpstreamClean verifies that pipeline-ingested content does not carry
// admin-only state. A violation here means the automated pipeline is writing
// fields only a human may set, which is an integrity failure in every mode.
func (g *Guards) AssertUpstreamClean(c *models.Campaign) error {
	if !c.IsHidden && c.State() != models.StateHidden {
		return nil
	}
	g.observe("upstream_clean", []Violation{{
		CampaignID: c.ID, Rule: "admin_only_fields", Field: "is_hidden",
		Expected: "unset by pipeline", Actual: "set",
	}})
	return fmt.Errorf("%w: campaign %d arrived hidden from the pipeline", errors.ErrUpstreamIntegrity, c.ID)
}

func (g *Guards) observe(guardName string, violations []Violation) {
	metrics.InvariantViolationsTotal.WithLabelValues(guardName, g.Mode.String()).Add(float64(len(violations)))
	if g.log == nil {
		return
	}
	for _, v := range violations {
		g.log.Error("Invariant violation",
			zap.String("guard", guardName),
			zap.String("mode", g.Mode.String()),
			zap.Int64("campaign_id", v.CampaignID),
			zap.String("rule", v.Rule),
			zap.String("field", v.Field),
			zap.String("expected", v.Expected),
			zap.String("actual", v.Actual),
		)
	}
}

func carriesFeedFlags(c *models.Campaign, feed models.FeedKind) (bool, string) {
	switch feed {
	case models.FeedLight:
		return c.ShowInLightFeed && c.State() == models.StateLight, "show_in_light_feed"
	case models.FeedCategory:
		return c.ShowInCategoryFeed && c.State() == models.StateCategory, "show_in_category_feed"
	case models.FeedLow:
		return c.ShowInLowFeed && c.State() == models.StateLow, "show_in_low_feed"
	default:
		return false, string(feed)
	}
}
