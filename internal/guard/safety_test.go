package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
)

func TestAssertFeedNotPollutedStrict(t *testing.T) {
	g := NewGuards(Strict, zaptest.NewLogger(t))

	clean := []*models.Campaign{eligibleCampaign()}
	got, err := g.AssertFeedNotPolluted(clean, testNow)
	require.NoError(t, err)
	assert.Equal(t, clean, got)

	polluted := eligibleCampaign()
	polluted.IsHidden = true
	_, err = g.AssertFeedNotPolluted([]*models.Campaign{polluted}, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvariantViolation)
}

func TestAssertFeedNotPollutedFailSafe(t *testing.T) {
	g := NewGuards(FailSafe, zaptest.NewLogger(t))

	polluted := eligibleCampaign()
	polluted.IsHidden = true

	got, err := g.AssertFeedNotPolluted([]*models.Campaign{eligibleCampaign(), polluted}, testNow)
	require.NoError(t, err)
	// One bad row voids the whole page. Users never see polluted data; the
	// violation is in the logs and the counters.
	assert.Empty(t, got)
}

func secondaryCampaign(feed models.FeedKind) *models.Campaign {
	c := eligibleCampaign()
	switch feed {
	case models.FeedLight:
		state := models.StateLight
		c.VisibilityState = &state
		c.ShowInLightFeed = true
	case models.FeedCategory:
		state := models.StateCategory
		c.VisibilityState = &state
		c.ShowInCategoryFeed = true
	case models.FeedLow:
		state := models.StateLow
		c.VisibilityState = &state
		c.ShowInLowFeed = true
	}
	return c
}

func TestAssertFeedIsolation(t *testing.T) {
	for _, feed := range []models.FeedKind{models.FeedLight, models.FeedCategory, models.FeedLow} {
		t.Run(string(feed), func(t *testing.T) {
			g := NewGuards(Strict, zaptest.NewLogger(t))

			items := []*models.Campaign{secondaryCampaign(feed)}
			got, err := g.AssertFeedIsolation(items, feed, testNow)
			require.NoError(t, err)
			assert.Equal(t, items, got)

			// Missing discriminator flag.
			bare := eligibleCampaign()
			_, err = g.AssertFeedIsolation([]*models.Campaign{bare}, feed, testNow)
			assert.ErrorIs(t, err, errors.ErrInvariantViolation)

			// Hidden campaigns leak into no feed.
			hidden := secondaryCampaign(feed)
			hidden.IsHidden = true
			_, err = g.AssertFeedIsolation([]*models.Campaign{hidden}, feed, testNow)
			assert.ErrorIs(t, err, errors.ErrInvariantViolation)
		})
	}
}

func TestAssertFeedIsolationFailSafe(t *testing.T) {
	g := NewGuards(FailSafe, zaptest.NewLogger(t))

	hidden := secondaryCampaign(models.FeedLight)
	hidden.IsHidden = true
	got, err := g.AssertFeedIsolation([]*models.Campaign{hidden}, models.FeedLight, testNow)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAssertTransitionSafe(t *testing.T) {
	g := NewGuards(Strict, zaptest.NewLogger(t))

	// A campaign landing outside the main feed is not this gate's concern.
	state := models.StateHidden
	hidden := eligibleCampaign()
	hidden.VisibilityState = &state
	hidden.IsHidden = true
	assert.NoError(t, g.AssertTransitionSafe(hidden, models.ActionHide, testNow))

	// A campaign landing in the main feed must fully satisfy the invariant.
	stale := eligibleCampaign()
	stale.ExpiresAt = testNow.Add(-time.Hour)
	err := g.AssertTransitionSafe(stale, models.ActionUnhide, testNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvariantViolation)

	assert.NoError(t, g.AssertTransitionSafe(eligibleCampaign(), models.ActionUnhide, testNow))
}

func TestAssertTransitionSafeAlwaysFatal(t *testing.T) {
	// Unlike feed reads, a failed transition gate is an error in both modes.
	g := NewGuards(FailSafe, zaptest.NewLogger(t))
	stale := eligibleCampaign()
	stale.IsActive = false
	assert.ErrorIs(t, g.AssertTransitionSafe(stale, models.ActionUnhide, testNow), errors.ErrInvariantViolation)
}

func TestAssertUpstreamClean(t *testing.T) {
	for _, mode := range []StrictnessMode{Strict, FailSafe} {
		t.Run(mode.String(), func(t *testing.T) {
			g := NewGuards(mode, zaptest.NewLogger(t))

			assert.NoError(t, g.AssertUpstreamClean(eligibleCampaign()))

			tainted := eligibleCampaign()
			tainted.IsHidden = true
			err := g.AssertUpstreamClean(tainted)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrUpstreamIntegrity)
		})
	}
}
