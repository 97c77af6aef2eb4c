// Package explain is the read-only diagnostic that answers "why is this
// campaign (not) in a feed". It re-derives everything from the guard rules
// and the discriminator flags, so its answer can never diverge from what the
// live feed query returns.
package explain

import (
	"fmt"
	"time"

	"github.com/dealgrid/dealgrid/internal/guard"
	"github.com/dealgrid/dealgrid/pkg/models"
)

// RuleOutcome is one invariant conjunct evaluated against the campaign.
type RuleOutcome struct {
	Rule     string `json:"rule"`
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// FeedAssignments says which feeds the campaign lands in. The entries are
// mutually exclusive; hidden takes precedence over everything.
type FeedAssignments struct {
	MainFeed     bool `json:"main_feed"`
	LightFeed    bool `json:"light_feed"`
	CategoryFeed bool `json:"category_feed"`
	LowFeed      bool `json:"low_feed"`
	Hidden       bool `json:"hidden"`
}

// Result explains a campaign's current feed placement.
type Result struct {
	CampaignID      int64                  `json:"campaign_id"`
	CurrentState    models.VisibilityState `json:"current_state"`
	Eligible        bool                   `json:"eligible"`
	BlockingRules   []RuleOutcome          `json:"blocking_rules"`
	PassingRules    []RuleOutcome          `json:"passing_rules"`
	FeedAssignments FeedAssignments        `json:"feed_assignments"`
	Recommendations []string               `json:"recommendations"`
}

// Explain evaluates every main feed rule on the campaign and derives its feed
// assignments from the same flags the queries use.
func Explain(c *models.Campaign, now time.Time) Result {
	result := Result{
		CampaignID:   c.ID,
		CurrentState: c.State(),
	}
	for _, r := range guard.MainFeedRules() {
		outcome := RuleOutcome{
			Rule:     r.Name,
			Field:    r.Field,
			Expected: r.Expected,
			Actual:   r.Actual(c),
		}
		if r.Passes(c, now) {
			result.PassingRules = append(result.PassingRules, outcome)
		} else {
			result.BlockingRules = append(result.BlockingRules, outcome)
		}
	}
	result.Eligible = len(result.BlockingRules) == 0
	result.FeedAssignments = assignFeeds(c, result.Eligible, now)
	result.Recommendations = recommend(c, result)
	return result
}

func assignFeeds(c *models.Campaign, eligible bool, now time.Time) FeedAssignments {
	if c.IsHidden || c.State() == models.StateHidden {
		return FeedAssignments{Hidden: true}
	}
	if eligible {
		return FeedAssignments{MainFeed: true}
	}
	servable := c.IsActive && c.ExpiresAt.After(now)
	switch {
	case servable && c.State() == models.StateLight && c.ShowInLightFeed:
		return FeedAssignments{LightFeed: true}
	case servable && c.State() == models.StateCategory && c.ShowInCategoryFeed:
		return FeedAssignments{CategoryFeed: true}
	case servable && c.State() == models.StateLow && c.ShowInLowFeed:
		return FeedAssignments{LowFeed: true}
	}
	return FeedAssignments{}
}

func recommend(c *models.Campaign, result Result) []string {
	var recs []string
	for _, blocked := range result.BlockingRules {
		switch blocked.Rule {
		case "active":
			recs = append(recs, "campaign is inactive; reactivation is owned by the content pipeline")
		case "not_expired":
			recs = append(recs, "campaign expired; a fresh scrape must renew it")
		case "not_hidden", "state":
			if c.State() == models.StateHidden || c.IsHidden {
				recs = append(recs, "campaign is hidden; reversal requires a super admin")
			} else {
				recs = append(recs, fmt.Sprintf("campaign was routed to the %s feed by an admin action; see the audit timeline", c.State()))
			}
		case "value_level":
			recs = append(recs, "campaign was classified low value; only the pipeline's quality checks restore it")
		}
	}
	return recs
}
