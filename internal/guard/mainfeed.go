// Package guard defines the primary-feed eligibility invariant and the runtime
// safety assertions built on top of it. Every layer that needs to know whether
// a campaign belongs in the main feed (the feed query, the transition safety
// gate, the explain service) derives the answer from this package; the
// predicate is defined exactly once.
package guard

import (
	"fmt"
	"strings"
	"time"

	"github.com/dealgrid/dealgrid/pkg/models"
)

// Rule is one conjunct of the main feed invariant. Passes evaluates it on an
// in-memory campaign; SQL is the equivalent condition the query layer embeds,
// so query-time and audit-time checks can never drift apart.
type Rule struct {
	Name     string
	Field    string
	Expected string
	SQL      string
	Passes   func(c *models.Campaign, now time.Time) bool
	Actual   func(c *models.Campaign) string
}

// MainFeedRules returns the invariant conjuncts, in evaluation order.
func MainFeedRules() []Rule {
	return []Rule{
		{
			Name:     "active",
			Field:    "is_active",
			Expected: "true",
			SQL:      "is_active = TRUE",
			Passes:   func(c *models.Campaign, _ time.Time) bool { return c.IsActive },
			Actual:   func(c *models.Campaign) string { return fmt.Sprintf("%t", c.IsActive) },
		},
		{
			Name:     "not_expired",
			Field:    "expires_at",
			Expected: "> now",
			SQL:      "expires_at > now()",
			Passes:   func(c *models.Campaign, now time.Time) bool { return c.ExpiresAt.After(now) },
			Actual:   func(c *models.Campaign) string { return c.ExpiresAt.UTC().Format(time.RFC3339) },
		},
		{
			Name:     "not_hidden",
			Field:    "is_hidden",
			Expected: "false",
			SQL:      "is_hidden = FALSE",
			Passes:   func(c *models.Campaign, _ time.Time) bool { return !c.IsHidden },
			Actual:   func(c *models.Campaign) string { return fmt.Sprintf("%t", c.IsHidden) },
		},
		{
			Name:     "state",
			Field:    "visibility_state",
			Expected: "main or unset",
			SQL:      "(visibility_state IS NULL OR visibility_state = 'main')",
			Passes: func(c *models.Campaign, _ time.Time) bool {
				return c.State() == models.StateMain
			},
			Actual: func(c *models.Campaign) string { return string(c.State()) },
		},
		{
			Name:     "value_level",
			Field:    "value_level",
			Expected: "high or unset",
			SQL:      "(value_level IS NULL OR value_level = 'high')",
			Passes: func(c *models.Campaign, _ time.Time) bool {
				return c.Value() == models.ValueHigh
			},
			Actual: func(c *models.Campaign) string { return string(c.Value()) },
		},
	}
}

// MainFeedWhere renders the invariant as a SQL conjunction for the feed query.
func MainFeedWhere() string {
	rules := MainFeedRules()
	conds := make([]string, 0, len(rules))
	for _, r := range rules {
		conds = append(conds, r.SQL)
	}
	return strings.Join(conds, " AND ")
}

// Eligible reports whether the campaign may appear in the main feed.
func Eligible(c *models.Campaign, now time.Time) bool {
	for _, r := range MainFeedRules() {
		if !r.Passes(c, now) {
			return false
		}
	}
	return true
}

// Violation describes one failed invariant conjunct on one campaign.
type Violation struct {
	CampaignID int64  `json:"campaign_id"`
	Rule       string `json:"rule"`
	Field      string `json:"field"`
	Expected   string `json:"expected"`
	Actual     string `json:"actual"`
}

func (v Violation) String() string {
	return fmt.Sprintf("campaign %d: %s must be %s, got %s", v.CampaignID, v.Field, v.Expected, v.Actual)
}

// Report is the outcome of validating a batch of campaigns.
type Report struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"errors"`
}

// Validate explains every invariant violation per campaign.
func Validate(items []*models.Campaign, now time.Time) Report {
	report := Report{Valid: true}
	for _, c := range items {
		for _, r := range MainFeedRules() {
			if !r.Passes(c, now) {
				report.Valid = false
				report.Violations = append(report.Violations, Violation{
					CampaignID: c.ID,
					Rule:       r.Name,
					Field:      r.Field,
					Expected:   r.Expected,
					Actual:     r.Actual(c),
				})
			}
		}
	}
	return report
}
