package guard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/dealgrid/pkg/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func eligibleCampaign() *models.Campaign {
	return &models.Campaign{
		ID:        1,
		Slug:      "spring-sale",
		IsActive:  true,
		ExpiresAt: testNow.Add(24 * time.Hour),
	}
}

func TestEligible(t *testing.T) {
	stateLight := models.StateLight
	stateMain := models.StateMain
	valueLow := models.ValueLow
	valueHigh := models.ValueHigh

	tests := []struct {
		name   string
		mutate func(c *models.Campaign)
		want   bool
	}{
		{"defaults are eligible", func(c *models.Campaign) {}, true},
		{"explicit main state is eligible", func(c *models.Campaign) { c.VisibilityState = &stateMain }, true},
		{"explicit high value is eligible", func(c *models.Campaign) { c.ValueLevel = &valueHigh }, true},
		{"inactive", func(c *models.Campaign) { c.IsActive = false }, false},
		{"expired", func(c *models.Campaign) { c.ExpiresAt = testNow.Add(-time.Minute) }, false},
		{"expiring exactly now", func(c *models.Campaign) { c.ExpiresAt = testNow }, false},
		{"hidden flag", func(c *models.Campaign) { c.IsHidden = true }, false},
		{"non-main state", func(c *models.Campaign) { c.VisibilityState = &stateLight }, false},
		{"low value", func(c *models.Campaign) { c.ValueLevel = &valueLow }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := eligibleCampaign()
			tt.mutate(c)
			assert.Equal(t, tt.want, Eligible(c, testNow))
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	stateLow := models.StateLow
	c := eligibleCampaign()
	c.IsActive = false
	c.IsHidden = true
	c.VisibilityState = &stateLow

	report := Validate([]*models.Campaign{c, eligibleCampaign()}, testNow)
	require.False(t, report.Valid)
	require.Len(t, report.Violations, 3)

	rules := make([]string, 0, len(report.Violations))
	for _, v := range report.Violations {
		assert.Equal(t, int64(1), v.CampaignID)
		rules = append(rules, v.Rule)
	}
	assert.Equal(t, []string{"active", "not_hidden", "state"}, rules)
}

func TestValidateCleanBatch(t *testing.T) {
	report := Validate([]*models.Campaign{eligibleCampaign(), eligibleCampaign()}, testNow)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Violations)
}

func TestViolationString(t *testing.T) {
	v := Violation{CampaignID: 7, Rule: "state", Field: "visibility_state", Expected: "main or unset", Actual: "light"}
	assert.Equal(t, "campaign 7: visibility_state must be main or unset, got light", v.String())
}

// The SQL rendering and the in-memory predicate are two views of the same
// rules; the query must mention every field the predicate checks.
func TestMainFeedWhereCoversEveryRule(t *testing.T) {
	where := MainFeedWhere()
	for _, r := range MainFeedRules() {
		assert.Contains(t, where, r.SQL)
	}
	assert.Equal(t, len(MainFeedRules())-1, strings.Count(where, " AND "))
}
