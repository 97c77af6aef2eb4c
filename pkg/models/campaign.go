package models

import "time"

// VisibilityState is the admin-governed visibility class of a campaign.
// The zero value (StateMain) is the default feed placement; campaigns coming
// out of the content pipeline carry no explicit state at all.
type VisibilityState string

const (
	StateMain     VisibilityState = "main"
	StateLight    VisibilityState = "light"
	StateCategory VisibilityState = "category"
	StateLow      VisibilityState = "low"
	StateHidden   VisibilityState = "hidden"
)

// Valid reports whether s is a known visibility state.
func (s VisibilityState) Valid() bool {
	switch s {
	case StateMain, StateLight, StateCategory, StateLow, StateHidden:
		return true
	}
	return false
}

// ValueLevel classifies the deal quality of a campaign. Like VisibilityState,
// absence means the default (high).
type ValueLevel string

const (
	ValueHigh ValueLevel = "high"
	ValueLow  ValueLevel = "low"
)

// Role is the minimal admin role model of the governance core. Verification of
// who holds which role is the auth collaborator's job; the core only checks
// that the verified role is sufficient for an operation.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// CanReverseHidden reports whether the role may move a campaign out of hidden.
func (r Role) CanReverseHidden() bool {
	return r == RoleSuperAdmin
}

// Campaign carries the governance-relevant attributes of a discount campaign.
// Creation and content fields are owned by the aggregation pipeline; this core
// reads, validates, and mutates only visibility and feed routing.
type Campaign struct {
	ID         int64  `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	SourceName string `json:"source_name"`

	// Nil means the default: main placement, high value.
	VisibilityState *VisibilityState `json:"visibility_state"`
	ValueLevel      *ValueLevel      `json:"value_level"`

	IsHidden bool `json:"is_hidden"`
	IsPinned bool `json:"is_pinned"`
	IsActive bool `json:"is_active"`

	// Feed discriminator flags routing the campaign into secondary feeds.
	ShowInLightFeed    bool `json:"show_in_light_feed"`
	ShowInCategoryFeed bool `json:"show_in_category_feed"`
	ShowInLowFeed      bool `json:"show_in_low_feed"`

	ConfidenceScore int `json:"confidence_score"`

	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State resolves the effective visibility state, treating nil as main.
func (c *Campaign) State() VisibilityState {
	if c.VisibilityState == nil {
		return StateMain
	}
	return *c.VisibilityState
}

// Value resolves the effective value level, treating nil as high.
func (c *Campaign) Value() ValueLevel {
	if c.ValueLevel == nil {
		return ValueHigh
	}
	return *c.ValueLevel
}

// FeedKind names one of the serveable feeds.
type FeedKind string

const (
	FeedMain     FeedKind = "main"
	FeedLight    FeedKind = "light"
	FeedCategory FeedKind = "category"
	FeedLow      FeedKind = "low"
)
