// Package visibility is the admin campaign service: it enforces the legal
// transitions between campaign visibility states and drives the feed flag
// side effects of each transition. Promotion into the main feed is never one
// of them; campaigns reach the main feed only through the content pipeline's
// quality checks, so there is no admin code path that upgrades visibility.
package visibility

import (
	"fmt"

	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
)

// CheckTransition validates one requested state change against the machine's
// rules. Returned errors carry the specific rule so the admin surface can
// render an actionable rejection, not a generic failure.
func CheckTransition(from, to models.VisibilityState, role models.Role) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown target state %q", errors.ErrIllegalTransition, to)
	}
	if to == models.StateMain {
		return fmt.Errorf("%w: %s -> %s", errors.ErrNoUpgradeToMain, from, to)
	}
	if from == to {
		return fmt.Errorf("%w: campaign already in state %s", errors.ErrIllegalTransition, from)
	}
	if from == models.StateHidden {
		if !role.CanReverseHidden() {
			return fmt.Errorf("%w: %s -> %s", errors.ErrElevatedRoleRequired, from, to)
		}
		return nil
	}
	// From any visible state the only legal move is into hidden.
	if to != models.StateHidden {
		return fmt.Errorf("%w: %s -> %s (only hiding is allowed from a visible state)", errors.ErrIllegalTransition, from, to)
	}
	return nil
}

// applyState writes the target state and the feed discriminator flags that
// must accompany it, keeping state and routing consistent in one place.
func applyState(c *models.Campaign, to models.VisibilityState) {
	state := to
	c.VisibilityState = &state
	c.IsHidden = to == models.StateHidden
	c.ShowInLightFeed = to == models.StateLight
	c.ShowInCategoryFeed = to == models.StateCategory
	c.ShowInLowFeed = to == models.StateLow
	if to == models.StateHidden {
		// A hidden campaign is never pinned anywhere.
		c.IsPinned = false
	}
}

// actionFor labels the audit action of a transition.
func actionFor(from, to models.VisibilityState) models.AuditAction {
	switch {
	case to == models.StateHidden:
		return models.ActionHide
	case from == models.StateHidden:
		return models.ActionUnhide
	default:
		return models.ActionDowngrade
	}
}
