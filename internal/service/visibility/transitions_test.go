package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
)

func TestCheckTransitionNoUpgradeToMain(t *testing.T) {
	// No role, no origin state ever permits promotion into main.
	for _, from := range []models.VisibilityState{models.StateMain, models.StateLight, models.StateCategory, models.StateLow, models.StateHidden} {
		for _, role := range []models.Role{models.RoleAdmin, models.RoleSuperAdmin} {
			err := CheckTransition(from, models.StateMain, role)
			assert.ErrorIs(t, err, errors.ErrNoUpgradeToMain, "from %s as %s", from, role)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.VisibilityState
		to      models.VisibilityState
		role    models.Role
		wantErr error
	}{
		{"main to hidden", models.StateMain, models.StateHidden, models.RoleAdmin, nil},
		{"light to hidden", models.StateLight, models.StateHidden, models.RoleAdmin, nil},
		{"category to hidden", models.StateCategory, models.StateHidden, models.RoleAdmin, nil},
		{"low to hidden", models.StateLow, models.StateHidden, models.RoleAdmin, nil},
		{"lateral move is illegal", models.StateLight, models.StateCategory, models.RoleAdmin, errors.ErrIllegalTransition},
		{"lateral move is illegal even for super admin", models.StateLight, models.StateLow, models.RoleSuperAdmin, errors.ErrIllegalTransition},
		{"self transition is illegal", models.StateLight, models.StateLight, models.RoleAdmin, errors.ErrIllegalTransition},
		{"hidden self transition is illegal", models.StateHidden, models.StateHidden, models.RoleSuperAdmin, errors.ErrIllegalTransition},
		{"unknown target", models.StateMain, models.VisibilityState("archived"), models.RoleAdmin, errors.ErrIllegalTransition},
		{"admin cannot reverse hidden", models.StateHidden, models.StateLight, models.RoleAdmin, errors.ErrElevatedRoleRequired},
		{"super admin reverses hidden to light", models.StateHidden, models.StateLight, models.RoleSuperAdmin, nil},
		{"super admin reverses hidden to category", models.StateHidden, models.StateCategory, models.RoleSuperAdmin, nil},
		{"super admin reverses hidden to low", models.StateHidden, models.StateLow, models.RoleSuperAdmin, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to, tt.role)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestApplyStateSetsDiscriminators(t *testing.T) {
	tests := []struct {
		to       models.VisibilityState
		light    bool
		category bool
		low      bool
		hidden   bool
	}{
		{models.StateLight, true, false, false, false},
		{models.StateCategory, false, true, false, false},
		{models.StateLow, false, false, true, false},
		{models.StateHidden, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			c := &models.Campaign{IsPinned: true}
			applyState(c, tt.to)
			assert.Equal(t, tt.to, c.State())
			assert.Equal(t, tt.light, c.ShowInLightFeed)
			assert.Equal(t, tt.category, c.ShowInCategoryFeed)
			assert.Equal(t, tt.low, c.ShowInLowFeed)
			assert.Equal(t, tt.hidden, c.IsHidden)
			if tt.hidden {
				assert.False(t, c.IsPinned, "hiding must unpin")
			} else {
				assert.True(t, c.IsPinned)
			}
		})
	}
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, models.ActionHide, actionFor(models.StateMain, models.StateHidden))
	assert.Equal(t, models.ActionHide, actionFor(models.StateLight, models.StateHidden))
	assert.Equal(t, models.ActionUnhide, actionFor(models.StateHidden, models.StateLight))
	assert.Equal(t, models.ActionDowngrade, actionFor(models.StateMain, models.StateLow))
}
