package visibility

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dealgrid/dealgrid/internal/guard"
	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
)

// fakeStore holds campaigns in memory and mimics the repository's mutate
// contract: the callback sees a snapshot copy, and only a successful return
// commits it.
type fakeStore struct {
	campaigns map[int64]*models.Campaign
	mutations int
}

func newFakeStore(cs ...*models.Campaign) *fakeStore {
	s := &fakeStore{campaigns: make(map[int64]*models.Campaign)}
	for _, c := range cs {
		s.campaigns[c.ID] = c
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*models.Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return nil, errors.ErrCampaignNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *fakeStore) Mutate(ctx context.Context, id int64, fn func(*models.Campaign) (*models.Campaign, error)) (*models.Campaign, *models.Campaign, error) {
	before, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	working := *before
	after, err := fn(&working)
	if err != nil {
		return nil, nil, err
	}
	s.campaigns[id] = after
	s.mutations++
	return before, after, nil
}

type fakeAuditor struct {
	events []*models.AuditEvent
}

func (a *fakeAuditor) Record(_ context.Context, e *models.AuditEvent) {
	a.events = append(a.events, e)
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateFeeds(context.Context) { f.calls++ }

func activeCampaign(id int64) *models.Campaign {
	return &models.Campaign{
		ID:         id,
		Slug:       "deal",
		SourceName: "shop-a",
		IsActive:   true,
		ExpiresAt:  time.Now().UTC().Add(24 * time.Hour),
	}
}

func newTestService(t *testing.T, store *fakeStore) (*Service, *fakeAuditor, *fakeInvalidator) {
	t.Helper()
	auditor := &fakeAuditor{}
	invalidator := &fakeInvalidator{}
	svc := NewService(zaptest.NewLogger(t), store, guard.NewGuards(guard.Strict, zaptest.NewLogger(t)), auditor, invalidator, nil, false)
	return svc, auditor, invalidator
}

func TestTransitionHide(t *testing.T) {
	store := newFakeStore(activeCampaign(1))
	svc, auditor, invalidator := newTestService(t, store)

	after, err := svc.Transition(context.Background(), TransitionRequest{
		CampaignID: 1,
		Target:     models.StateHidden,
		Reason:     "spam content",
		ActorID:    "admin-7",
		Role:       models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateHidden, after.State())
	assert.True(t, after.IsHidden)

	require.Len(t, auditor.events, 1)
	e := auditor.events[0]
	assert.Equal(t, models.ActionHide, e.Action)
	assert.Equal(t, "admin-7", e.ActorID)
	assert.Equal(t, "spam content", e.Reason)
	assert.Equal(t, "campaign", e.EntityType)
	assert.Equal(t, "1", e.EntityID)
	assert.Equal(t, "main", e.BeforeState["visibility_state"])
	assert.Equal(t, "hidden", e.AfterState["visibility_state"])
	assert.Equal(t, true, e.Metadata["requires_super_admin_to_reverse"])
	assert.Equal(t, 1, invalidator.calls)
}

func TestTransitionRequiresReason(t *testing.T) {
	store := newFakeStore(activeCampaign(1))
	svc, auditor, invalidator := newTestService(t, store)

	_, err := svc.Transition(context.Background(), TransitionRequest{
		CampaignID: 1,
		Target:     models.StateHidden,
		ActorID:    "admin-7",
		Role:       models.RoleAdmin,
	})
	assert.ErrorIs(t, err, errors.ErrReasonRequired)
	assert.Zero(t, store.mutations, "rejected transition must not commit")
	assert.Empty(t, auditor.events)
	assert.Zero(t, invalidator.calls)
}

func TestTransitionHiddenNeedsSuperAdmin(t *testing.T) {
	hidden := activeCampaign(1)
	state := models.StateHidden
	hidden.VisibilityState = &state
	hidden.IsHidden = true

	store := newFakeStore(hidden)
	svc, auditor, _ := newTestService(t, store)

	_, err := svc.Transition(context.Background(), TransitionRequest{
		CampaignID: 1,
		Target:     models.StateLight,
		Reason:     "restored after review",
		ActorID:    "admin-7",
		Role:       models.RoleAdmin,
	})
	assert.ErrorIs(t, err, errors.ErrElevatedRoleRequired)

	after, err := svc.Transition(context.Background(), TransitionRequest{
		CampaignID: 1,
		Target:     models.StateLight,
		Reason:     "restored after review",
		ActorID:    "root-1",
		Role:       models.RoleSuperAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StateLight, after.State())
	assert.False(t, after.IsHidden)
	assert.True(t, after.ShowInLightFeed)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, models.ActionUnhide, auditor.events[0].Action)
	assert.Equal(t, true, auditor.events[0].Metadata["requires_super_admin_to_reverse"])
}

func TestTransitionNeverUpgradesToMain(t *testing.T) {
	light := activeCampaign(1)
	state := models.StateLight
	light.VisibilityState = &state
	light.ShowInLightFeed = true

	store := newFakeStore(light)
	svc, _, _ := newTestService(t, store)

	_, err := svc.Transition(context.Background(), TransitionRequest{
		CampaignID: 1,
		Target:     models.StateMain,
		Reason:     "looks fine to me",
		ActorID:    "root-1",
		Role:       models.RoleSuperAdmin,
	})
	assert.ErrorIs(t, err, errors.ErrNoUpgradeToMain)
	assert.Zero(t, store.mutations)
}

func TestTransitionUnknownCampaign(t *testing.T) {
	svc, _, _ := newTestService(t, newFakeStore())
	_, err := svc.Transition(context.Background(), TransitionRequest{
		CampaignID: 99,
		Target:     models.StateHidden,
		Reason:     "spam",
		ActorID:    "admin-7",
		Role:       models.RoleAdmin,
	})
	assert.ErrorIs(t, err, errors.ErrCampaignNotFound)
}

func TestSetValueLevel(t *testing.T) {
	store := newFakeStore(activeCampaign(1))
	svc, auditor, _ := newTestService(t, store)

	_, err := svc.SetValueLevel(context.Background(), 1, models.ValueLow, "", "admin-7", models.RoleAdmin)
	assert.ErrorIs(t, err, errors.ErrReasonRequired)

	after, err := svc.SetValueLevel(context.Background(), 1, models.ValueLow, "stale pricing", "admin-7", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ValueLow, after.Value())

	require.Len(t, auditor.events, 1)
	assert.Equal(t, models.ActionDowngrade, auditor.events[0].Action)
	assert.Equal(t, "low", auditor.events[0].Metadata["value_level"])
}

func TestSetValueLevelRestoreChecksInvariant(t *testing.T) {
	expired := activeCampaign(1)
	expired.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	low := models.ValueLow
	expired.ValueLevel = &low

	svc, _, _ := newTestService(t, newFakeStore(expired))

	// Restoring high value would put an expired campaign back into the main
	// feed's claim; the safety gate rejects it.
	_, err := svc.SetValueLevel(context.Background(), 1, models.ValueHigh, "false positive", "admin-7", models.RoleAdmin)
	assert.ErrorIs(t, err, errors.ErrInvariantViolation)
}

func TestSetPinned(t *testing.T) {
	store := newFakeStore(activeCampaign(1))
	svc, auditor, _ := newTestService(t, store)

	// No reason needed for pin.
	after, err := svc.SetPinned(context.Background(), PinRequest{CampaignID: 1, Pinned: true, ActorID: "admin-7", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, after.IsPinned)

	after, err = svc.SetPinned(context.Background(), PinRequest{CampaignID: 1, Pinned: false, ActorID: "admin-7", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, after.IsPinned)

	require.Len(t, auditor.events, 2)
	assert.Equal(t, models.ActionPin, auditor.events[0].Action)
	assert.Equal(t, models.ActionUnpin, auditor.events[1].Action)
	assert.Empty(t, auditor.events[0].Reason)
}

func TestSetPinnedRejectsHidden(t *testing.T) {
	hidden := activeCampaign(1)
	state := models.StateHidden
	hidden.VisibilityState = &state
	hidden.IsHidden = true

	svc, _, _ := newTestService(t, newFakeStore(hidden))
	_, err := svc.SetPinned(context.Background(), PinRequest{CampaignID: 1, Pinned: true, ActorID: "admin-7", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, errors.ErrIllegalTransition)
}
