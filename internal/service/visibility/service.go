package visibility

import (
	"context"
	"fmt"
	"time"

	"github.com/dealgrid/dealgrid/internal/guard"
	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/events"
	"github.com/dealgrid/dealgrid/pkg/metrics"
	"github.com/dealgrid/dealgrid/pkg/models"
	"go.uber.org/zap"
)

// CampaignStore is the transactional persistence surface for transitions.
type CampaignStore interface {
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
	Mutate(ctx context.Context, id int64, fn func(before *models.Campaign) (*models.Campaign, error)) (*models.Campaign, *models.Campaign, error)
}

// Auditor records admin state changes.
type Auditor interface {
	Record(ctx context.Context, e *models.AuditEvent)
}

// CacheInvalidator drops feed read caches after a committed transition.
type CacheInvalidator interface {
	InvalidateFeeds(ctx context.Context)
}

// TransitionRequest is one admin-issued state change.
type TransitionRequest struct {
	CampaignID int64
	Target     models.VisibilityState
	Reason     string
	ActorID    string
	Role       models.Role
}

// PinRequest toggles the pinned flag of a campaign.
type PinRequest struct {
	CampaignID int64
	Pinned     bool
	ActorID    string
	Role       models.Role
}

// Service applies visibility transitions atomically: legality check, state
// and flag update, safety gate, and audit, with per-campaign serialization
// through the store's row lock.
type Service struct {
	log          *zap.Logger
	store        CampaignStore
	guards       *guard.Guards
	auditor      Auditor
	cache        CacheInvalidator
	eventEmitter events.Emitter
	eventEnabled bool
}

// NewService creates the admin campaign service.
func NewService(log *zap.Logger, store CampaignStore, guards *guard.Guards, auditor Auditor, cache CacheInvalidator, eventEmitter events.Emitter, eventEnabled bool) *Service {
	return &Service{
		log:          log,
		store:        store,
		guards:       guards,
		auditor:      auditor,
		cache:        cache,
		eventEmitter: eventEmitter,
		eventEnabled: eventEnabled,
	}
}

// Transition moves a campaign to the requested visibility state. The whole
// read-validate-write sequence runs inside one transaction; the safety gate is
// the final check before commit. The audit record is written after commit so
// an audit failure can be surfaced without blocking the governing action.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*models.Campaign, error) {
	now := time.Now().UTC()
	var action models.AuditAction

	before, after, err := s.store.Mutate(ctx, req.CampaignID, func(c *models.Campaign) (*models.Campaign, error) {
		from := c.State()
		if err := CheckTransition(from, req.Target, req.Role); err != nil {
			return nil, err
		}
		action = actionFor(from, req.Target)
		if action.RequiresReason() && req.Reason == "" {
			return nil, fmt.Errorf("%w: %s", errors.ErrReasonRequired, action)
		}
		applyState(c, req.Target)
		if err := s.guards.AssertTransitionSafe(c, action, now); err != nil {
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		if action == "" {
			action = "transition"
		}
		metrics.TransitionsTotal.WithLabelValues(string(action), "rejected").Inc()
		s.log.Warn("Visibility transition rejected",
			zap.Int64("campaign_id", req.CampaignID),
			zap.String("target", string(req.Target)),
			zap.String("actor", req.ActorID),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.TransitionsTotal.WithLabelValues(string(action), "committed").Inc()
	metadata := map[string]interface{}{
		"role":       string(req.Role),
		"transition": fmt.Sprintf("%s->%s", before.State(), after.State()),
	}
	if action == models.ActionHide || action == models.ActionUnhide {
		metadata["requires_super_admin_to_reverse"] = true
	}
	s.audit(ctx, req.ActorID, req.Role, action, before, after, req.Reason, metadata)
	s.afterCommit(ctx, "campaign.visibility_changed", after)
	return after, nil
}

// SetValueLevel downgrades or restores the value classification of a
// campaign, typically as the execution of an applied auto_low_value
// suggestion. A reason is mandatory.
func (s *Service) SetValueLevel(ctx context.Context, campaignID int64, level models.ValueLevel, reason, actorID string, role models.Role) (*models.Campaign, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: %s", errors.ErrReasonRequired, models.ActionDowngrade)
	}
	now := time.Now().UTC()
	before, after, err := s.store.Mutate(ctx, campaignID, func(c *models.Campaign) (*models.Campaign, error) {
		l := level
		c.ValueLevel = &l
		if err := s.guards.AssertTransitionSafe(c, models.ActionDowngrade, now); err != nil {
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(models.ActionDowngrade), "rejected").Inc()
		return nil, err
	}
	metrics.TransitionsTotal.WithLabelValues(string(models.ActionDowngrade), "committed").Inc()
	s.audit(ctx, actorID, role, models.ActionDowngrade, before, after, reason, map[string]interface{}{
		"role":        string(role),
		"value_level": string(level),
	})
	s.afterCommit(ctx, "campaign.value_level_changed", after)
	return after, nil
}

// SetPinned toggles the pinned flag. Pinning is cosmetic, so no reason is
// required, but it is still audited.
func (s *Service) SetPinned(ctx context.Context, req PinRequest) (*models.Campaign, error) {
	action := models.ActionPin
	if !req.Pinned {
		action = models.ActionUnpin
	}
	now := time.Now().UTC()
	before, after, err := s.store.Mutate(ctx, req.CampaignID, func(c *models.Campaign) (*models.Campaign, error) {
		if req.Pinned && c.State() == models.StateHidden {
			return nil, fmt.Errorf("%w: cannot pin a hidden campaign", errors.ErrIllegalTransition)
		}
		c.IsPinned = req.Pinned
		if err := s.guards.AssertTransitionSafe(c, action, now); err != nil {
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(action), "rejected").Inc()
		return nil, err
	}
	metrics.TransitionsTotal.WithLabelValues(string(action), "committed").Inc()
	s.audit(ctx, req.ActorID, req.Role, action, before, after, "", map[string]interface{}{
		"role": string(req.Role),
	})
	s.afterCommit(ctx, "campaign.pin_changed", after)
	return after, nil
}

func (s *Service) audit(ctx context.Context, actorID string, role models.Role, action models.AuditAction, before, after *models.Campaign, reason string, metadata map[string]interface{}) {
	s.auditor.Record(ctx, &models.AuditEvent{
		ActorID:     actorID,
		ActorRole:   role,
		Action:      action,
		EntityType:  "campaign",
		EntityID:    fmt.Sprintf("%d", before.ID),
		BeforeState: governanceSnapshot(before),
		AfterState:  governanceSnapshot(after),
		Reason:      reason,
		Metadata:    metadata,
	})
}

func (s *Service) afterCommit(ctx context.Context, eventType string, c *models.Campaign) {
	if s.cache != nil {
		s.cache.InvalidateFeeds(ctx)
	}
	if s.eventEnabled {
		events.EmitEventWithLogging(ctx, s.eventEmitter, s.log, eventType, fmt.Sprintf("%d", c.ID),
			map[string]interface{}{"state": string(c.State())})
	}
}

// governanceSnapshot captures the audit-relevant fields of a campaign.
func governanceSnapshot(c *models.Campaign) map[string]interface{} {
	return map[string]interface{}{
		"visibility_state":      string(c.State()),
		"value_level":           string(c.Value()),
		"is_hidden":             c.IsHidden,
		"is_pinned":             c.IsPinned,
		"is_active":             c.IsActive,
		"show_in_light_feed":    c.ShowInLightFeed,
		"show_in_category_feed": c.ShowInCategoryFeed,
		"show_in_low_feed":      c.ShowInLowFeed,
		"expires_at":            c.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
