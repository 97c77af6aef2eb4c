package suggestion

import (
	"context"
	"time"

	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/events"
	"github.com/dealgrid/dealgrid/pkg/models"
	"go.uber.org/zap"
)

// Repository is the persistence surface the lifecycle service needs.
type Repository interface {
	Insert(ctx context.Context, suggestions []*models.Suggestion) error
	GetByID(ctx context.Context, id string) (*models.Suggestion, error)
	List(ctx context.Context, state models.SuggestionState, limit, offset int) ([]*models.Suggestion, error)
	MarkApplied(ctx context.Context, id string, at time.Time) error
	MarkRejected(ctx context.Context, id string, at time.Time) error
	MarkExecuted(ctx context.Context, id string, at time.Time) error
	CountExpiredUnreviewed(ctx context.Context) (int, error)
}

// Service owns suggestion persistence and review lifecycle. It never touches
// campaign visibility itself; applying a suggestion is a statement of admin
// intent, and the concrete side effect is a separate visibility transition
// recorded as executed afterwards.
type Service struct {
	log          *zap.Logger
	engine       *Engine
	repo         Repository
	eventEmitter events.Emitter
	eventEnabled bool
}

// NewService creates the suggestion service.
func NewService(log *zap.Logger, engine *Engine, repo Repository, eventEmitter events.Emitter, eventEnabled bool) *Service {
	return &Service{
		log:          log,
		engine:       engine,
		repo:         repo,
		eventEmitter: eventEmitter,
		eventEnabled: eventEnabled,
	}
}

// GenerateAndStore runs the engine over one run's telemetry and persists the
// result. Regeneration for the same run is idempotent.
func (s *Service) GenerateAndStore(ctx context.Context, in Inputs) ([]*models.Suggestion, error) {
	suggestions := s.engine.Generate(in)
	if err := s.repo.Insert(ctx, suggestions); err != nil {
		return nil, errors.LogWithError(ctx, s.log, "Failed to persist suggestions", err,
			zap.String("run_id", in.RunID), zap.Int("count", len(suggestions)))
	}
	if s.eventEnabled {
		events.EmitEventWithLogging(ctx, s.eventEmitter, s.log, "suggestion.generated", in.RunID,
			map[string]interface{}{"count": len(suggestions)})
	}
	return suggestions, nil
}

// List returns suggestions in the given lifecycle state for a review
// surface. An empty state lists across all lifecycle states.
func (s *Service) List(ctx context.Context, state models.SuggestionState, page, pageSize int) ([]*models.Suggestion, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.repo.List(ctx, state, pageSize, (page-1)*pageSize)
}

// Apply marks a suggestion as accepted by a reviewer.
func (s *Service) Apply(ctx context.Context, id string) error {
	if err := s.repo.MarkApplied(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	if s.eventEnabled {
		events.EmitEventWithLogging(ctx, s.eventEmitter, s.log, "suggestion.applied", id, nil)
	}
	return nil
}

// Reject marks a suggestion as declined by a reviewer.
func (s *Service) Reject(ctx context.Context, id string) error {
	if err := s.repo.MarkRejected(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	if s.eventEnabled {
		events.EmitEventWithLogging(ctx, s.eventEmitter, s.log, "suggestion.rejected", id, nil)
	}
	return nil
}

// MarkExecuted records that the applied suggestion's side effect happened.
// Execution without prior application is rejected by the repository.
func (s *Service) MarkExecuted(ctx context.Context, id string) error {
	if err := s.repo.MarkExecuted(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	if s.eventEnabled {
		events.EmitEventWithLogging(ctx, s.eventEmitter, s.log, "suggestion.executed", id, nil)
	}
	return nil
}
