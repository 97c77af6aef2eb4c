// Package audit records every admin-initiated state change as an immutable
// fact. The contract is append and query only; corrections are new records.
package audit

import (
	"context"

	"github.com/dealgrid/dealgrid/pkg/metrics"
	"github.com/dealgrid/dealgrid/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository is the persistence surface for audit events.
type Repository interface {
	Append(ctx context.Context, e *models.AuditEvent) (*models.AuditEvent, error)
	Query(ctx context.Context, f models.AuditFilter) ([]*models.AuditEvent, int, error)
}

// Service wraps the append-only audit log.
type Service struct {
	log  *zap.Logger
	repo Repository
}

// NewService creates the audit service.
func NewService(log *zap.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Append writes one audit event, assigning its event ID.
func (s *Service) Append(ctx context.Context, e *models.AuditEvent) (*models.AuditEvent, error) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	return s.repo.Append(ctx, e)
}

// Record appends an audit event and absorbs any failure. This is the one
// place a log-only failure mode is acceptable: losing an audit row must not
// abort the governing action that produced it, but the loss is always
// surfaced to operators through the log and the failure counter.
func (s *Service) Record(ctx context.Context, e *models.AuditEvent) {
	if _, err := s.Append(ctx, e); err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		s.log.Error("Audit append failed",
			zap.String("actor_id", e.ActorID),
			zap.String("action", string(e.Action)),
			zap.String("entity_id", e.EntityID),
			zap.Error(err),
		)
	}
}

// Query returns the audit timeline matching the filter, most recent first.
func (s *Service) Query(ctx context.Context, f models.AuditFilter) ([]*models.AuditEvent, int, error) {
	return s.repo.Query(ctx, f)
}
