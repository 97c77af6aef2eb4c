package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
	"go.uber.org/zap"
)

const suggestionColumns = `suggestion_id, scope, target_id, suggested_action, confidence,
	reason, signals, run_id, created_at, expires_at, applied_at, rejected_at, executed_at`

// SuggestionRepository persists engine-generated suggestions and their
// review lifecycle.
type SuggestionRepository struct {
	*BaseRepository
}

// NewSuggestionRepository creates a suggestion repository.
func NewSuggestionRepository(db *sql.DB, log *zap.Logger) *SuggestionRepository {
	return &SuggestionRepository{BaseRepository: NewBaseRepository(db, log)}
}

// Insert stores a batch of generated suggestions. Re-running the engine for
// the same run is idempotent: deterministic IDs conflict and are skipped.
func (r *SuggestionRepository) Insert(ctx context.Context, suggestions []*models.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	for _, s := range suggestions {
		signalsJSON, err := ToJSONB(s.Signals)
		if err != nil {
			if rbErr := r.RollbackTx(ctx, tx); rbErr != nil {
				r.GetLogger().Error("rollback failed", zap.Error(rbErr))
			}
			return pkgerrors.Wrap(err, "failed to marshal signals")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO service_suggestion (
				suggestion_id, scope, target_id, suggested_action, confidence,
				reason, signals, run_id, created_at, expires_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (suggestion_id) DO NOTHING
		`, s.SuggestionID, string(s.Scope), s.TargetID, string(s.Action), s.Confidence,
			string(s.Reason), signalsJSON, s.RunID, s.CreatedAt, s.ExpiresAt)
		if err != nil {
			if rbErr := r.RollbackTx(ctx, tx); rbErr != nil {
				r.GetLogger().Error("rollback failed", zap.Error(rbErr))
			}
			return err
		}
	}
	return r.CommitTx(ctx, tx)
}

// GetByID fetches one suggestion.
func (r *SuggestionRepository) GetByID(ctx context.Context, id string) (*models.Suggestion, error) {
	row := r.GetDB().QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM service_suggestion WHERE suggestion_id = $1
	`, suggestionColumns), id)
	return scanSuggestion(row)
}

// stateCondition renders the SQL predicate for one lifecycle state. The
// state is derived from the terminal timestamps and expiry, never stored. An
// empty state means no lifecycle filter at all.
func stateCondition(state models.SuggestionState) (string, error) {
	switch state {
	case "":
		return "TRUE", nil
	case models.SuggestionNew:
		return "applied_at IS NULL AND rejected_at IS NULL AND expires_at > now()", nil
	case models.SuggestionApplied:
		return "applied_at IS NOT NULL AND executed_at IS NULL", nil
	case models.SuggestionRejected:
		return "rejected_at IS NOT NULL", nil
	case models.SuggestionExpired:
		return "applied_at IS NULL AND rejected_at IS NULL AND expires_at <= now()", nil
	case models.SuggestionExecuted:
		return "executed_at IS NOT NULL", nil
	default:
		return "", fmt.Errorf("unknown suggestion state %q", state)
	}
}

// List returns suggestions in the given lifecycle state, newest first. An
// empty state lists across all lifecycle states.
func (r *SuggestionRepository) List(ctx context.Context, state models.SuggestionState, limit, offset int) ([]*models.Suggestion, error) {
	cond, err := stateCondition(state)
	if err != nil {
		return nil, err
	}
	rows, err := r.GetDB().QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM service_suggestion
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, suggestionColumns, cond), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []*models.Suggestion
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// MarkApplied sets applied_at for a still-open, unexpired suggestion.
func (r *SuggestionRepository) MarkApplied(ctx context.Context, id string, at time.Time) error {
	return r.terminate(ctx, id, "applied_at", at)
}

// MarkRejected sets rejected_at for a still-open, unexpired suggestion.
func (r *SuggestionRepository) MarkRejected(ctx context.Context, id string, at time.Time) error {
	return r.terminate(ctx, id, "rejected_at", at)
}

// MarkExecuted records the side-effecting action. It requires applied_at to be
// set already; execution never precedes application.
func (r *SuggestionRepository) MarkExecuted(ctx context.Context, id string, at time.Time) error {
	result, err := r.GetDB().ExecContext(ctx, `
		UPDATE service_suggestion
		SET executed_at = $1
		WHERE suggestion_id = $2 AND applied_at IS NOT NULL AND executed_at IS NULL
	`, at, id)
	if err != nil {
		return err
	}
	count, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return r.classifyExecuteFailure(ctx, id)
	}
	return nil
}

func (r *SuggestionRepository) terminate(ctx context.Context, id, column string, at time.Time) error {
	result, err := r.GetDB().ExecContext(ctx, fmt.Sprintf(`
		UPDATE service_suggestion
		SET %s = $1
		WHERE suggestion_id = $2 AND applied_at IS NULL AND rejected_at IS NULL
			AND expires_at > $1
	`, column), at, id)
	if err != nil {
		return err
	}
	count, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return r.classifyTerminateFailure(ctx, id, at)
	}
	return nil
}

func (r *SuggestionRepository) classifyTerminateFailure(ctx context.Context, id string, at time.Time) error {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.AppliedAt != nil || s.RejectedAt != nil {
		return pkgerrors.ErrSuggestionTerminal
	}
	if !at.Before(s.ExpiresAt) {
		return pkgerrors.ErrSuggestionExpired
	}
	return pkgerrors.ErrSuggestionNotFound
}

func (r *SuggestionRepository) classifyExecuteFailure(ctx context.Context, id string) error {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.ExecutedAt != nil {
		return pkgerrors.ErrSuggestionTerminal
	}
	return pkgerrors.ErrSuggestionNotApplied
}

// CountExpiredUnreviewed returns how many suggestions lapsed without review.
// The sweeper reports this; nothing is mutated, expiry is derived state.
func (r *SuggestionRepository) CountExpiredUnreviewed(ctx context.Context) (int, error) {
	var count int
	err := r.GetDB().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM service_suggestion
		WHERE applied_at IS NULL AND rejected_at IS NULL AND expires_at <= now()
	`).Scan(&count)
	return count, err
}

func scanSuggestion(row rowScanner) (*models.Suggestion, error) {
	var s models.Suggestion
	var scope, action, reason string
	var signalsJSON []byte
	var appliedAt, rejectedAt, executedAt sql.NullTime
	err := row.Scan(
		&s.SuggestionID, &scope, &s.TargetID, &action, &s.Confidence,
		&reason, &signalsJSON, &s.RunID, &s.CreatedAt, &s.ExpiresAt,
		&appliedAt, &rejectedAt, &executedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkgerrors.ErrSuggestionNotFound
		}
		return nil, err
	}
	s.Scope = models.SuggestionScope(scope)
	s.Action = models.SuggestedAction(action)
	s.Reason = models.SuggestionReason(reason)
	if s.Signals, err = FromJSONB(signalsJSON); err != nil {
		return nil, err
	}
	if appliedAt.Valid {
		s.AppliedAt = &appliedAt.Time
	}
	if rejectedAt.Valid {
		s.RejectedAt = &rejectedAt.Time
	}
	if executedAt.Valid {
		s.ExecutedAt = &executedAt.Time
	}
	return &s, nil
}
