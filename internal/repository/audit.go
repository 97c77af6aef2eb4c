package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pkgerrors "github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
	"go.uber.org/zap"
)

// AuditRepository persists immutable audit events. The public contract is
// append and query only; no update or delete statement exists here or
// anywhere else in the repo.
type AuditRepository struct {
	*BaseRepository
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(db *sql.DB, log *zap.Logger) *AuditRepository {
	return &AuditRepository{BaseRepository: NewBaseRepository(db, log)}
}

// Append writes one audit event. Duplicate event IDs are ignored so retried
// transitions do not double-log.
func (r *AuditRepository) Append(ctx context.Context, e *models.AuditEvent) (*models.AuditEvent, error) {
	beforeJSON, err := ToJSONB(e.BeforeState)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to marshal before state")
	}
	afterJSON, err := ToJSONB(e.AfterState)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to marshal after state")
	}
	metadataJSON, err := ToJSONB(e.Metadata)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to marshal metadata")
	}
	row := r.GetDB().QueryRowContext(ctx, `
		INSERT INTO service_audit_event (
			event_id, actor_id, actor_role, action, entity_type, entity_id,
			before_state, after_state, reason, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING id, created_at
	`, e.EventID, e.ActorID, string(e.ActorRole), string(e.Action), e.EntityType, e.EntityID,
		beforeJSON, afterJSON, e.Reason, metadataJSON)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			// Conflict path: the event was already recorded.
			return e, nil
		}
		return nil, err
	}
	return e, nil
}

// Query returns audit events matching the filter, most recent first.
func (r *AuditRepository) Query(ctx context.Context, f models.AuditFilter) ([]*models.AuditEvent, int, error) {
	conds := []string{"TRUE"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(f.ActorID))
	}
	if f.Action != "" {
		conds = append(conds, "action = "+arg(string(f.Action)))
	}
	if f.EntityType != "" {
		conds = append(conds, "entity_type = "+arg(f.EntityType))
	}
	if f.EntityID != "" {
		conds = append(conds, "entity_id = "+arg(f.EntityID))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.GetDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM service_audit_event WHERE "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	query := fmt.Sprintf(`
		SELECT id, event_id, actor_id, actor_role, action, entity_type, entity_id,
			before_state, after_state, reason, metadata, created_at
		FROM service_audit_event
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT %s OFFSET %s
	`, where, arg(pageSize), arg((page-1)*pageSize))
	rows, err := r.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var role, action string
		var beforeJSON, afterJSON, metadataJSON []byte
		if err := rows.Scan(
			&e.ID, &e.EventID, &e.ActorID, &role, &action, &e.EntityType, &e.EntityID,
			&beforeJSON, &afterJSON, &e.Reason, &metadataJSON, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		e.ActorRole = models.Role(role)
		e.Action = models.AuditAction(action)
		if e.BeforeState, err = FromJSONB(beforeJSON); err != nil {
			return nil, 0, err
		}
		if e.AfterState, err = FromJSONB(afterJSON); err != nil {
			return nil, 0, err
		}
		if e.Metadata, err = FromJSONB(metadataJSON); err != nil {
			return nil, 0, err
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
