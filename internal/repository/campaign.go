package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dealgrid/dealgrid/internal/guard"
	pkgerrors "github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/models"
	"go.uber.org/zap"
)

const campaignColumns = `id, slug, title, source_name, visibility_state, value_level,
	is_hidden, is_pinned, is_active, show_in_light_feed, show_in_category_feed,
	show_in_low_feed, confidence_score, expires_at, created_at, updated_at`

// CampaignRepository reads campaigns and mutates their visibility fields.
// Content lifecycle (creation, pricing, copy) is owned by the aggregation
// pipeline; this repository only touches governance columns.
type CampaignRepository struct {
	*BaseRepository
}

// NewCampaignRepository creates a campaign repository.
func NewCampaignRepository(db *sql.DB, log *zap.Logger) *CampaignRepository {
	return &CampaignRepository{BaseRepository: NewBaseRepository(db, log)}
}

// GetByID fetches one campaign.
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*models.Campaign, error) {
	row := r.GetDB().QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM service_campaign_main WHERE id = $1
	`, campaignColumns), id)
	return scanCampaign(row)
}

// GetForUpdate fetches one campaign inside tx and takes its row lock, so
// concurrent transitions on the same campaign serialize.
func (r *CampaignRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Campaign, error) {
	row := tx.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM service_campaign_main WHERE id = $1 FOR UPDATE
	`, campaignColumns), id)
	return scanCampaign(row)
}

// UpdateVisibilityTx writes the governance fields of c inside tx.
func (r *CampaignRepository) UpdateVisibilityTx(ctx context.Context, tx *sql.Tx, c *models.Campaign) error {
	var state, value interface{}
	if c.VisibilityState != nil {
		state = string(*c.VisibilityState)
	}
	if c.ValueLevel != nil {
		value = string(*c.ValueLevel)
	}
	result, err := tx.ExecContext(ctx, `
		UPDATE service_campaign_main
		SET visibility_state = $1, value_level = $2, is_hidden = $3, is_pinned = $4,
			show_in_light_feed = $5, show_in_category_feed = $6, show_in_low_feed = $7,
			updated_at = now()
		WHERE id = $8
	`, state, value, c.IsHidden, c.IsPinned,
		c.ShowInLightFeed, c.ShowInCategoryFeed, c.ShowInLowFeed, c.ID)
	if err != nil {
		return err
	}
	count, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return pkgerrors.ErrCampaignNotFound
	}
	return nil
}

// Mutate runs a read-validate-write cycle on one campaign inside a single
// transaction, holding the row lock throughout so concurrent transitions on
// the same campaign serialize. fn receives a copy of the current row and
// returns the mutated campaign; any error rolls the whole transaction back
// and the losing writer sees a consistent rejection.
func (r *CampaignRepository) Mutate(ctx context.Context, id int64, fn func(before *models.Campaign) (*models.Campaign, error)) (*models.Campaign, *models.Campaign, error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return nil, nil, err
	}
	before, err := r.GetForUpdate(ctx, tx, id)
	if err != nil {
		r.rollback(ctx, tx)
		return nil, nil, err
	}
	snapshot := *before
	after, err := fn(&snapshot)
	if err != nil {
		r.rollback(ctx, tx)
		return nil, nil, err
	}
	if err := r.UpdateVisibilityTx(ctx, tx, after); err != nil {
		r.rollback(ctx, tx)
		return nil, nil, err
	}
	if err := r.CommitTx(ctx, tx); err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func (r *CampaignRepository) rollback(ctx context.Context, tx *sql.Tx) {
	if err := r.RollbackTx(ctx, tx); err != nil {
		r.GetLogger().Error("rollback failed", zap.Error(err))
	}
}

// ListMainFeed returns campaigns satisfying the main feed invariant, pinned
// first. The WHERE clause is rendered from the same rules the guard layer
// evaluates in memory.
func (r *CampaignRepository) ListMainFeed(ctx context.Context, limit, offset int) ([]*models.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM service_campaign_main
		WHERE %s
		ORDER BY is_pinned DESC, created_at DESC
		LIMIT $1 OFFSET $2
	`, campaignColumns, guard.MainFeedWhere())
	return r.list(ctx, query, limit, offset)
}

// ListSecondaryFeed returns campaigns routed into the given secondary feed.
func (r *CampaignRepository) ListSecondaryFeed(ctx context.Context, feed models.FeedKind, limit, offset int) ([]*models.Campaign, error) {
	var flag string
	var state models.VisibilityState
	switch feed {
	case models.FeedLight:
		flag, state = "show_in_light_feed", models.StateLight
	case models.FeedCategory:
		flag, state = "show_in_category_feed", models.StateCategory
	case models.FeedLow:
		flag, state = "show_in_low_feed", models.StateLow
	default:
		return nil, fmt.Errorf("unknown secondary feed %q", feed)
	}
	query := fmt.Sprintf(`
		SELECT %s FROM service_campaign_main
		WHERE %s = TRUE AND visibility_state = '%s' AND is_hidden = FALSE
			AND is_active = TRUE AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, campaignColumns, flag, state)
	return r.list(ctx, query, limit, offset)
}

// ListBySource returns the campaigns of one source with their latest
// confidence scores, newest first. Used to assemble suggestion engine input.
func (r *CampaignRepository) ListBySource(ctx context.Context, sourceName string, limit int) ([]*models.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM service_campaign_main
		WHERE source_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, campaignColumns)
	rows, err := r.GetDB().QueryContext(ctx, query, sourceName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

func (r *CampaignRepository) list(ctx context.Context, query string, limit, offset int) ([]*models.Campaign, error) {
	rows, err := r.GetDB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCampaigns(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	var state, value sql.NullString
	err := row.Scan(
		&c.ID, &c.Slug, &c.Title, &c.SourceName, &state, &value,
		&c.IsHidden, &c.IsPinned, &c.IsActive,
		&c.ShowInLightFeed, &c.ShowInCategoryFeed, &c.ShowInLowFeed,
		&c.ConfidenceScore, &c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkgerrors.ErrCampaignNotFound
		}
		return nil, err
	}
	if state.Valid {
		s := models.VisibilityState(state.String)
		c.VisibilityState = &s
	}
	if value.Valid {
		v := models.ValueLevel(value.String)
		c.ValueLevel = &v
	}
	return &c, nil
}

func scanCampaigns(rows *sql.Rows) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campaigns, nil
}
