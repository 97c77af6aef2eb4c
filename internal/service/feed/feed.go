// Package feed is the guard-protected read path. Every page it serves has
// passed the runtime invariant assertions; in fail-safe mode a page that does
// not pass comes back empty rather than polluted.
package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/guard"
	"github.com/dealgrid/dealgrid/pkg/models"
	"github.com/dealgrid/dealgrid/pkg/redis"
)

const cacheTTL = 30 * time.Second

// Lister is the slice of the campaign repository the feed service reads from.
type Lister interface {
	ListMainFeed(ctx context.Context, limit, offset int) ([]*models.Campaign, error)
	ListSecondaryFeed(ctx context.Context, feed models.FeedKind, limit, offset int) ([]*models.Campaign, error)
}

// Service serves feed pages with the safety guards applied on every read.
type Service struct {
	log    *zap.Logger
	repo   Lister
	guards *guard.Guards
	cache  *redis.Cache
}

// NewService creates the feed read service. cache may be nil, in which case
// every read goes to the repository.
func NewService(log *zap.Logger, repo Lister, guards *guard.Guards, cache *redis.Cache) *Service {
	return &Service{log: log, repo: repo, guards: guards, cache: cache}
}

// MainFeed returns a page of the primary feed. The page is validated against
// the eligibility invariant after the query; the SQL filter and the in-memory
// check share one definition, so a violation here means the database holds a
// row that contradicts its own flags.
func (s *Service) MainFeed(ctx context.Context, limit, offset int) ([]*models.Campaign, error) {
	now := time.Now().UTC()
	pageKey := pageAttribute(limit, offset)
	if cached, ok := s.fromCache(ctx, "main", pageKey); ok {
		return s.guards.AssertFeedNotPolluted(cached, now)
	}
	items, err := s.repo.ListMainFeed(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items, err = s.guards.AssertFeedNotPolluted(items, now)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, "main", pageKey, items)
	return items, nil
}

// SecondaryFeed returns a page of the light, category, or low pool, verifying
// that every item carries the matching discriminator flags.
func (s *Service) SecondaryFeed(ctx context.Context, feed models.FeedKind, limit, offset int) ([]*models.Campaign, error) {
	now := time.Now().UTC()
	pageKey := pageAttribute(limit, offset)
	if cached, ok := s.fromCache(ctx, string(feed), pageKey); ok {
		return s.guards.AssertFeedIsolation(cached, feed, now)
	}
	items, err := s.repo.ListSecondaryFeed(ctx, feed, limit, offset)
	if err != nil {
		return nil, err
	}
	items, err = s.guards.AssertFeedIsolation(items, feed, now)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, string(feed), pageKey, items)
	return items, nil
}

// InvalidateFeeds drops every cached feed page. The visibility service calls
// this after each committed transition so stale pages never outlive a
// mutation by more than one read.
func (s *Service) InvalidateFeeds(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, "feed", "*"); err != nil {
		s.log.Warn("Failed to invalidate feed cache", zap.Error(err))
	}
}

func (s *Service) fromCache(ctx context.Context, feed, pageKey string) ([]*models.Campaign, bool) {
	if s.cache == nil {
		return nil, false
	}
	var items []*models.Campaign
	err := s.cache.Get(ctx, "feed", feed+":"+pageKey, &items)
	if err != nil {
		if err != redis.ErrCacheMiss {
			s.log.Warn("Feed cache read failed", zap.String("feed", feed), zap.Error(err))
		}
		return nil, false
	}
	return items, true
}

func (s *Service) toCache(ctx context.Context, feed, pageKey string, items []*models.Campaign) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, "feed", feed+":"+pageKey, items, cacheTTL); err != nil {
		s.log.Warn("Feed cache write failed", zap.String("feed", feed), zap.Error(err))
	}
}

func pageAttribute(limit, offset int) string {
	return fmt.Sprintf("%d:%d", limit, offset)
}
