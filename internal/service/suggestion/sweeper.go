package suggestion

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically reports suggestions that lapsed without review.
// Expiry itself is derived state; the sweep only surfaces the count to
// operators so neglected review queues are visible.
type Sweeper struct {
	log  *zap.Logger
	repo Repository
	cron *cron.Cron
}

// NewSweeper creates a sweeper on the given schedule (cron spec with seconds).
func NewSweeper(log *zap.Logger, repo Repository, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		log:  log,
		repo: repo,
		cron: cron.New(cron.WithSeconds()),
	}
	if schedule == "" {
		schedule = "0 0 * * * *"
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the sweep schedule.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	count, err := s.repo.CountExpiredUnreviewed(context.Background())
	if err != nil {
		s.log.Error("Suggestion expiry sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.log.Warn("Suggestions expired without review", zap.Int("count", count))
	}
}
