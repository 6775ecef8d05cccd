package session

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = time.Minute

// Sweeper periodically purges expired sessions from stores without native expiry.
type Sweeper struct {
	cron   *cron.Cron
	store  Store
	logger *zap.Logger
}

// NewSweeper schedules DeleteExpired on the given cron expression.
func NewSweeper(store Store, schedule string, logger *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		store:  store,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep runs one purge.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Warn("session sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("expired sessions removed", zap.Int64("count", removed))
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler; the returned context is done once a running sweep finishes.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
