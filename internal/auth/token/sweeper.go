package token

import (
	"context"
	"time"

	"github.com/pysugar/fintrack/internal/metrics"
	"go.uber.org/zap"
)

// ExpiredSweeper deletes expired sessions. *db.SessionStore implements it.
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically removes expired session rows.
type Sweeper struct {
	store    ExpiredSweeper
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(store ExpiredSweeper, interval time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{store: store, interval: interval, now: time.Now, log: log}
}

// SweepOnce deletes every session already past its expiry.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.store.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.SessionsSweptTotal.Add(float64(n))
		s.log.Info("swept expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

// Run sweeps on every tick until ctx is cancelled. Sweep errors are logged
// and retried on the next tick. A non-positive interval disables the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Info("session sweep disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info("session sweep loop started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}
