// Package sweeper expires sessions whose TTL elapsed without settlement.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// batchSize caps how many sessions one sweep handles.
const batchSize = 100

// ListExpiredFunc returns ids of live sessions past their TTL.
type ListExpiredFunc func(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)

// ExpireFunc runs the engine's Expire for one session.
type ExpireFunc func(ctx context.Context, sessionID uuid.UUID) error

// Sweeper polls for expired PENDING/ACTIVE sessions and expires each. The
// sweep is advisory: Settle independently rejects expired sessions, so a
// missed or late sweep never corrupts state.
type Sweeper struct {
	list     ListExpiredFunc
	expire   ExpireFunc
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a sweeper with the given poll interval.
func New(list ListExpiredFunc, expire ExpireFunc, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		list:     list,
		expire:   expire,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("expiry sweeper started", "interval", s.interval)
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("expiry sweeper stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep expires one batch. Failures are logged per session and the sweep
// carries on; the next tick retries whatever is still live.
func (s *Sweeper) Sweep(ctx context.Context) {
	ids, err := s.list(ctx, s.now().UTC(), batchSize)
	if err != nil {
		s.logger.Error("list expired sessions", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	expired := 0
	for _, id := range ids {
		if err := s.expire(ctx, id); err != nil {
			s.logger.Error("expire session", "sessionId", id, "error", err)
			continue
		}
		expired++
	}
	s.logger.Info("sweep complete", "candidates", len(ids), "expired", expired)
}
