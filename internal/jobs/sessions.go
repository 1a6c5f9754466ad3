// Package jobs holds periodic maintenance tasks run alongside the server.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/larder/internal/domain"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 15 * time.Minute

// SweepResult holds the result of one sweep.
type SweepResult struct {
	SessionsDeleted int64
}

// SessionSweeper deletes expired login sessions on a fixed interval.
// Expired sessions are already rejected by the account service; sweeping
// only keeps the table from growing.
type SessionSweeper struct {
	sessions domain.SessionStore
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionSweeper creates a sweeper. A non-positive interval uses
// DefaultSweepInterval.
func NewSessionSweeper(sessions domain.SessionStore, interval time.Duration, logger *slog.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Sweep runs a single cleanup pass.
func (s *SessionSweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return &SweepResult{SessionsDeleted: n}, nil
}

// Start sweeps until ctx is cancelled.
func (s *SessionSweeper) Start(ctx context.Context) error {
	s.logger.Info("session sweeper starting", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper shutting down")
			return ctx.Err()

		case <-ticker.C:
			result, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Error("session sweep failed", "error", err)
				continue
			}
			if result.SessionsDeleted > 0 {
				s.logger.Info("expired sessions deleted", "count", result.SessionsDeleted)
			}
		}
	}
}
