// Package cleanup periodically removes expired challenges and sessions so the
// in-memory stores do not grow without bound.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"certis/internal/platform/metrics"
)

// ChallengeStore exposes cleanup for expired challenges.
type ChallengeStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// SessionStore exposes cleanup for expired sessions.
type SessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Result summarizes the deletions performed by a cleanup run.
type Result struct {
	DeletedChallenges int
	DeletedSessions   int
}

// Service periodically sweeps expired authentication artifacts.
type Service struct {
	challenges ChallengeStore
	sessions   SessionStore
	interval   time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithLogger overrides the logger used for sweep errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches Prometheus metrics so the active-session gauge tracks
// sweeps.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service with required stores and options applied.
func New(challenges ChallengeStore, sessions SessionStore, opts ...Option) (*Service, error) {
	if challenges == nil || sessions == nil {
		return nil, fmt.Errorf("challenge and session stores are required")
	}
	svc := &Service{
		challenges: challenges,
		sessions:   sessions,
		interval:   5 * time.Minute,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs the sweep periodically until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "authn cleanup failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single sweep over both stores. Errors from one store do
// not stop the sweep of the other; they are aggregated and returned together.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	now := s.now()
	var res Result
	var errs []error

	deletedChallenges, err := s.challenges.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired challenges: %w", err))
	} else {
		res.DeletedChallenges = deletedChallenges
	}

	deletedSessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired sessions: %w", err))
	} else {
		res.DeletedSessions = deletedSessions
		if s.metrics != nil {
			s.metrics.ActiveSessions.Sub(float64(deletedSessions))
		}
	}

	if len(errs) > 0 {
		return res, errors.Join(errs...)
	}
	return res, nil
}
