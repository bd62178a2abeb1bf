// Package sweeper periodically removes expired links from the store.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

// DefaultInterval matches a once-a-minute cron schedule.
const DefaultInterval = time.Minute

// Deleter removes every link that has expired at now and reports how many
// were removed. shortener.Repository satisfies it.
type Deleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs batch expiry deletes on a fixed interval. It never touches the
// redirect cache.
type Sweeper struct {
	deleter  Deleter
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Config holds configuration for the sweeper.
type Config struct {
	Interval time.Duration // default 1m
	Timeout  time.Duration // per batch; defaults to the interval
	Logger   *slog.Logger
	Clock    func() time.Time
}

// New creates a sweeper over d.
func New(d Deleter, cfg Config) *Sweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = interval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Sweeper{
		deleter:  d,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "sweeper"),
		now:      func() time.Time { return clock().UTC() },
	}
}

// SweepOnce deletes every expired link in a single batch.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	const op = "sweeper.SweepOnce"

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.deleter.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, errx.E(op, errx.KindOf(err), err)
	}

	s.logger.InfoContext(ctx, "expired links swept",
		"deleted", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}

// Run sweeps every interval until ctx is done. A failed batch is logged and
// the next tick tries again.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "sweeper started", "interval", s.interval.String())

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.ErrorContext(ctx, "sweep failed",
					"error", err.Error(),
					"error_kind", errx.KindOf(err).String(),
				)
			}
		}
	}
}
