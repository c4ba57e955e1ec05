// Package gifts implements the process-wide throttle and idempotency
// registry shared by all gift-class operations.
package gifts

import (
	"context"
	"time"

	"botfarm/internal/core"
	"botfarm/pkg/concurrency"
	apperrors "botfarm/pkg/errors"
	"botfarm/pkg/telemetry"

	"golang.org/x/sync/semaphore"
)

// Limiter is a single-permit leaky-bucket throttle shared across every
// account in the process. The permit is released by a detached background
// task only after the configured delay, so successive gift-class calls
// are spaced, not merely serialized.
//
// A nil *Limiter is a configuration defect: every Acquire fails fast with
// apperrors.ErrLimiterUnavailable.
type Limiter struct {
	sem    *semaphore.Weighted
	delay  time.Duration
	pool   *concurrency.WorkerPool
	logger core.ILogger
}

// NewLimiter creates the shared limiter. A zero delay disables limiting;
// Acquire becomes a no-op fast path.
func NewLimiter(delay time.Duration, pool *concurrency.WorkerPool, logger core.ILogger) *Limiter {
	return &Limiter{
		sem:    semaphore.NewWeighted(1),
		delay:  delay,
		pool:   pool,
		logger: logger.WithField("component", "gift_limiter"),
	}
}

// Acquire blocks until the permit is available, then schedules its
// delayed release. The release task is fire-and-forget; its only failure
// mode (pool shutdown) is logged, never surfaced to the caller.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return apperrors.ErrLimiterUnavailable
	}

	if l.delay == 0 {
		return nil
	}

	start := time.Now()
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	telemetry.GetGlobalMetrics().RecordLimiterWait(ctx, time.Since(start).Seconds())

	if err := l.pool.SubmitAfter(l.delay, func() { l.sem.Release(1) }); err != nil {
		// Could not schedule the delayed release; give the permit back
		// immediately rather than wedging the limiter forever.
		l.logger.Error("Failed to schedule limiter release, releasing immediately", "error", err)
		l.sem.Release(1)
	}

	return nil
}

// Delay returns the configured spacing between gift-class calls.
func (l *Limiter) Delay() time.Duration {
	if l == nil {
		return 0
	}
	return l.delay
}
