// Package retry runs an operation repeatedly under a bounded, jittered
// exponential backoff. It complements the failsafe pipeline in pkg/http
// for callers that retry local operations, like busy database handles.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy bounds a retry loop: total attempts and the backoff window.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultPolicy is a sensible default retry policy for remote calls.
// MaxAttempts tracks the shared try budget used across the agent.
var DefaultPolicy = Policy{
	MaxAttempts:    5,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// IsTransientFunc reports whether an error is worth retrying. Anything it
// rejects aborts the loop immediately.
type IsTransientFunc func(error) bool

// Do runs fn until it succeeds, returns a permanent error, exhausts the
// attempt budget, or the context is cancelled. Between attempts it sleeps
// for the current backoff plus up to 50% random jitter, doubling the
// backoff each round up to the policy maximum.
func Do(ctx context.Context, policy Policy, isTransient IsTransientFunc, fn func() error) error {
	backoff := policy.InitialBackoff

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isTransient(err) || attempt >= policy.MaxAttempts {
			return err
		}

		var jitter time.Duration
		if half := backoff / 2; half > 0 {
			jitter = time.Duration(rand.Int63n(int64(half)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter):
		}
		backoff = min(backoff*2, policy.MaxBackoff)
	}
}
