package concurrency

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Flag is a mutex-guarded boolean used to collapse redundant concurrent
// trigger requests into a single logical execution. Check and set happen
// as one atomic step; the internal mutex is never held across blocking
// calls.
type Flag struct {
	mu  sync.Mutex
	set bool
}

// TrySet sets the flag and returns true, or returns false if it was
// already set.
func (f *Flag) TrySet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.set {
		return false
	}
	f.set = true
	return true
}

// Clear resets the flag.
func (f *Flag) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set = false
}

// IsSet reports the current flag state.
func (f *Flag) IsSet() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set
}

// ScopedLock is a single-permit mutual exclusion guard. Acquire blocks
// until the permit is available or ctx is done; Release must be paired
// with a prior successful Acquire, on every exit path.
//
// Scheduled is the lock's companion dedup flag: callers that only want to
// queue one pending execution check it before blocking on the permit.
type ScopedLock struct {
	sem       *semaphore.Weighted
	Scheduled Flag
}

// NewScopedLock creates a single-permit lock.
func NewScopedLock() *ScopedLock {
	return &ScopedLock{sem: semaphore.NewWeighted(1)}
}

// Acquire takes the permit, blocking until available.
func (l *ScopedLock) Acquire(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// TryAcquire takes the permit without blocking.
func (l *ScopedLock) TryAcquire() bool {
	return l.sem.TryAcquire(1)
}

// Release returns the permit.
func (l *ScopedLock) Release() {
	l.sem.Release(1)
}
