// Package idle provides the deferred single-shot resume slot used when
// idling is paused with an automatic resume delay.
package idle

import (
	"sync"
	"time"

	"botfarm/internal/core"
)

// ResumeScheduler holds at most one outstanding deferred resume per
// account. Scheduling while a timer is pending reprograms the existing
// slot; the last requested deadline wins.
type ResumeScheduler struct {
	mu     sync.Mutex
	timer  *time.Timer
	resume func()
	logger core.ILogger
	closed bool
}

// NewResumeScheduler creates a scheduler that invokes resume when the
// deferred slot fires. resume runs on the timer goroutine; failures are
// the callback's responsibility to log.
func NewResumeScheduler(resume func(), logger core.ILogger) *ResumeScheduler {
	return &ResumeScheduler{
		resume: resume,
		logger: logger.WithField("component", "resume_scheduler"),
	}
}

// Schedule programs the resume slot to fire after delay, replacing any
// pending deadline.
func (s *ResumeScheduler) Schedule(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.timer == nil {
		s.timer = time.AfterFunc(delay, s.fire)
		s.logger.Debug("Resume scheduled", "delay", delay)
		return
	}

	s.timer.Stop()
	s.timer.Reset(delay)
	s.logger.Debug("Resume rescheduled", "delay", delay)
}

// Cancel drops any pending deadline without firing.
func (s *ResumeScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
}

// Close cancels the slot permanently. Called when the owning account is
// torn down.
func (s *ResumeScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *ResumeScheduler) fire() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return
	}

	s.resume()
}
