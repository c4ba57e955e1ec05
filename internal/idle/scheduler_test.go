package idle

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"botfarm/internal/core"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, f ...interface{})               { fmt.Printf("DEBUG: %s %v\n", msg, f) }
func (m *mockLogger) Info(msg string, f ...interface{})                { fmt.Printf("INFO: %s %v\n", msg, f) }
func (m *mockLogger) Warn(msg string, f ...interface{})                { fmt.Printf("WARN: %s %v\n", msg, f) }
func (m *mockLogger) Error(msg string, f ...interface{})               { fmt.Printf("ERROR: %s %v\n", msg, f) }
func (m *mockLogger) Fatal(msg string, f ...interface{})               { fmt.Printf("FATAL: %s %v\n", msg, f) }
func (m *mockLogger) WithField(k string, v interface{}) core.ILogger   { return m }
func (m *mockLogger) WithFields(f map[string]interface{}) core.ILogger { return m }

func TestResumeScheduler_Fires(t *testing.T) {
	var fired atomic.Int32
	s := NewResumeScheduler(func() { fired.Add(1) }, &mockLogger{})
	defer s.Close()

	s.Schedule(20 * time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected the slot to fire once, fired %d times", got)
	}
}

func TestResumeScheduler_RescheduleReplacesDeadline(t *testing.T) {
	var fired atomic.Int32
	s := NewResumeScheduler(func() { fired.Add(1) }, &mockLogger{})
	defer s.Close()

	// The longer deadline is replaced by the shorter one; the slot still
	// fires only once.
	s.Schedule(time.Hour)
	s.Schedule(20 * time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected exactly one firing after reschedule, got %d", got)
	}
}

func TestResumeScheduler_LastDeadlineWins(t *testing.T) {
	var fired atomic.Int32
	s := NewResumeScheduler(func() { fired.Add(1) }, &mockLogger{})
	defer s.Close()

	s.Schedule(30 * time.Millisecond)
	s.Schedule(200 * time.Millisecond)

	// The first deadline must not fire.
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("slot fired %d time(s) before the rescheduled deadline", got)
	}

	time.Sleep(200 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected one firing at the second deadline, got %d", got)
	}
}

func TestResumeScheduler_Cancel(t *testing.T) {
	var fired atomic.Int32
	s := NewResumeScheduler(func() { fired.Add(1) }, &mockLogger{})
	defer s.Close()

	s.Schedule(20 * time.Millisecond)
	s.Cancel()

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("canceled slot fired %d time(s)", got)
	}

	// The slot stays usable after Cancel.
	s.Schedule(20 * time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("expected one firing after rescheduling a canceled slot, got %d", got)
	}
}

func TestResumeScheduler_Close(t *testing.T) {
	var fired atomic.Int32
	s := NewResumeScheduler(func() { fired.Add(1) }, &mockLogger{})

	s.Schedule(20 * time.Millisecond)
	s.Close()

	// Scheduling after Close is a no-op.
	s.Schedule(20 * time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("closed slot fired %d time(s)", got)
	}
}
