package agent

import (
	"sync"

	"botfarm/internal/core"
	"botfarm/pkg/telemetry"
)

// Farmer is the background idling activity of one account. It only
// tracks the paused state here; the actual card-drop farming loop keys
// off IsPaused before every cycle.
type Farmer struct {
	account string
	logger  core.ILogger

	mu        sync.Mutex
	paused    bool
	permanent bool
}

// NewFarmer creates the farmer for one account. startPaused carries the
// configured initial state.
func NewFarmer(account string, startPaused bool, logger core.ILogger) *Farmer {
	telemetry.GetGlobalMetrics().SetIdlingPaused(account, startPaused)
	return &Farmer{
		account: account,
		logger:  logger.WithField("component", "farmer").WithField("account", account),
		paused:  startPaused,
	}
}

func (f *Farmer) Pause(permanent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.paused = true
	f.permanent = f.permanent || permanent
	telemetry.GetGlobalMetrics().SetIdlingPaused(f.account, true)
	f.logger.Debug("Farmer paused", "permanent", f.permanent)
}

func (f *Farmer) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.paused {
		return false
	}
	f.paused = false
	f.permanent = false
	telemetry.GetGlobalMetrics().SetIdlingPaused(f.account, false)
	f.logger.Debug("Farmer resumed")
	return true
}

func (f *Farmer) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}
