// Package health aggregates liveness checks from the agent's components.
package health

import (
	"sync"

	"botfarm/internal/core"
)

// HealthManager evaluates registered component checks on demand. Checks
// are plain funcs so a component's current state is always re-read; no
// result is cached between calls.
type HealthManager struct {
	logger core.ILogger
	mu     sync.RWMutex
	checks map[string]func() error
}

// NewHealthManager creates an empty manager. logger may be nil in tests.
func NewHealthManager(logger core.ILogger) *HealthManager {
	hm := &HealthManager{checks: make(map[string]func() error)}
	if logger != nil {
		hm.logger = logger.WithField("component", "health_manager")
	}
	return hm
}

// Register adds or replaces the health check for a component.
func (hm *HealthManager) Register(component string, check func() error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[component] = check
}

// Deregister removes a component's check, for components torn down while
// the process keeps running.
func (hm *HealthManager) Deregister(component string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	delete(hm.checks, component)
}

// GetStatus evaluates every check and returns a per-component status.
func (hm *HealthManager) GetStatus() map[string]string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := make(map[string]string, len(hm.checks))
	for component, check := range hm.checks {
		if err := check(); err != nil {
			status[component] = "Unhealthy: " + err.Error()
		} else {
			status[component] = "Healthy"
		}
	}
	return status
}

// IsHealthy reports whether every registered component currently passes.
func (hm *HealthManager) IsHealthy() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	for _, check := range hm.checks {
		if err := check(); err != nil {
			return false
		}
	}
	return true
}
