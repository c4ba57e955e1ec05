// Package alert fans operational notifications out to external channels.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"botfarm/internal/core"
	"botfarm/pkg/concurrency"
)

type AlertLevel string

const (
	Info     AlertLevel = "INFO"
	Warning  AlertLevel = "WARNING"
	Error    AlertLevel = "ERROR"
	Critical AlertLevel = "CRITICAL"
)

// sendTimeout bounds one channel delivery attempt.
const sendTimeout = 10 * time.Second

type AlertPayload struct {
	ID        string
	Level     AlertLevel
	Account   string
	Title     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

type AlertChannel interface {
	Send(ctx context.Context, alert AlertPayload) error
	Name() string
}

// AlertManager fans alerts out to all registered channels. Delivery runs
// detached on the shared worker pool so a slow webhook never blocks the
// action path; delivery failures are logged, never surfaced to the
// triggering caller.
type AlertManager struct {
	mu       sync.RWMutex
	channels []AlertChannel
	pool     *concurrency.WorkerPool
	logger   core.ILogger
}

// NewAlertManager creates a manager delivering through pool. A nil pool
// falls back to plain goroutines, for tests.
func NewAlertManager(pool *concurrency.WorkerPool, logger core.ILogger) *AlertManager {
	return &AlertManager{
		pool:   pool,
		logger: logger.WithField("component", "alert_manager"),
	}
}

func (am *AlertManager) AddChannel(ch AlertChannel) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.channels = append(am.channels, ch)
	am.logger.Info("Added alert channel", "name", ch.Name())
}

// Alert builds a payload and dispatches it to every channel.
func (am *AlertManager) Alert(account, title, message string, level AlertLevel, fields map[string]string) {
	payload := AlertPayload{
		ID:        uuid.NewString(),
		Level:     level,
		Account:   account,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Fields:    fields,
	}

	am.logger.Info("Triggering alert", "id", payload.ID, "title", title, "level", level, "account", account)

	am.mu.RLock()
	channels := make([]AlertChannel, len(am.channels))
	copy(channels, am.channels)
	am.mu.RUnlock()

	for _, ch := range channels {
		am.dispatch(ch, payload)
	}
}

func (am *AlertManager) dispatch(ch AlertChannel, payload AlertPayload) {
	deliver := func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := ch.Send(ctx, payload); err != nil {
			am.logger.Error("Failed to send alert", "id", payload.ID, "channel", ch.Name(), "error", err)
		}
	}

	if am.pool == nil {
		go deliver()
		return
	}
	if err := am.pool.Submit(deliver); err != nil {
		am.logger.Error("Failed to queue alert delivery", "id", payload.ID, "channel", ch.Name(), "error", err)
	}
}
