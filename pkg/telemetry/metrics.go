package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricActionsTotal       = "botfarm_actions_total"
	MetricAccountsOnline     = "botfarm_accounts_online"
	MetricIdlingPaused       = "botfarm_idling_paused"
	MetricGiftLimiterWait    = "botfarm_gift_limiter_wait_seconds"
	MetricHandledGiftEntries = "botfarm_handled_gift_entries"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	ActionsTotal    metric.Int64Counter
	AccountsOnline  metric.Int64ObservableGauge
	IdlingPaused    metric.Int64ObservableGauge
	GiftLimiterWait metric.Float64Histogram
	HandledEntries  metric.Int64ObservableGauge

	// State for observable gauges
	mu             sync.RWMutex
	onlineMap      map[string]int64
	pausedMap      map[string]int64
	handledSizeMap map[string]int64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			onlineMap:      make(map[string]int64),
			pausedMap:      make(map[string]int64),
			handledSizeMap: make(map[string]int64),
		}
	})
	return globalMetrics
}

// InitMetrics creates the instruments on the given meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	if m.ActionsTotal, err = meter.Int64Counter(MetricActionsTotal,
		metric.WithDescription("Total number of facade actions executed")); err != nil {
		return err
	}

	if m.GiftLimiterWait, err = meter.Float64Histogram(MetricGiftLimiterWait,
		metric.WithDescription("Time spent waiting on the shared gift limiter in seconds")); err != nil {
		return err
	}

	if m.AccountsOnline, err = meter.Int64ObservableGauge(MetricAccountsOnline,
		metric.WithDescription("Whether an account session is connected and authenticated"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for account, v := range m.onlineMap {
				o.Observe(v, metric.WithAttributes(attribute.String("account", account)))
			}
			return nil
		})); err != nil {
		return err
	}

	if m.IdlingPaused, err = meter.Int64ObservableGauge(MetricIdlingPaused,
		metric.WithDescription("Whether automatic idling is paused for an account"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for account, v := range m.pausedMap {
				o.Observe(v, metric.WithAttributes(attribute.String("account", account)))
			}
			return nil
		})); err != nil {
		return err
	}

	if m.HandledEntries, err = meter.Int64ObservableGauge(MetricHandledGiftEntries,
		metric.WithDescription("Number of gift/guest-pass IDs handled this session"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for account, v := range m.handledSizeMap {
				o.Observe(v, metric.WithAttributes(attribute.String("account", account)))
			}
			return nil
		})); err != nil {
		return err
	}

	return nil
}

// RecordAction increments the action counter
func (m *MetricsHolder) RecordAction(ctx context.Context, action string, success bool) {
	if m.ActionsTotal == nil {
		return
	}
	m.ActionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.Bool("success", success),
	))
}

// RecordLimiterWait records time spent blocked on the shared gift limiter
func (m *MetricsHolder) RecordLimiterWait(ctx context.Context, seconds float64) {
	if m.GiftLimiterWait == nil {
		return
	}
	m.GiftLimiterWait.Record(ctx, seconds)
}

// SetAccountOnline records the connection state for an account
func (m *MetricsHolder) SetAccountOnline(account string, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onlineMap[account] = boolToInt64(online)
}

// SetIdlingPaused records the idling state for an account
func (m *MetricsHolder) SetIdlingPaused(account string, paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pausedMap[account] = boolToInt64(paused)
}

// SetHandledEntries records the handled-registry size for an account
func (m *MetricsHolder) SetHandledEntries(account string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handledSizeMap[account] = int64(n)
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
