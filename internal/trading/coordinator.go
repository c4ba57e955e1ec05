// Package trading serializes trading-critical sections for one account.
package trading

import (
	"context"

	"botfarm/internal/confirmations"
	"botfarm/internal/core"
	"botfarm/pkg/concurrency"
	"botfarm/pkg/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Coordinator guards inventory-snapshot + trade-offer submission as one
// exclusive critical section per account. The lock serializes distinct
// legitimate requests; its companion Scheduled flag turns duplicate
// triggers of the full snapshot-and-send sequence into fast no-ops
// instead of piling up redundant inventory scans.
type Coordinator struct {
	account       string
	session       core.ISession
	remote        core.IRemoteClient
	engine        *confirmations.Engine
	lock          *concurrency.ScopedLock
	itemsPerTrade int
	logger        core.ILogger

	// OTel
	tracer       trace.Tracer
	sentCounter  metric.Int64Counter
	abortCounter metric.Int64Counter
}

// NewCoordinator creates the per-account trading coordinator.
func NewCoordinator(
	account string,
	session core.ISession,
	remote core.IRemoteClient,
	engine *confirmations.Engine,
	itemsPerTrade int,
	logger core.ILogger,
) *Coordinator {
	tracer := telemetry.GetTracer("trading-coordinator")
	meter := telemetry.GetMeter("trading-coordinator")

	sentCounter, _ := meter.Int64Counter("trade_offers_sent_total",
		metric.WithDescription("Total number of trade offers submitted"))
	abortCounter, _ := meter.Int64Counter("trade_sends_aborted_total",
		metric.WithDescription("Total number of inventory sends collapsed by the dedup flag"))

	return &Coordinator{
		account:       account,
		session:       session,
		remote:        remote,
		engine:        engine,
		lock:          concurrency.NewScopedLock(),
		itemsPerTrade: itemsPerTrade,
		logger:        logger.WithField("component", "trading").WithField("account", account),
		tracer:        tracer,
		sentCounter:   sentCounter,
		abortCounter:  abortCounter,
	}
}

// AcquireLock takes the trading lock directly, for callers that want the
// critical section itself rather than the deduplicated send sequence.
func (c *Coordinator) AcquireLock(ctx context.Context) error {
	return c.lock.Acquire(ctx)
}

// ReleaseLock returns the trading lock.
func (c *Coordinator) ReleaseLock() {
	c.lock.Release()
}

// SendInventory snapshots the account's filtered inventory under the
// trading lock and hands the result to SendItems. A second trigger that
// arrives while an identical send is still queued aborts immediately.
func (c *Coordinator) SendInventory(
	ctx context.Context,
	appID uint32,
	contextID uint64,
	targetID uint64,
	token string,
	message string,
	filter core.AssetFilter,
) core.Result {
	ctx, span := c.tracer.Start(ctx, "SendInventory",
		trace.WithAttributes(
			attribute.String("account", c.account),
			attribute.Int64("app_id", int64(appID)),
		),
	)
	defer span.End()

	if !c.lock.Scheduled.TrySet() {
		c.abortCounter.Add(ctx, 1)
		return core.Fail("aborted: an identical inventory send is already scheduled")
	}

	items, fetchErr := c.snapshotInventory(ctx, appID, contextID, filter)
	if fetchErr != nil {
		span.RecordError(fetchErr)
		return core.Fail("failed to fetch inventory: %v", fetchErr)
	}

	if len(items) == 0 {
		return core.Fail("no tradable items matched the filter")
	}

	return c.SendItems(ctx, targetID, items, token, message)
}

// snapshotInventory runs the lock-protected phase of SendInventory: the
// execution slot is reserved by the Scheduled flag, the flag is cleared
// once the lock is held, and the lock is dropped before any continuation.
func (c *Coordinator) snapshotInventory(ctx context.Context, appID uint32, contextID uint64, filter core.AssetFilter) ([]*core.Asset, error) {
	if err := c.lock.Acquire(ctx); err != nil {
		c.lock.Scheduled.Clear()
		return nil, err
	}
	defer c.lock.Release()

	// Execution slot is now reserved; allow the next distinct trigger to
	// queue behind us.
	c.lock.Scheduled.Clear()

	return c.remote.FetchInventory(ctx, appID, contextID, filter)
}

// SendItems submits an explicit item set as a trade offer and, when the
// platform requires mobile confirmation, drives those confirmations to
// acceptance. It runs either standalone or as the continuation of
// SendInventory and must not re-acquire the trading lock.
func (c *Coordinator) SendItems(ctx context.Context, targetID uint64, items []*core.Asset, token string, message string) core.Result {
	if targetID == 0 {
		return core.Fail("invalid target ID")
	}
	if len(items) == 0 {
		return core.Fail("no items to send")
	}
	if !c.session.IsConnectedAndAuthenticated() {
		return core.Fail("account is not connected")
	}

	result, err := c.remote.SendTradeOffer(ctx, targetID, items, token, message, c.itemsPerTrade)
	if err != nil {
		c.logger.Error("Failed to send trade offer", "target", targetID, "items", len(items), "error", err)
		return core.Fail("failed to send trade offer: %v", err)
	}

	c.sentCounter.Add(ctx, int64(len(result.OfferIDs)))
	c.logger.Info("Trade offer submitted",
		"target", targetID, "items", len(items), "offers", len(result.OfferIDs), "mobile", len(result.Mobile))

	if len(result.Mobile) == 0 {
		return core.OK("sent %d trade offer(s) with %d item(s)", len(result.OfferIDs), len(items))
	}

	// The creator ID of a trade confirmation is the offer ID, so the
	// freshly created offers double as the engine's allow-list.
	handled, confirmResult := c.engine.Handle(ctx, true, core.ConfirmationTrade, result.Mobile, true)
	if !confirmResult.Success {
		return core.Fail("sent %d trade offer(s) but confirmed only %d of %d: %s",
			len(result.OfferIDs), len(handled), len(result.Mobile), confirmResult.Message)
	}

	return core.OK("sent and confirmed %d trade offer(s) with %d item(s)", len(result.OfferIDs), len(items))
}
