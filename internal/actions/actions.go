// Package actions exposes the externally visible operations of one
// account, composing the trading coordinator, confirmation engine, gift
// throttle and idle scheduler into typed outcomes.
package actions

import (
	"context"
	"time"

	"botfarm/internal/confirmations"
	"botfarm/internal/core"
	"botfarm/internal/gifts"
	"botfarm/internal/idle"
	"botfarm/internal/trading"
	"botfarm/pkg/concurrency"
	"botfarm/pkg/telemetry"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MaxGamesPlayedConcurrently is the platform cap on simultaneous games.
const MaxGamesPlayedConcurrently = 32

// Actions is the per-account facade. Every operation returns a
// core.Result; remote failures are converted into outcomes, never
// propagated as faults.
type Actions struct {
	account string
	session core.ISession
	remote  core.IRemoteClient
	farmer  core.IFarmer
	trading *trading.Coordinator
	engine  *confirmations.Engine
	limiter *gifts.Limiter
	handled *gifts.HandledRegistry
	resume  *idle.ResumeScheduler
	logger  core.ILogger

	// giftScanScheduled collapses overlapping gift-card scan triggers
	// into a single in-flight scan.
	giftScanScheduled concurrency.Flag

	// OTel
	tracer      trace.Tracer
	giftCounter metric.Int64Counter
	passCounter metric.Int64Counter
}

// New wires the facade for one account. limiter is the process-wide gift
// throttle shared by every account; a nil limiter makes all gift-class
// operations fail fast. The caller is responsible for clearing handled on
// session disconnect.
func New(
	account string,
	session core.ISession,
	remote core.IRemoteClient,
	farmer core.IFarmer,
	coordinator *trading.Coordinator,
	engine *confirmations.Engine,
	limiter *gifts.Limiter,
	handled *gifts.HandledRegistry,
	logger core.ILogger,
) *Actions {
	tracer := telemetry.GetTracer("actions")
	meter := telemetry.GetMeter("actions")

	giftCounter, _ := meter.Int64Counter("gift_cards_accepted_total",
		metric.WithDescription("Total number of digital gift cards accepted"))
	passCounter, _ := meter.Int64Counter("guest_passes_accepted_total",
		metric.WithDescription("Total number of guest passes accepted"))

	a := &Actions{
		account:     account,
		session:     session,
		remote:      remote,
		farmer:      farmer,
		trading:     coordinator,
		engine:      engine,
		limiter:     limiter,
		handled:     handled,
		logger:      logger.WithField("component", "actions").WithField("account", account),
		tracer:      tracer,
		giftCounter: giftCounter,
		passCounter: passCounter,
	}

	a.resume = idle.NewResumeScheduler(func() {
		if result := a.Resume(); !result.Success {
			a.logger.Debug("Deferred resume was a no-op", "message", result.Message)
		}
	}, a.logger)

	return a
}

// Close releases the facade's deferred-resume slot.
func (a *Actions) Close() {
	a.resume.Close()
}

// Pause stops automatic idling. A non-permanent pause with a positive
// resumeDelay programs the deferred resume slot; repeated pause requests
// reprogram the same slot rather than stacking timers.
func (a *Actions) Pause(permanent bool, resumeDelay time.Duration) (result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(context.Background(), "pause", result.Success) }()

	if a.farmer.IsPaused() {
		// A repeated pause with a resume delay reprograms the deferred
		// slot; the most recent deadline wins.
		if !permanent && resumeDelay > 0 {
			a.resume.Schedule(resumeDelay)
			a.logger.Info("Resume rescheduled", "resume_delay", resumeDelay)
			return core.OK("already paused; resume rescheduled")
		}
		return core.Fail("automatic idling is already paused")
	}

	a.farmer.Pause(permanent)
	a.logger.Info("Idling paused", "permanent", permanent, "resume_delay", resumeDelay)

	if !permanent && resumeDelay > 0 {
		a.resume.Schedule(resumeDelay)
	}

	return core.OK("idling paused")
}

// Resume restarts automatic idling. Resuming an account that is not
// paused is a no-op failure, not an error.
func (a *Actions) Resume() (result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(context.Background(), "resume", result.Success) }()

	if !a.farmer.IsPaused() {
		return core.Fail("automatic idling is not paused")
	}

	a.resume.Cancel()
	a.farmer.Resume()
	a.logger.Info("Idling resumed")

	return core.OK("idling resumed")
}

// Play switches the account's presence to the given games, pausing
// automatic idling first.
func (a *Actions) Play(ctx context.Context, gameIDs []uint32, gameName string) (result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(ctx, "play", result.Success) }()

	if len(gameIDs) > MaxGamesPlayedConcurrently {
		return core.Fail("too many games: %d (max %d)", len(gameIDs), MaxGamesPlayedConcurrently)
	}
	for _, id := range gameIDs {
		if id == 0 {
			return core.Fail("invalid game ID: 0")
		}
	}
	if !a.session.IsConnectedAndAuthenticated() {
		return core.Fail("account is not connected")
	}

	if !a.farmer.IsPaused() {
		a.farmer.Pause(false)
	}

	if err := a.remote.PlayGames(ctx, gameIDs, gameName); err != nil {
		a.logger.Error("Failed to switch played games", "games", len(gameIDs), "error", err)
		return core.Fail("failed to play games: %v", err)
	}

	return core.OK("playing %d game(s)", len(gameIDs))
}

// SendInventory snapshots the filtered inventory and sends it to
// targetID as trade offers. Duplicate concurrent triggers collapse into
// one executed sequence.
func (a *Actions) SendInventory(ctx context.Context, appID uint32, contextID uint64, targetID uint64, token string, message string, filter core.AssetFilter) (result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(ctx, "send_inventory", result.Success) }()

	if appID == 0 || contextID == 0 || targetID == 0 {
		return core.Fail("invalid inventory or target ID")
	}
	if !a.session.IsConnectedAndAuthenticated() {
		return core.Fail("account is not connected")
	}

	return a.trading.SendInventory(ctx, appID, contextID, targetID, token, message, filter)
}

// SendItems sends an explicit item set to targetID as trade offers.
func (a *Actions) SendItems(ctx context.Context, targetID uint64, items []*core.Asset, token string, message string) (result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(ctx, "send_items", result.Success) }()

	if len(items) == 0 {
		return core.Fail("no items to send")
	}

	return a.trading.SendItems(ctx, targetID, items, token, message)
}

// HandleConfirmations drives pending mobile confirmations to accept or
// decline. See confirmations.Engine.Handle for filter and waiting
// semantics.
func (a *Actions) HandleConfirmations(ctx context.Context, accept bool, acceptedType core.ConfirmationType, creatorIDs []uint64, waitIfNeeded bool) (handled map[uint64]*core.Confirmation, result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(ctx, "handle_confirmations", result.Success) }()

	for _, id := range creatorIDs {
		if id == 0 {
			return nil, core.Fail("invalid creator ID: 0")
		}
	}
	if !a.session.IsConnectedAndAuthenticated() {
		return nil, core.Fail("account is not connected")
	}

	return a.engine.Handle(ctx, accept, acceptedType, creatorIDs, waitIfNeeded)
}

// AcceptDigitalGiftCards scans for pending digital gift cards and accepts
// every one not already handled this session. Overlapping scan triggers
// collapse into a single in-flight scan.
func (a *Actions) AcceptDigitalGiftCards(ctx context.Context) (result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(ctx, "accept_gift_cards", result.Success) }()

	ctx, span := a.tracer.Start(ctx, "AcceptDigitalGiftCards",
		trace.WithAttributes(attribute.String("account", a.account)),
	)
	defer span.End()

	if !a.session.IsConnectedAndAuthenticated() {
		return core.Fail("account is not connected")
	}

	if !a.giftScanScheduled.TrySet() {
		return core.Fail("a gift card scan is already scheduled")
	}

	cards, err := a.remote.GetDigitalGiftCards(ctx)

	// The scan is underway; let a trigger arriving from here on queue the
	// next one so cards appearing mid-scan are not missed.
	a.giftScanScheduled.Clear()

	if err != nil {
		span.RecordError(err)
		return core.Fail("failed to list gift cards: %v", err)
	}
	if len(cards) == 0 {
		return core.OK("no pending gift cards")
	}

	accepted := 0
	failed := 0
	total := decimal.Zero
	for _, card := range cards {
		if !a.handled.TryAdd(card.GiftCardID) {
			continue
		}

		if err := a.limiter.Acquire(ctx); err != nil {
			return core.Fail("gift rate limiter: %v", err)
		}

		if err := a.remote.AcceptDigitalGiftCard(ctx, card.GiftCardID); err != nil {
			// Left in the handled registry on purpose: never double-submit.
			a.logger.Warn("Failed to accept gift card", "gift_card_id", card.GiftCardID, "error", err)
			failed++
			continue
		}

		accepted++
		total = total.Add(card.Balance)
		a.giftCounter.Add(ctx, 1)
	}

	telemetry.GetGlobalMetrics().SetHandledEntries(a.account, a.handled.Len())
	a.logger.Info("Gift card scan finished", "accepted", accepted, "failed", failed, "total_balance", total)

	if failed > 0 {
		return core.Fail("accepted %d gift card(s), %d failed", accepted, failed)
	}
	return core.OK("accepted %d gift card(s)", accepted)
}

// AcceptGuestPasses accepts the given guest passes, skipping any already
// handled this session.
func (a *Actions) AcceptGuestPasses(ctx context.Context, passIDs []uint64) (result core.Result) {
	defer func() { telemetry.GetGlobalMetrics().RecordAction(ctx, "accept_guest_passes", result.Success) }()

	if len(passIDs) == 0 {
		return core.Fail("no guest pass IDs provided")
	}
	for _, id := range passIDs {
		if id == 0 {
			return core.Fail("invalid guest pass ID: 0")
		}
	}
	if !a.session.IsConnectedAndAuthenticated() {
		return core.Fail("account is not connected")
	}

	accepted := 0
	failed := 0
	for _, id := range passIDs {
		if !a.handled.TryAdd(id) {
			continue
		}

		if err := a.limiter.Acquire(ctx); err != nil {
			return core.Fail("gift rate limiter: %v", err)
		}

		if err := a.remote.AcceptGuestPass(ctx, id); err != nil {
			a.logger.Warn("Failed to accept guest pass", "guest_pass_id", id, "error", err)
			failed++
			continue
		}

		accepted++
		a.passCounter.Add(ctx, 1)
	}

	telemetry.GetGlobalMetrics().SetHandledEntries(a.account, a.handled.Len())

	if failed > 0 {
		return core.Fail("accepted %d guest pass(es), %d failed", accepted, failed)
	}
	return core.OK("accepted %d guest pass(es)", accepted)
}
