package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"botfarm/internal/confirmations"
	"botfarm/internal/core"
	"botfarm/internal/gifts"
	"botfarm/internal/mock"
	"botfarm/internal/trading"
	"botfarm/pkg/concurrency"
)

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, f ...interface{})               { fmt.Printf("DEBUG: %s %v\n", msg, f) }
func (m *mockLogger) Info(msg string, f ...interface{})                { fmt.Printf("INFO: %s %v\n", msg, f) }
func (m *mockLogger) Warn(msg string, f ...interface{})                { fmt.Printf("WARN: %s %v\n", msg, f) }
func (m *mockLogger) Error(msg string, f ...interface{})               { fmt.Printf("ERROR: %s %v\n", msg, f) }
func (m *mockLogger) Fatal(msg string, f ...interface{})               { fmt.Printf("FATAL: %s %v\n", msg, f) }
func (m *mockLogger) WithField(k string, v interface{}) core.ILogger   { return m }
func (m *mockLogger) WithFields(f map[string]interface{}) core.ILogger { return m }

type fixture struct {
	actions *Actions
	remote  *mock.MockRemoteClient
	session *mock.MockSession
	farmer  *mock.MockFarmer
	handled *gifts.HandledRegistry
}

func newFixture(t *testing.T, limiter *gifts.Limiter) *fixture {
	t.Helper()

	logger := &mockLogger{}
	remote := mock.NewMockRemoteClient()
	session := mock.NewMockSession(76561198000000001)
	farmer := mock.NewMockFarmer()
	handled := gifts.NewHandledRegistry()

	registry := mock.NewMockKeyRegistry()
	_ = registry.SetSecret(context.Background(), "main", []byte("shared-secret"))
	engine := confirmations.NewEngine("main", remote, registry, logger, 5, time.Millisecond)
	coordinator := trading.NewCoordinator("main", session, remote, engine, 255, logger)

	if limiter == nil {
		pool := concurrency.NewWorkerPool(concurrency.PoolConfig{Name: "test", MaxWorkers: 2, MaxCapacity: 16}, logger)
		t.Cleanup(pool.Stop)
		limiter = gifts.NewLimiter(0, pool, logger)
	}

	a := New("main", session, remote, farmer, coordinator, engine, limiter, handled, logger)
	t.Cleanup(a.Close)

	// Mirrors the production wiring: a dropped session resets the
	// handled registry.
	session.OnDisconnected(handled.Clear)

	return &fixture{actions: a, remote: remote, session: session, farmer: farmer, handled: handled}
}

func TestActions_PauseResume(t *testing.T) {
	f := newFixture(t, nil)

	if result := f.actions.Pause(false, 0); !result.Success {
		t.Fatalf("first pause should succeed, got: %s", result.Message)
	}
	if result := f.actions.Pause(false, 0); result.Success {
		t.Fatal("pausing an already paused account should fail")
	}
	if result := f.actions.Resume(); !result.Success {
		t.Fatalf("resume should succeed, got: %s", result.Message)
	}
	if result := f.actions.Resume(); result.Success {
		t.Fatal("resuming a running account should fail")
	}
}

func TestActions_PauseWithDeferredResume(t *testing.T) {
	f := newFixture(t, nil)

	if result := f.actions.Pause(false, 30*time.Millisecond); !result.Success {
		t.Fatalf("pause failed: %s", result.Message)
	}
	if !f.farmer.IsPaused() {
		t.Fatal("farmer should be paused")
	}

	time.Sleep(150 * time.Millisecond)
	if f.farmer.IsPaused() {
		t.Error("deferred resume should have restarted the farmer")
	}
}

func TestActions_RepeatedPauseReschedulesResume(t *testing.T) {
	f := newFixture(t, nil)

	if result := f.actions.Pause(false, 250*time.Millisecond); !result.Success {
		t.Fatalf("first pause failed: %s", result.Message)
	}
	if result := f.actions.Pause(false, 40*time.Millisecond); !result.Success {
		t.Fatalf("re-pause with a new delay should reprogram the slot, got: %s", result.Message)
	}

	// The second deadline wins: resume fires well before the first
	// 250ms deadline would have.
	time.Sleep(150 * time.Millisecond)
	if f.farmer.IsPaused() {
		t.Error("resume should have fired at the rescheduled deadline")
	}
}

func TestActions_RepeatedPauseWithoutDelayIsNoop(t *testing.T) {
	f := newFixture(t, nil)

	if result := f.actions.Pause(false, 0); !result.Success {
		t.Fatalf("first pause failed: %s", result.Message)
	}
	if result := f.actions.Pause(false, 0); result.Success {
		t.Fatal("re-pause without a resume delay should remain a no-op failure")
	}
	if result := f.actions.Pause(true, 40*time.Millisecond); result.Success {
		t.Fatal("permanent re-pause should not program a resume slot")
	}

	time.Sleep(100 * time.Millisecond)
	if !f.farmer.IsPaused() {
		t.Error("no resume slot should have been armed")
	}
}

func TestActions_PermanentPauseDoesNotAutoResume(t *testing.T) {
	f := newFixture(t, nil)

	if result := f.actions.Pause(true, 30*time.Millisecond); !result.Success {
		t.Fatalf("pause failed: %s", result.Message)
	}

	time.Sleep(150 * time.Millisecond)
	if !f.farmer.IsPaused() {
		t.Error("a permanent pause must not schedule a deferred resume")
	}
}

func TestActions_Play(t *testing.T) {
	f := newFixture(t, nil)

	tooMany := make([]uint32, MaxGamesPlayedConcurrently+1)
	for i := range tooMany {
		tooMany[i] = uint32(i + 1)
	}
	if result := f.actions.Play(context.Background(), tooMany, ""); result.Success {
		t.Error("playing more than the platform cap should fail")
	}

	if result := f.actions.Play(context.Background(), []uint32{0}, ""); result.Success {
		t.Error("game ID 0 should be rejected")
	}

	if result := f.actions.Play(context.Background(), []uint32{440}, "custom"); !result.Success {
		t.Fatalf("play failed: %s", result.Message)
	}
	if !f.farmer.IsPaused() {
		t.Error("playing should pause automatic idling")
	}
	if f.remote.PlayCalls != 1 || f.remote.PlayedName != "custom" {
		t.Errorf("unexpected remote play state: calls=%d name=%q", f.remote.PlayCalls, f.remote.PlayedName)
	}
}

func TestActions_PlayNotConnected(t *testing.T) {
	f := newFixture(t, nil)
	f.session.SetConnected(false)

	if result := f.actions.Play(context.Background(), []uint32{440}, ""); result.Success {
		t.Fatal("play should fail while disconnected")
	}
	if f.remote.PlayCalls != 0 {
		t.Error("no remote call should happen while disconnected")
	}
}

func TestActions_SendInventoryValidation(t *testing.T) {
	f := newFixture(t, nil)

	if result := f.actions.SendInventory(context.Background(), 0, 6, 1, "", "", nil); result.Success {
		t.Error("app ID 0 should be rejected")
	}
	if result := f.actions.SendInventory(context.Background(), 753, 6, 0, "", "", nil); result.Success {
		t.Error("target ID 0 should be rejected")
	}

	f.session.SetConnected(false)
	if result := f.actions.SendInventory(context.Background(), 753, 6, 1, "", "", nil); result.Success {
		t.Error("disconnected send should be rejected")
	}
}

func TestActions_HandleConfirmationsValidation(t *testing.T) {
	f := newFixture(t, nil)

	if _, result := f.actions.HandleConfirmations(context.Background(), true, core.ConfirmationUnknown, []uint64{0}, false); result.Success {
		t.Error("creator ID 0 should be rejected")
	}

	f.session.SetConnected(false)
	if _, result := f.actions.HandleConfirmations(context.Background(), true, core.ConfirmationUnknown, nil, false); result.Success {
		t.Error("disconnected handling should be rejected")
	}
}

func TestActions_AcceptDigitalGiftCards(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.GiftCards = []*core.GiftCard{
		{GiftCardID: 1, Balance: decimal.NewFromInt(5), Currency: "EUR"},
		{GiftCardID: 2, Balance: decimal.NewFromInt(10), Currency: "EUR"},
	}

	result := f.actions.AcceptDigitalGiftCards(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Message)
	}
	if len(f.remote.AcceptedGifts) != 2 {
		t.Fatalf("expected 2 accepted cards, got %d", len(f.remote.AcceptedGifts))
	}

	// A second scan sees the same pending cards but skips them all.
	result = f.actions.AcceptDigitalGiftCards(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Message)
	}
	if len(f.remote.AcceptedGifts) != 2 {
		t.Errorf("already handled cards must not be re-submitted, got %d accepts", len(f.remote.AcceptedGifts))
	}
}

func TestActions_GiftRegistryResetsOnDisconnect(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.GiftCards = []*core.GiftCard{
		{GiftCardID: 1, Balance: decimal.NewFromInt(5), Currency: "EUR"},
	}

	if result := f.actions.AcceptDigitalGiftCards(context.Background()); !result.Success {
		t.Fatalf("first scan failed: %s", result.Message)
	}

	f.session.Disconnect()
	f.session.SetConnected(true)

	if result := f.actions.AcceptDigitalGiftCards(context.Background()); !result.Success {
		t.Fatalf("post-reconnect scan failed: %s", result.Message)
	}
	if len(f.remote.AcceptedGifts) != 2 {
		t.Errorf("a new session starts with an empty handled registry, got %d accepts", len(f.remote.AcceptedGifts))
	}
}

func TestActions_GiftCardFailureIsNotRetried(t *testing.T) {
	f := newFixture(t, nil)
	f.remote.GiftCards = []*core.GiftCard{
		{GiftCardID: 1, Balance: decimal.NewFromInt(5), Currency: "EUR"},
		{GiftCardID: 2, Balance: decimal.NewFromInt(10), Currency: "EUR"},
	}
	f.remote.AcceptGiftErrs[2] = errors.New("redeem failed")

	result := f.actions.AcceptDigitalGiftCards(context.Background())
	if result.Success {
		t.Fatal("a failed card should surface as a failed scan")
	}
	if !strings.Contains(result.Message, "1 failed") {
		t.Errorf("unexpected message: %s", result.Message)
	}

	// The failed card stays committed; the next scan must not
	// double-submit it.
	result = f.actions.AcceptDigitalGiftCards(context.Background())
	if !result.Success {
		t.Fatalf("second scan failed: %s", result.Message)
	}
	if len(f.remote.AcceptedGifts) != 1 {
		t.Errorf("expected only the originally successful card accepted, got %d", len(f.remote.AcceptedGifts))
	}
}

func TestActions_GiftCardsNilLimiter(t *testing.T) {
	var limiter *gifts.Limiter

	logger := &mockLogger{}
	remote := mock.NewMockRemoteClient()
	remote.GiftCards = []*core.GiftCard{{GiftCardID: 1, Balance: decimal.NewFromInt(5), Currency: "EUR"}}
	session := mock.NewMockSession(76561198000000001)
	registry := mock.NewMockKeyRegistry()
	engine := confirmations.NewEngine("main", remote, registry, logger, 5, time.Millisecond)
	coordinator := trading.NewCoordinator("main", session, remote, engine, 255, logger)

	a := New("main", session, remote, mock.NewMockFarmer(), coordinator, engine, limiter, gifts.NewHandledRegistry(), logger)
	defer a.Close()

	result := a.AcceptDigitalGiftCards(context.Background())
	if result.Success {
		t.Fatal("gift-class operations must fail fast without an initialized limiter")
	}
	if len(remote.AcceptedGifts) != 0 {
		t.Error("no accept call should be issued without a limiter")
	}
}

func TestActions_AcceptGuestPasses(t *testing.T) {
	f := newFixture(t, nil)

	if result := f.actions.AcceptGuestPasses(context.Background(), nil); result.Success {
		t.Error("empty pass list should be rejected")
	}
	if result := f.actions.AcceptGuestPasses(context.Background(), []uint64{0}); result.Success {
		t.Error("pass ID 0 should be rejected")
	}

	result := f.actions.AcceptGuestPasses(context.Background(), []uint64{10, 11})
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Message)
	}
	if len(f.remote.AcceptedPasses) != 2 {
		t.Fatalf("expected 2 accepted passes, got %d", len(f.remote.AcceptedPasses))
	}

	// The same IDs come back handled.
	result = f.actions.AcceptGuestPasses(context.Background(), []uint64{10, 11})
	if !result.Success {
		t.Fatalf("expected success, got: %s", result.Message)
	}
	if len(f.remote.AcceptedPasses) != 2 {
		t.Errorf("already handled passes must not be re-submitted, got %d accepts", len(f.remote.AcceptedPasses))
	}
}
