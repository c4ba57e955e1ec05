package mock

import (
	"context"
	"sync"

	"botfarm/internal/core"
)

// MockRemoteClient implements core.IRemoteClient for testing
type MockRemoteClient struct {
	mu sync.Mutex

	Inventory      []*core.Asset
	FetchInvErr    error
	FetchInvCalls  int
	FetchInvFilter core.AssetFilter

	confirmationBatches [][]*core.Confirmation
	GetConfsErr         error
	GetConfsCalls       int

	handleErrs      []error
	HandledBatches  [][]*core.Confirmation
	HandleConfCalls int

	TradeResult    *core.TradeOfferResult
	TradeErr       error
	TradeCalls     int
	TradeTargetIDs []uint64
	TradeItemSets  [][]*core.Asset

	GiftCards     []*core.GiftCard
	GetGiftsErr   error
	GetGiftsCalls int

	AcceptGiftErrs map[uint64]error
	AcceptedGifts  []uint64

	AcceptPassErrs map[uint64]error
	AcceptedPasses []uint64

	PlayedGameIDs []uint32
	PlayedName    string
	PlayCalls     int
	PlayErr       error
}

func NewMockRemoteClient() *MockRemoteClient {
	return &MockRemoteClient{
		AcceptGiftErrs: make(map[uint64]error),
		AcceptPassErrs: make(map[uint64]error),
	}
}

// QueueConfirmations appends one GetConfirmations response. Each call
// consumes one batch; when the queue is empty an empty slice is returned.
func (m *MockRemoteClient) QueueConfirmations(batch ...*core.Confirmation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmationBatches = append(m.confirmationBatches, batch)
}

// QueueHandleErr appends one HandleConfirmations outcome. Each call
// consumes one entry; when the queue is empty the call succeeds.
func (m *MockRemoteClient) QueueHandleErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handleErrs = append(m.handleErrs, err)
}

func (m *MockRemoteClient) FetchInventory(ctx context.Context, appID uint32, contextID uint64, filter core.AssetFilter) ([]*core.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchInvCalls++
	m.FetchInvFilter = filter
	if m.FetchInvErr != nil {
		return nil, m.FetchInvErr
	}
	out := make([]*core.Asset, 0, len(m.Inventory))
	for _, a := range m.Inventory {
		if filter == nil || filter(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockRemoteClient) GetConfirmations(ctx context.Context) ([]*core.Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetConfsCalls++
	if m.GetConfsErr != nil {
		return nil, m.GetConfsErr
	}
	if len(m.confirmationBatches) == 0 {
		return nil, nil
	}
	batch := m.confirmationBatches[0]
	m.confirmationBatches = m.confirmationBatches[1:]
	return batch, nil
}

func (m *MockRemoteClient) HandleConfirmations(ctx context.Context, confirmations []*core.Confirmation, accept bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandleConfCalls++
	var err error
	if len(m.handleErrs) > 0 {
		err = m.handleErrs[0]
		m.handleErrs = m.handleErrs[1:]
	}
	if err != nil {
		return err
	}
	m.HandledBatches = append(m.HandledBatches, confirmations)
	return nil
}

func (m *MockRemoteClient) SendTradeOffer(ctx context.Context, targetID uint64, items []*core.Asset, token string, message string, itemsPerTrade int) (*core.TradeOfferResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TradeCalls++
	m.TradeTargetIDs = append(m.TradeTargetIDs, targetID)
	m.TradeItemSets = append(m.TradeItemSets, items)
	if m.TradeErr != nil {
		return nil, m.TradeErr
	}
	if m.TradeResult != nil {
		return m.TradeResult, nil
	}
	return &core.TradeOfferResult{}, nil
}

func (m *MockRemoteClient) GetDigitalGiftCards(ctx context.Context) ([]*core.GiftCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetGiftsCalls++
	if m.GetGiftsErr != nil {
		return nil, m.GetGiftsErr
	}
	return m.GiftCards, nil
}

func (m *MockRemoteClient) AcceptDigitalGiftCard(ctx context.Context, giftCardID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.AcceptGiftErrs[giftCardID]; err != nil {
		return err
	}
	m.AcceptedGifts = append(m.AcceptedGifts, giftCardID)
	return nil
}

func (m *MockRemoteClient) AcceptGuestPass(ctx context.Context, guestPassID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.AcceptPassErrs[guestPassID]; err != nil {
		return err
	}
	m.AcceptedPasses = append(m.AcceptedPasses, guestPassID)
	return nil
}

func (m *MockRemoteClient) PlayGames(ctx context.Context, gameIDs []uint32, gameName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlayCalls++
	m.PlayedGameIDs = gameIDs
	m.PlayedName = gameName
	return m.PlayErr
}

// MockSession implements core.ISession for testing
type MockSession struct {
	mu        sync.Mutex
	connected bool
	steamID   uint64
	callbacks []func()
}

func NewMockSession(steamID uint64) *MockSession {
	return &MockSession{connected: true, steamID: steamID}
}

func (s *MockSession) IsConnectedAndAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *MockSession) SteamID() uint64 {
	return s.steamID
}

func (s *MockSession) OnDisconnected(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

func (s *MockSession) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// Disconnect drops the session and fires the registered callbacks,
// mirroring what the websocket session does on a lost connection.
func (s *MockSession) Disconnect() {
	s.mu.Lock()
	s.connected = false
	cbs := make([]func(), len(s.callbacks))
	copy(cbs, s.callbacks)
	s.mu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}

// MockFarmer implements core.IFarmer for testing
type MockFarmer struct {
	mu          sync.Mutex
	paused      bool
	PauseCalls  int
	ResumeCalls int
}

func NewMockFarmer() *MockFarmer {
	return &MockFarmer{}
}

func (f *MockFarmer) Pause(permanent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PauseCalls++
	f.paused = true
}

func (f *MockFarmer) Resume() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ResumeCalls++
	if !f.paused {
		return false
	}
	f.paused = false
	return true
}

func (f *MockFarmer) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

// MockKeyRegistry implements core.IKeyRegistry in memory for testing
type MockKeyRegistry struct {
	mu      sync.Mutex
	secrets map[string][]byte
	acks    map[string]map[string]bool

	GetSecretErr error
}

func NewMockKeyRegistry() *MockKeyRegistry {
	return &MockKeyRegistry{
		secrets: make(map[string][]byte),
		acks:    make(map[string]map[string]bool),
	}
}

func (r *MockKeyRegistry) GetSecret(ctx context.Context, account string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetSecretErr != nil {
		return nil, r.GetSecretErr
	}
	return r.secrets[account], nil
}

func (r *MockKeyRegistry) SetSecret(ctx context.Context, account string, secret []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets[account] = secret
	return nil
}

func (r *MockKeyRegistry) GetAck(ctx context.Context, account string, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acks[account][key], nil
}

func (r *MockKeyRegistry) SetAck(ctx context.Context, account string, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.acks[account] == nil {
		r.acks[account] = make(map[string]bool)
	}
	r.acks[account][key] = true
	return nil
}
