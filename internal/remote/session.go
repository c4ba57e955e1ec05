package remote

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"botfarm/internal/core"
	"botfarm/pkg/telemetry"
	"botfarm/pkg/websocket"
)

// SessionConfig holds the event-stream session settings.
type SessionConfig struct {
	EventStreamURL string
	RefreshToken   string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
}

// Session tracks the connection and authentication state of one account
// over the platform's event stream. Disconnect callbacks let dependent
// state (the handled-gift registry) reset with the session.
type Session struct {
	account string
	steamID uint64
	cfg     SessionConfig
	ws      *websocket.Client
	logger  core.ILogger

	connected     atomic.Bool
	authenticated atomic.Bool

	mu            sync.Mutex
	onDisconnects []func()
}

// NewSession creates the session for one account. Start must be called
// before the session reports as connected.
func NewSession(account string, steamID uint64, cfg SessionConfig, logger core.ILogger) *Session {
	s := &Session{
		account: account,
		steamID: steamID,
		cfg:     cfg,
		logger:  logger.WithField("component", "session").WithField("account", account),
	}

	s.ws = websocket.NewClient(cfg.EventStreamURL, s.handleMessage, s.logger)
	if cfg.PingInterval > 0 {
		s.ws.SetPingConfig(cfg.PingInterval, 10*time.Second, cfg.PongWait)
	}
	if cfg.ReconnectDelay > 0 {
		s.ws.SetReconnectWait(cfg.ReconnectDelay)
	}

	s.ws.SetOnConnected(func() {
		s.connected.Store(true)
		telemetry.GetGlobalMetrics().SetAccountOnline(s.account, true)
		// Authentication is event-driven; the logon result arrives as a
		// stream event.
		if err := s.ws.Send(map[string]interface{}{
			"type":          "logon",
			"steam_id":      s.steamID,
			"refresh_token": s.cfg.RefreshToken,
		}); err != nil {
			s.logger.Error("Failed to send logon request", "error", err)
		}
	})

	s.ws.SetOnDisconnected(func() {
		s.connected.Store(false)
		s.authenticated.Store(false)
		telemetry.GetGlobalMetrics().SetAccountOnline(s.account, false)
		s.logger.Warn("Session disconnected")
		s.fireDisconnected()
	})

	return s
}

// Start opens the event stream.
func (s *Session) Start() {
	s.ws.Start()
}

// Stop closes the event stream.
func (s *Session) Stop() {
	s.ws.Stop()
}

// IsConnectedAndAuthenticated reports whether the account can issue
// authenticated remote calls right now.
func (s *Session) IsConnectedAndAuthenticated() bool {
	return s.connected.Load() && s.authenticated.Load()
}

// SteamID returns the account's platform identity.
func (s *Session) SteamID() uint64 {
	return s.steamID
}

// OnDisconnected registers a callback fired whenever the session drops.
func (s *Session) OnDisconnected(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnects = append(s.onDisconnects, cb)
}

func (s *Session) fireDisconnected() {
	s.mu.Lock()
	callbacks := make([]func(), len(s.onDisconnects))
	copy(callbacks, s.onDisconnects)
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

type streamEvent struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Session) handleMessage(message []byte) {
	var event streamEvent
	if err := json.Unmarshal(message, &event); err != nil {
		s.logger.Warn("Dropping malformed stream event", "error", err)
		return
	}

	switch event.Type {
	case "logon_result":
		if event.Success {
			s.authenticated.Store(true)
			s.logger.Info("Session authenticated")
		} else {
			s.authenticated.Store(false)
			s.logger.Error("Logon rejected", "message", event.Message)
		}
	case "logged_off":
		s.authenticated.Store(false)
		s.logger.Warn("Logged off by remote", "message", event.Message)
	default:
		s.logger.Debug("Unhandled stream event", "type", event.Type)
	}
}
