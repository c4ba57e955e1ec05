// Package core defines the core interfaces for the botfarm agent
package core

import (
	"context"
)

// AssetFilter decides whether an inventory asset is part of an operation.
// A nil filter matches everything.
type AssetFilter func(*Asset) bool

// ISession exposes the connection state of one account's session.
type ISession interface {
	IsConnectedAndAuthenticated() bool
	SteamID() uint64
	// OnDisconnected registers a callback fired whenever the session drops.
	// Callbacks run on the session's goroutine and must not block.
	OnDisconnected(func())
}

// IRemoteClient is the remote-protocol collaborator. All calls are
// blocking and honor ctx; transient failures surface as
// apperrors.ErrTimeout or apperrors.ErrNetwork wrapped errors.
type IRemoteClient interface {
	// Inventory
	FetchInventory(ctx context.Context, appID uint32, contextID uint64, filter AssetFilter) ([]*Asset, error)

	// Confirmations
	GetConfirmations(ctx context.Context) ([]*Confirmation, error)
	HandleConfirmations(ctx context.Context, confirmations []*Confirmation, accept bool) error

	// Trading
	SendTradeOffer(ctx context.Context, targetID uint64, items []*Asset, token string, message string, itemsPerTrade int) (*TradeOfferResult, error)

	// Gift-class operations (subject to the shared rate limiter)
	GetDigitalGiftCards(ctx context.Context) ([]*GiftCard, error)
	AcceptDigitalGiftCard(ctx context.Context, giftCardID uint64) error
	AcceptGuestPass(ctx context.Context, guestPassID uint64) error

	// Presence
	PlayGames(ctx context.Context, gameIDs []uint32, gameName string) error
}

// IFarmer is the pausable background idling activity of one account.
type IFarmer interface {
	Pause(permanent bool)
	// Resume returns false when the farmer was not paused.
	Resume() bool
	IsPaused() bool
}

// IKeyRegistry is the persistent per-account key-value store holding
// confirmation secrets and acknowledgement flags.
type IKeyRegistry interface {
	GetSecret(ctx context.Context, account string) ([]byte, error)
	SetSecret(ctx context.Context, account string, secret []byte) error
	GetAck(ctx context.Context, account string, key string) (bool, error)
	SetAck(ctx context.Context, account string, key string) error
}

// IGiftThrottle is the process-wide admission gate for gift-class calls.
type IGiftThrottle interface {
	Acquire(ctx context.Context) error
}

// IHealthMonitor aggregates component health checks.
type IHealthMonitor interface {
	Register(component string, check func() error)
	Deregister(component string)
	GetStatus() map[string]string
	IsHealthy() bool
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
