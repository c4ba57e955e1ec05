// Package agent composes the per-account collaborators into a runnable
// bot: session, remote client, trading coordinator, confirmation engine
// and the actions facade.
package agent

import (
	"context"
	"fmt"
	"time"

	"botfarm/internal/actions"
	"botfarm/internal/alert"
	"botfarm/internal/config"
	"botfarm/internal/confirmations"
	"botfarm/internal/core"
	"botfarm/internal/gifts"
	"botfarm/internal/remote"
	"botfarm/internal/trading"
	"botfarm/pkg/telemetry"
)

// Bot is one configured account's runtime. Its lifecycle is owned by the
// bootstrap runner group.
type Bot struct {
	name    string
	session *remote.Session
	actions *actions.Actions
	handled *gifts.HandledRegistry
	farmer  *Farmer
	alerts  *alert.AlertManager
	health  core.IHealthMonitor
	logger  core.ILogger
}

// NewBot wires every collaborator for one account. limiter and registry
// are process-wide and shared across bots.
func NewBot(
	name string,
	accountCfg config.AccountConfig,
	cfg *config.Config,
	limiter *gifts.Limiter,
	registry core.IKeyRegistry,
	health core.IHealthMonitor,
	alerts *alert.AlertManager,
	logger core.ILogger,
) *Bot {
	session := remote.NewSession(name, accountCfg.SteamID, remote.SessionConfig{
		EventStreamURL: cfg.Remote.EventStreamURL,
		RefreshToken:   accountCfg.RefreshToken,
		ReconnectDelay: time.Duration(cfg.Timing.WebsocketReconnectDelay) * time.Second,
		PingInterval:   time.Duration(cfg.Timing.WebsocketPingInterval) * time.Second,
		PongWait:       time.Duration(cfg.Timing.WebsocketPongWait) * time.Second,
	}, logger)

	client := remote.NewClient(name, remote.Config{
		BaseURL:           cfg.Remote.BaseURL,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		Burst:             cfg.Remote.Burst,
		Timeout:           time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
	}, &remote.TokenSigner{Token: accountCfg.RefreshToken}, logger)

	engine := confirmations.NewEngine(
		name,
		client,
		registry,
		logger,
		cfg.System.MaxTries,
		time.Duration(cfg.Timing.ConfirmationRetryDelay)*time.Second,
	)

	coordinator := trading.NewCoordinator(name, session, client, engine, cfg.Trading.ItemsPerTrade, logger)

	farmer := NewFarmer(name, accountCfg.Paused, logger)
	handled := gifts.NewHandledRegistry()

	b := &Bot{
		name:    name,
		session: session,
		handled: handled,
		farmer:  farmer,
		alerts:  alerts,
		health:  health,
		logger:  logger.WithField("component", "bot").WithField("account", name),
	}

	b.actions = actions.New(name, session, client, farmer, coordinator, engine, limiter, handled, logger)

	// A dropped session invalidates everything handled during it; the
	// registry restarts empty so nothing pending is silently skipped.
	session.OnDisconnected(func() {
		handled.Clear()
		telemetry.GetGlobalMetrics().SetHandledEntries(name, 0)
		if alerts != nil {
			alerts.Alert(name, "Session disconnected",
				"The event stream dropped; reconnecting.", alert.Warning, nil)
		}
	})

	if health != nil {
		health.Register("session:"+name, func() error {
			if !session.IsConnectedAndAuthenticated() {
				return fmt.Errorf("account %s is not connected", name)
			}
			return nil
		})
	}

	return b
}

// Name returns the account name.
func (b *Bot) Name() string {
	return b.name
}

// Actions returns the account's operation facade.
func (b *Bot) Actions() *actions.Actions {
	return b.actions
}

// Run opens the session and blocks until ctx is canceled, then tears the
// account down.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot")
	b.session.Start()

	<-ctx.Done()

	b.logger.Info("Stopping bot")
	if b.health != nil {
		b.health.Deregister("session:" + b.name)
	}
	b.session.Stop()
	b.actions.Close()
	return nil
}
