package main

import (
	"context"
	"flag"
	"os"
	"time"

	"botfarm/internal/agent"
	"botfarm/internal/alert"
	"botfarm/internal/bootstrap"
	"botfarm/internal/gifts"
	"botfarm/internal/infrastructure/health"
	"botfarm/internal/infrastructure/metrics"
	"botfarm/internal/storage"
	"botfarm/pkg/concurrency"
	"botfarm/pkg/logging"
)

var configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		*configFile = envConfig
	}

	app, err := bootstrap.NewApp(*configFile)
	if err != nil {
		// The configured logger never came up; fall back to the
		// package-default global one.
		logging.GetGlobalLogger().Fatal("Bootstrap failed", "config", *configFile, "error", err)
	}
	logger := app.Logger
	cfg := app.Cfg

	logger.Info("Starting botfarm agent", "accounts", len(cfg.Accounts))

	backgroundPool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "BackgroundPool",
		MaxWorkers:  cfg.Concurrency.BackgroundPoolSize,
		MaxCapacity: cfg.Concurrency.BackgroundPoolBuffer,
	}, logger)
	defer backgroundPool.Stop()

	limiter := gifts.NewLimiter(
		time.Duration(cfg.Gifts.LimiterDelaySeconds)*time.Second,
		backgroundPool,
		logger,
	)

	registry, err := storage.NewSQLiteRegistry(cfg.System.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open key registry", "path", cfg.System.DatabasePath, "error", err)
	}
	defer registry.Close()

	alerts := alert.NewAlertManager(backgroundPool, logger)
	if cfg.Alerts.SlackWebhookURL != "" {
		alerts.AddChannel(alert.NewSlackChannel(cfg.Alerts.SlackWebhookURL))
	}
	if cfg.Alerts.TelegramBotToken != "" {
		alerts.AddChannel(alert.NewTelegramChannel(cfg.Alerts.TelegramBotToken, cfg.Alerts.TelegramChatID))
	}

	healthMgr := health.NewHealthManager(logger)

	runners := make([]bootstrap.Runner, 0, len(cfg.Accounts)+1)
	for name, accountCfg := range cfg.Accounts {
		if !accountCfg.Enabled {
			logger.Info("Skipping disabled account", "account", name)
			continue
		}
		bot := agent.NewBot(name, accountCfg, cfg, limiter, registry, healthMgr, alerts, logger)
		runners = append(runners, bot)
	}
	if len(runners) == 0 {
		logger.Fatal("No enabled accounts configured")
	}

	if cfg.Telemetry.EnableMetrics {
		runners = append(runners, &metricsRunner{
			server: metrics.NewServer(cfg.Telemetry.MetricsPort, healthMgr, logger),
		})
	}

	if err := app.Run(runners...); err != nil {
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Telemetry shutdown failed", "error", err)
	}

	logger.Info("Shutting down", "pool_stats", backgroundPool.Stats())
}

// metricsRunner adapts the metrics server's Start/Stop lifecycle to the
// bootstrap runner contract.
type metricsRunner struct {
	server *metrics.Server
}

func (m *metricsRunner) Run(ctx context.Context) error {
	m.server.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.server.Stop(stopCtx)
}
