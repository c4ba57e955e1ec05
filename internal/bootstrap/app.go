// Package bootstrap assembles core dependencies and orchestrates the
// application lifecycle.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"botfarm/internal/config"
	"botfarm/internal/core"
	"botfarm/pkg/logging"
	"botfarm/pkg/telemetry"
)

// App holds the application-wide dependencies.
type App struct {
	Cfg       *config.Config
	Logger    core.ILogger
	Telemetry *telemetry.Telemetry
}

// NewApp loads configuration and initializes the logger and telemetry.
func NewApp(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := logging.NewZapLogger(cfg.System.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	logging.SetGlobalLogger(logger)

	tel, err := telemetry.Setup("botfarm")
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	return &App{
		Cfg:       cfg,
		Logger:    logger,
		Telemetry: tel,
	}, nil
}

// Runner is a component with a blocking lifecycle tied to a context.
type Runner interface {
	Run(ctx context.Context) error
}

// Run starts all runners and blocks until one fails or a termination
// signal arrives. The first non-nil error cancels the rest.
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("Starting application")

	for _, runner := range runners {
		r := runner
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		a.Logger.Error("Application stopped with error", "error", err)
		return err
	}

	a.Logger.Info("Application shut down gracefully")
	return nil
}
