package logging

import (
	"testing"

	"botfarm/internal/core"
)

func TestGlobalLogger_DefaultAndOverride(t *testing.T) {
	// The package default must be usable before any bootstrap runs; this
	// is what the pre-bootstrap error path relies on.
	fallback := GetGlobalLogger()
	if fallback == nil {
		t.Fatal("default global logger should never be nil")
	}
	fallback.Info("pre-bootstrap fallback works", "key", "value")

	logger, err := NewZapLogger("DEBUG")
	if err != nil {
		t.Fatalf("Zap logger creation failed: %v", err)
	}
	SetGlobalLogger(logger)
	defer SetGlobalLogger(fallback)

	if got := GetGlobalLogger(); got != core.ILogger(logger) {
		t.Error("SetGlobalLogger should replace the returned instance")
	}
}

func TestNewZapLogger_LevelFallback(t *testing.T) {
	logger, err := NewZapLogger("not-a-level")
	if err != nil {
		t.Fatalf("unknown level should fall back to INFO, got error: %v", err)
	}
	logger.Info("info survives the fallback level")

	scoped := logger.WithField("component", "test")
	// Odd key/value counts must not drop the trailing value.
	scoped.Warn("odd fields", "only-a-key")
}
