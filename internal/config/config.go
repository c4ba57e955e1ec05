// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultMaxTries is the shared retry budget used across unrelated
// operations (confirmation polling, generic remote retry) unless
// overridden in the config.
const DefaultMaxTries = 5

// Config represents the complete configuration structure
type Config struct {
	Accounts    map[string]AccountConfig `yaml:"accounts"`
	Remote      RemoteConfig             `yaml:"remote"`
	Trading     TradingConfig            `yaml:"trading"`
	Gifts       GiftsConfig              `yaml:"gifts"`
	System      SystemConfig             `yaml:"system"`
	Timing      TimingConfig             `yaml:"timing"`
	Concurrency ConcurrencyConfig        `yaml:"concurrency"`
	Telemetry   TelemetryConfig          `yaml:"telemetry"`
	Alerts      AlertsConfig             `yaml:"alerts"`
}

// AccountConfig contains per-account settings
type AccountConfig struct {
	SteamID      uint64 `yaml:"steam_id"`
	RefreshToken string `yaml:"refresh_token"`
	TradeToken   string `yaml:"trade_token"`
	Enabled      bool   `yaml:"enabled"`
	Paused       bool   `yaml:"paused"` // start with idling paused
}

// RemoteConfig contains remote platform endpoints and pacing
type RemoteConfig struct {
	BaseURL           string  `yaml:"base_url"`
	EventStreamURL    string  `yaml:"event_stream_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
}

// TradingConfig contains trading parameters
type TradingConfig struct {
	InventoryAppID uint32 `yaml:"inventory_app_id"`
	ContextID      uint64 `yaml:"context_id"`
	ItemsPerTrade  int    `yaml:"items_per_trade" validate:"min=1,max=255"`
}

// GiftsConfig contains the shared gift-class throttle settings
type GiftsConfig struct {
	// LimiterDelaySeconds spaces successive gift-class calls process-wide.
	// 0 disables limiting entirely.
	LimiterDelaySeconds int `yaml:"limiter_delay_seconds" validate:"min=0,max=300"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel     string `yaml:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR FATAL"`
	DatabasePath string `yaml:"database_path"`
	MaxTries     int    `yaml:"max_tries" validate:"min=1,max=255"`
}

// TimingConfig contains timing-related settings
type TimingConfig struct {
	ConfirmationRetryDelay  int `yaml:"confirmation_retry_delay" validate:"min=1,max=60"`
	WebsocketReconnectDelay int `yaml:"websocket_reconnect_delay" validate:"min=1,max=300"`
	WebsocketPongWait       int `yaml:"websocket_pong_wait" validate:"min=1,max=300"`
	WebsocketPingInterval   int `yaml:"websocket_ping_interval" validate:"min=1,max=300"`
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	BackgroundPoolSize   int `yaml:"background_pool_size" validate:"min=1,max=100"`
	BackgroundPoolBuffer int `yaml:"background_pool_buffer" validate:"min=1,max=10000"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// AlertsConfig contains alert channel settings
type AlertsConfig struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := os.Expand(string(data), os.Getenv)

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.System.MaxTries == 0 {
		c.System.MaxTries = DefaultMaxTries
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = "INFO"
	}
	if c.System.DatabasePath == "" {
		c.System.DatabasePath = "botfarm.db"
	}
	if c.Trading.ItemsPerTrade == 0 {
		c.Trading.ItemsPerTrade = 255
	}
	if c.Trading.InventoryAppID == 0 {
		c.Trading.InventoryAppID = 753
	}
	if c.Trading.ContextID == 0 {
		c.Trading.ContextID = 6
	}
	if c.Timing.ConfirmationRetryDelay == 0 {
		c.Timing.ConfirmationRetryDelay = 1
	}
	if c.Timing.WebsocketReconnectDelay == 0 {
		c.Timing.WebsocketReconnectDelay = 5
	}
	if c.Timing.WebsocketPongWait == 0 {
		c.Timing.WebsocketPongWait = 60
	}
	if c.Timing.WebsocketPingInterval == 0 {
		c.Timing.WebsocketPingInterval = 30
	}
	if c.Concurrency.BackgroundPoolSize == 0 {
		c.Concurrency.BackgroundPoolSize = 8
	}
	if c.Concurrency.BackgroundPoolBuffer == 0 {
		c.Concurrency.BackgroundPoolBuffer = 128
	}
	if c.Remote.RequestsPerSecond == 0 {
		c.Remote.RequestsPerSecond = 10
	}
	if c.Remote.Burst == 0 {
		c.Remote.Burst = 15
	}
	if c.Remote.TimeoutSeconds == 0 {
		c.Remote.TimeoutSeconds = 60
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateAccounts(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateRemote(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSystem(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateGifts(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateTrading(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateAccounts() error {
	if len(c.Accounts) == 0 {
		return ValidationError{
			Field:   "accounts",
			Message: "at least one account must be configured",
		}
	}

	for name, account := range c.Accounts {
		if !account.Enabled {
			continue
		}
		if account.SteamID == 0 {
			return ValidationError{
				Field:   fmt.Sprintf("accounts.%s.steam_id", name),
				Message: "steam ID is required for enabled accounts",
			}
		}
		if account.RefreshToken == "" {
			return ValidationError{
				Field:   fmt.Sprintf("accounts.%s.refresh_token", name),
				Message: "refresh token is required for enabled accounts",
			}
		}
	}

	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.BaseURL == "" {
		return ValidationError{
			Field:   "remote.base_url",
			Message: "remote base URL is required",
		}
	}
	if c.Remote.RequestsPerSecond <= 0 {
		return ValidationError{
			Field:   "remote.requests_per_second",
			Value:   c.Remote.RequestsPerSecond,
			Message: "must be positive",
		}
	}
	return nil
}

func (c *Config) validateSystem() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	if c.System.MaxTries < 1 {
		return ValidationError{
			Field:   "system.max_tries",
			Value:   c.System.MaxTries,
			Message: "must be at least 1",
		}
	}
	return nil
}

func (c *Config) validateGifts() error {
	if c.Gifts.LimiterDelaySeconds < 0 {
		return ValidationError{
			Field:   "gifts.limiter_delay_seconds",
			Value:   c.Gifts.LimiterDelaySeconds,
			Message: "must not be negative",
		}
	}
	return nil
}

func (c *Config) validateTrading() error {
	if c.Trading.ItemsPerTrade < 1 || c.Trading.ItemsPerTrade > 255 {
		return ValidationError{
			Field:   "trading.items_per_trade",
			Value:   c.Trading.ItemsPerTrade,
			Message: "must be between 1 and 255",
		}
	}
	return nil
}

// String returns a string representation of the configuration (with sensitive data masked)
func (c *Config) String() string {
	configCopy := *c
	configCopy.Accounts = make(map[string]AccountConfig, len(c.Accounts))
	for name, account := range c.Accounts {
		account.RefreshToken = maskString(account.RefreshToken)
		account.TradeToken = maskString(account.TradeToken)
		configCopy.Accounts[name] = account
	}
	configCopy.Alerts.TelegramBotToken = maskString(c.Alerts.TelegramBotToken)
	configCopy.Alerts.SlackWebhookURL = maskString(c.Alerts.SlackWebhookURL)

	data, _ := yaml.Marshal(configCopy)
	return string(data)
}

// Helper functions

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	cfg := &Config{
		Accounts: map[string]AccountConfig{
			"main": {
				SteamID:      76561198000000001,
				RefreshToken: "test_refresh_token",
				TradeToken:   "abcdefgh",
				Enabled:      true,
			},
		},
		Remote: RemoteConfig{
			BaseURL:        "https://api.example.test",
			EventStreamURL: "wss://events.example.test/stream",
		},
		Gifts: GiftsConfig{
			LimiterDelaySeconds: 1,
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: false,
		},
	}
	cfg.applyDefaults()
	return cfg
}
