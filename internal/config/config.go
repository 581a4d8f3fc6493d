// Package config loads the backtest's run configuration from a YAML file
// with BTENGINE_* environment variable overrides, mirroring how the rest
// of the stack loads its own service config.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level run configuration. Maps directly onto the YAML
// file structure.
type Config struct {
	Broker  BrokerConfig  `mapstructure:"broker"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Feed    FeedConfig    `mapstructure:"feed"`
}

// BrokerConfig mirrors broker.Config's YAML shape.
type BrokerConfig struct {
	MakerFeeFrac            float64 `mapstructure:"maker_fee_frac"`
	TakerFeeFrac            float64 `mapstructure:"taker_fee_frac"`
	SubmitLatencyMs         int64   `mapstructure:"submit_latency_ms"`
	CancelLatencyMs         int64   `mapstructure:"cancel_latency_ms"`
	MakerQueueAheadFactor   float64 `mapstructure:"maker_queue_ahead_factor"`
	MakerQueueAheadExtraQty float64 `mapstructure:"maker_queue_ahead_extra_qty"`
	MakerTradeParticipation float64 `mapstructure:"maker_trade_participation"`
}

// EngineConfig mirrors engine.Config's YAML shape.
type EngineConfig struct {
	TickIntervalMs    int64 `mapstructure:"tick_interval_ms"`
	TradingStartMs    int64 `mapstructure:"trading_start_ms"`
	HasTradingStartMs bool  `mapstructure:"has_trading_start_ms"`
	TradingEndMs      int64 `mapstructure:"trading_end_ms"`
	HasTradingEndMs   bool  `mapstructure:"has_trading_end_ms"`
}

// LoggingConfig controls the zerolog global logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// StoreConfig sets where a finished run's fills and snapshot persist.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// FeedConfig names the market-data sources to replay, one file per
// logical stream (e.g. one per symbol or per event type), merged in
// event-time order by the engine driver.
type FeedConfig struct {
	Sources    []string `mapstructure:"sources"`
	NumWorkers int      `mapstructure:"num_workers"`
}

// Load reads config from a YAML file with env var overrides. Sensitive or
// environment-specific fields can be overridden via BTENGINE_* variables,
// e.g. BTENGINE_STORE_PATH.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("BTENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if storePath := os.Getenv("BTENGINE_STORE_PATH"); storePath != "" {
		cfg.Store.Path = storePath
	}

	return &cfg, nil
}

// Default returns a runnable config with the same defaults as
// broker.DefaultConfig/engine.DefaultConfig, for use when no file is
// supplied (e.g. in tests or a quick one-off run).
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			MakerFeeFrac:            0.0004,
			TakerFeeFrac:            0.0005,
			MakerQueueAheadFactor:   1.0,
			MakerTradeParticipation: 1.0,
		},
		Engine:  EngineConfig{TickIntervalMs: 1000},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Validate checks required fields and value ranges beyond what the broker
// and engine packages themselves validate when constructed.
func (c *Config) Validate() error {
	if c.Broker.MakerTradeParticipation <= 0 || c.Broker.MakerTradeParticipation > 1 {
		return fmt.Errorf("config: broker.maker_trade_participation must be in (0, 1]")
	}
	if c.Engine.TickIntervalMs < 0 {
		return fmt.Errorf("config: engine.tick_interval_ms must be >= 0")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("config: store.path is required when store.enabled is true")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not a recognized zerolog level", c.Logging.Level)
	}
	return nil
}
