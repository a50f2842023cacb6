// Package config loads application configuration from a YAML file, a .env
// file and WHALE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"whale-tracker/internal/baseline"
	"whale-tracker/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. WHALE_MARKET_DATA_API_KEY.
const EnvPrefix = "WHALE"

// Config represents the complete application configuration
type Config struct {
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Screener   ScreenerConfig   `mapstructure:"screener"`
	Scan       ScanConfig       `mapstructure:"scan"`
	Watch      WatchConfig      `mapstructure:"watch"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// MarketDataConfig holds market-data API configuration
type MarketDataConfig struct {
	BaseURL           string        `mapstructure:"base_url" validate:"required,url"`
	APIKey            string        `mapstructure:"api_key" validate:"required"`
	Timeout           time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	MaxRetryElapsed   time.Duration `mapstructure:"max_retry_elapsed" validate:"gte=0"`
}

// ScreenerConfig holds screener configuration
type ScreenerConfig struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PageInterval time.Duration `mapstructure:"page_interval"`
	RelVolFilter string        `mapstructure:"relvol_filter" validate:"required"`
}

// ScanConfig holds universe scan configuration
type ScanConfig struct {
	Targets     []domain.ScanTarget `mapstructure:"targets" validate:"dive"`
	Workers     int                 `mapstructure:"workers" validate:"gte=1,lte=64"`
	CallTimeout time.Duration       `mapstructure:"call_timeout" validate:"gt=0"`
	Lookback    int                 `mapstructure:"lookback" validate:"gte=20,lte=252"`
}

// WatchConfig holds interest-list and insider configuration
type WatchConfig struct {
	LargeTrades    bool     `mapstructure:"large_trades"`
	Symbols        []string `mapstructure:"symbols" validate:"required_if=LargeTrades true,dive,required"`
	Insider        bool     `mapstructure:"insider"`
	InsiderSymbols []string `mapstructure:"insider_symbols" validate:"required_if=Insider true,dive,required"`
	InsiderCutoff  string   `mapstructure:"insider_cutoff" validate:"required,datetime=2006-01-02"`
}

// StorageConfig holds persistence configuration
type StorageConfig struct {
	Driver        string `mapstructure:"driver" validate:"oneof=memory postgres"`
	PostgresDSN   string `mapstructure:"postgres_dsn" validate:"required_if=Driver postgres"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BotToken   string `mapstructure:"bot_token" validate:"required_if=Enabled true"`
	ChatID     string `mapstructure:"chat_id" validate:"required_if=Enabled true"`
	MaxRetries int    `mapstructure:"max_retries" validate:"gte=0"`
}

// ScheduleConfig holds the daily run schedule
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron" validate:"required"`
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// MetricsConfig holds the metrics listener configuration
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Load reads configuration from .env, an optional YAML file and environment
// variables, in increasing precedence. An empty path skips the file.
func Load(path string) (*Config, error) {
	// Missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Scan.Targets) == 0 {
		cfg.Scan.Targets = domain.DefaultScanTargets()
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
// Every key needs a default so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// Market data defaults
	v.SetDefault("market_data.base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("market_data.api_key", "")
	v.SetDefault("market_data.timeout", "10s")
	v.SetDefault("market_data.requests_per_second", 5)
	v.SetDefault("market_data.max_retry_elapsed", "30s")

	// Screener defaults
	v.SetDefault("screener.base_url", "https://finviz.com")
	v.SetDefault("screener.timeout", "15s")
	v.SetDefault("screener.page_interval", "1s")
	v.SetDefault("screener.relvol_filter", "sh_relvol_o1.5")

	// Scan defaults
	v.SetDefault("scan.workers", 4)
	v.SetDefault("scan.call_timeout", "10s")
	v.SetDefault("scan.lookback", baseline.LongLookback)

	// Watch defaults
	v.SetDefault("watch.large_trades", true)
	v.SetDefault("watch.symbols", []string{"TSLA", "RKLB", "PLTR", "SOFI", "IONQ"})
	v.SetDefault("watch.insider", true)
	v.SetDefault("watch.insider_symbols", []string{"AAPL", "MSFT", "NVDA"})
	v.SetDefault("watch.insider_cutoff", "2025-01-01")

	// Storage defaults
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)

	// Schedule defaults: weekdays before the US open
	v.SetDefault("schedule.cron", "0 8 * * 1-5")
	v.SetDefault("schedule.timezone", "America/New_York")

	// Metrics defaults
	v.SetDefault("metrics.addr", ":9090")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Scan.Targets))
	for _, t := range c.Scan.Targets {
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("scan.targets: duplicate target %q", t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	return nil
}

// Location returns the schedule time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// InsiderCutoffDate returns the parsed insider cutoff.
func (c *Config) InsiderCutoffDate() time.Time {
	t, err := domain.ParseDate(c.Watch.InsiderCutoff)
	if err != nil {
		return time.Time{}
	}
	return t
}
