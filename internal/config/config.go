package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/coinchart/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	CoinGecko   CoinGeckoConfig   `mapstructure:"coingecko"`
	TradingView TradingViewConfig `mapstructure:"tradingview"`
	Chart       ChartConfig       `mapstructure:"chart"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type CoinGeckoConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	VsCurrency      string        `mapstructure:"vs_currency"`
	RateLimitPerSec float64       `mapstructure:"rate_limit_per_sec"`
	RateBurst       int           `mapstructure:"rate_burst"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// TradingViewConfig holds widget symbol resolution settings.
type TradingViewConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	DefaultExchange   string            `mapstructure:"default_exchange"`
	DefaultQuote      string            `mapstructure:"default_quote"`
	Symbols           map[string]string `mapstructure:"symbols"`
	UseDefaultMapping bool              `mapstructure:"use_default_mapping"`
	ScriptURL         string            `mapstructure:"script_url"`
}

// ChartConfig holds price chart defaults and cache lifetimes.
type ChartConfig struct {
	DefaultDays         int           `mapstructure:"default_days"`
	Ranges              []int         `mapstructure:"ranges"`
	HourlyTTL           time.Duration `mapstructure:"hourly_ttl"`
	DailyTTL            time.Duration `mapstructure:"daily_ttl"`
	DailyThreshold      int           `mapstructure:"daily_threshold"`
	TimezoneOffsetHours int           `mapstructure:"timezone_offset_hours"`
}

type StorageConfig struct {
	Archive ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "localfs", "s3" or "" to disable
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("coingecko.base_url", d.CoinGecko.BaseURL)
	v.SetDefault("coingecko.vs_currency", d.CoinGecko.VsCurrency)
	v.SetDefault("coingecko.rate_limit_per_sec", d.CoinGecko.RateLimitPerSec)
	v.SetDefault("coingecko.rate_burst", d.CoinGecko.RateBurst)
	v.SetDefault("coingecko.timeout", d.CoinGecko.Timeout)
	v.SetDefault("tradingview.default_exchange", d.TradingView.DefaultExchange)
	v.SetDefault("tradingview.default_quote", d.TradingView.DefaultQuote)
	v.SetDefault("tradingview.script_url", d.TradingView.ScriptURL)
	v.SetDefault("chart.default_days", d.Chart.DefaultDays)
	v.SetDefault("chart.ranges", d.Chart.Ranges)
	v.SetDefault("chart.hourly_ttl", d.Chart.HourlyTTL)
	v.SetDefault("chart.daily_ttl", d.Chart.DailyTTL)
	v.SetDefault("chart.daily_threshold", d.Chart.DailyThreshold)
	v.SetDefault("chart.timezone_offset_hours", d.Chart.TimezoneOffsetHours)
	v.SetDefault("storage.archive.type", d.Storage.Archive.Type)
	v.SetDefault("storage.archive.path", d.Storage.Archive.Path)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL:         "https://api.coingecko.com/api/v3",
			VsCurrency:      "usd",
			RateLimitPerSec: 0.5,
			RateBurst:       1,
			Timeout:         10 * time.Second,
		},
		TradingView: TradingViewConfig{
			DefaultExchange: "BINANCE",
			DefaultQuote:    "USDT",
			ScriptURL:       "https://s3.tradingview.com/tv.js",
		},
		Chart: ChartConfig{
			DefaultDays:         30,
			Ranges:              []int{1, 7, 30, 90, 365},
			HourlyTTL:           5 * time.Minute,
			DailyTTL:            30 * time.Minute,
			DailyThreshold:      90,
			TimezoneOffsetHours: 9,
		},
		Storage: StorageConfig{
			Archive: ArchiveConfig{
				Type: "localfs",
				Path: "data/archive",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.CoinGecko.BaseURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("coingecko base_url required"))
	}
	if c.CoinGecko.RateLimitPerSec <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rate_limit_per_sec must be positive, got %f", c.CoinGecko.RateLimitPerSec))
	}

	// Chart validation
	if len(c.Chart.Ranges) == 0 {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("chart ranges required"))
	}
	found := false
	for _, days := range c.Chart.Ranges {
		if days < 1 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("chart range must be positive, got %d", days))
		}
		if days == c.Chart.DefaultDays {
			found = true
		}
	}
	if !found {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("default_days %d is not one of the chart ranges", c.Chart.DefaultDays))
	}
	if c.Chart.TimezoneOffsetHours < -12 || c.Chart.TimezoneOffsetHours > 14 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("timezone_offset_hours out of range, got %d", c.Chart.TimezoneOffsetHours))
	}

	if c.TradingView.Enabled && c.TradingView.ScriptURL == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("tradingview script_url required when enabled"))
	}

	// Archive validation
	switch c.Storage.Archive.Type {
	case "":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required for localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required for s3 archive"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	return nil
}
