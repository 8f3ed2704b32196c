package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/coinchart/internal/core"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

coingecko:
  api_key: "demo-key"

tradingview:
  enabled: true
  symbols:
    bitcoin: "BINANCE:BTCUSDT"

chart:
  default_days: 7
  hourly_ttl: 2m

storage:
  archive:
    type: localfs
    path: "/tmp/coinchart/archive"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.CoinGecko.APIKey != "demo-key" {
		t.Errorf("expected api key demo-key, got %s", cfg.CoinGecko.APIKey)
	}
	if cfg.TradingView.Symbols["bitcoin"] != "BINANCE:BTCUSDT" {
		t.Errorf("expected bitcoin mapping, got %v", cfg.TradingView.Symbols)
	}
	if cfg.Chart.DefaultDays != 7 {
		t.Errorf("expected default days 7, got %d", cfg.Chart.DefaultDays)
	}
	if cfg.Chart.HourlyTTL != 2*time.Minute {
		t.Errorf("expected hourly ttl 2m, got %s", cfg.Chart.HourlyTTL)
	}
	if cfg.Storage.Archive.Path != "/tmp/coinchart/archive" {
		t.Errorf("unexpected archive path %s", cfg.Storage.Archive.Path)
	}

	// Values absent from the file fall back to defaults
	if cfg.CoinGecko.BaseURL != "https://api.coingecko.com/api/v3" {
		t.Errorf("expected default base url, got %s", cfg.CoinGecko.BaseURL)
	}
	if len(cfg.Chart.Ranges) != 5 {
		t.Errorf("expected default ranges, got %v", cfg.Chart.Ranges)
	}
	if cfg.TradingView.ScriptURL != "https://s3.tradingview.com/tv.js" {
		t.Errorf("expected default script url, got %s", cfg.TradingView.ScriptURL)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("COINCHART_TEST_KEY", "from-env")

	content := []byte(`
coingecko:
  api_key: "${COINCHART_TEST_KEY}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.CoinGecko.APIKey != "from-env" {
		t.Errorf("expected api key from env, got %q", cfg.CoinGecko.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Chart.DefaultDays != 30 {
		t.Errorf("expected default days 30, got %d", cfg.Chart.DefaultDays)
	}
	if cfg.CoinGecko.VsCurrency != "usd" {
		t.Errorf("expected default currency usd, got %s", cfg.CoinGecko.VsCurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr *core.Error
	}{
		{"valid defaults", func(c *Config) {}, nil},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"missing base url", func(c *Config) { c.CoinGecko.BaseURL = "" }, core.ErrConfigMissing},
		{"zero rate limit", func(c *Config) { c.CoinGecko.RateLimitPerSec = 0 }, core.ErrConfigInvalid},
		{"no ranges", func(c *Config) { c.Chart.Ranges = nil }, core.ErrConfigMissing},
		{"negative range", func(c *Config) { c.Chart.Ranges = []int{-1, 30} }, core.ErrConfigInvalid},
		{"default not in ranges", func(c *Config) { c.Chart.DefaultDays = 14 }, core.ErrConfigInvalid},
		{"bad timezone", func(c *Config) { c.Chart.TimezoneOffsetHours = 20 }, core.ErrConfigInvalid},
		{"tradingview without script", func(c *Config) {
			c.TradingView.Enabled = true
			c.TradingView.ScriptURL = ""
		}, core.ErrConfigMissing},
		{"localfs without path", func(c *Config) { c.Storage.Archive.Path = "" }, core.ErrConfigMissing},
		{"s3 without bucket", func(c *Config) { c.Storage.Archive.Type = "s3" }, core.ErrConfigMissing},
		{"unknown archive", func(c *Config) { c.Storage.Archive.Type = "ftp" }, core.ErrConfigInvalid},
		{"archive disabled", func(c *Config) { c.Storage.Archive = ArchiveConfig{} }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %s, got %v", tt.wantErr.Code, err)
			}
		})
	}
}
