// Package chart drives the canvas price chart of the coin detail page: it
// parses the page configuration, fetches series for the selected range and
// renders them through a Charts implementation.
package chart

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/newthinker/coinchart/internal/core"
	"go.uber.org/zap"
)

const (
	DefaultCurrency  = "usd"
	DefaultRangeDays = 30
)

// Config is the per-page chart configuration.
type Config struct {
	CoinID string
	// VsCurrency is lowercase
	VsCurrency       string
	DefaultRangeDays int
	// ExternalSymbol selects the embedded widget when non-empty
	ExternalSymbol string
	// InitialSeries is the series embedded in the page; nil when absent
	InitialSeries []core.PricePoint
}

// CurrencyCode returns the uppercase currency shown in labels.
func (c Config) CurrencyCode() string {
	return strings.ToUpper(c.VsCurrency)
}

// embeddedChart is the data-chart payload
type embeddedChart struct {
	Prices []core.PricePoint `json:"prices"`
}

// ParseConfig builds a Config from a chart script dataset. A malformed
// embedded chart is logged and treated as absent.
func ParseConfig(data map[string]string, logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := Config{
		CoinID:           strings.TrimSpace(data["coinId"]),
		VsCurrency:       strings.ToLower(strings.TrimSpace(data["vsCurrency"])),
		DefaultRangeDays: DefaultRangeDays,
		ExternalSymbol:   strings.TrimSpace(data["tradingviewSymbol"]),
	}
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = DefaultCurrency
	}

	if raw := strings.TrimSpace(data["defaultDays"]); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			logger.Warn("invalid default range, using fallback",
				zap.String("value", raw),
				zap.Int("fallback", DefaultRangeDays),
			)
		} else {
			cfg.DefaultRangeDays = days
		}
	}

	if raw := strings.TrimSpace(data["chart"]); raw != "" {
		var embedded embeddedChart
		if err := json.Unmarshal([]byte(raw), &embedded); err != nil {
			logger.Warn("failed to parse embedded chart data", zap.Error(err))
		} else {
			cfg.InitialSeries = embedded.Prices
			if cfg.InitialSeries == nil {
				cfg.InitialSeries = []core.PricePoint{}
			}
		}
	}

	return cfg
}
