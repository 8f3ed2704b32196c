// Package tradingview maps coins to TradingView widget symbols.
package tradingview

import (
	"strings"

	"github.com/newthinker/coinchart/internal/config"
)

// Resolver picks the TradingView symbol shown for a coin, if any.
type Resolver struct {
	enabled           bool
	defaultExchange   string
	defaultQuote      string
	useDefaultMapping bool
	symbols           map[string]string
}

// NewResolver builds a resolver from configuration. Mapping keys are
// matched case-insensitively; blank keys or values are ignored.
func NewResolver(cfg config.TradingViewConfig) *Resolver {
	r := &Resolver{
		enabled:           cfg.Enabled,
		defaultExchange:   strings.TrimSpace(cfg.DefaultExchange),
		defaultQuote:      strings.TrimSpace(cfg.DefaultQuote),
		useDefaultMapping: cfg.UseDefaultMapping,
		symbols:           make(map[string]string, len(cfg.Symbols)),
	}
	for k, v := range cfg.Symbols {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		r.symbols[strings.ToLower(k)] = v
	}
	return r
}

// Resolve returns the widget symbol for a coin. The explicit mapping is
// checked by coin id, then by ticker symbol; otherwise, when default
// mapping is on, EXCHANGE:SYMBOLQUOTE is built from the ticker.
func (r *Resolver) Resolve(coinID, symbol string) (string, bool) {
	if r == nil || !r.enabled {
		return "", false
	}
	if mapped, ok := r.lookup(coinID); ok {
		return mapped, true
	}
	if mapped, ok := r.lookup(symbol); ok {
		return mapped, true
	}
	if !r.useDefaultMapping {
		return "", false
	}

	symbol = strings.TrimSpace(symbol)
	if symbol == "" || r.defaultExchange == "" || r.defaultQuote == "" {
		return "", false
	}
	return strings.ToUpper(r.defaultExchange) + ":" + strings.ToUpper(symbol) + strings.ToUpper(r.defaultQuote), true
}

func (r *Resolver) lookup(key string) (string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", false
	}
	v, ok := r.symbols[key]
	return v, ok
}
