// internal/api/handler/web/coin_detail.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/newthinker/coinchart/internal/api/handler/api"
	"github.com/newthinker/coinchart/internal/core"
	"go.uber.org/zap"
)

// RangeOption is one button of the chart range selector
type RangeOption struct {
	Days   int
	Label  string
	Active bool
}

// CoinDetailData holds data for the coin detail page template
type CoinDetailData struct {
	Title             string
	Theme             string
	Coin              *core.CoinDetail
	CoinID            string
	VsCurrency        string
	CurrencyCode      string
	DefaultDays       int
	Ranges            []RangeOption
	TradingViewSymbol string
	// ChartJSON is the embedded initial series, empty when the widget is used
	ChartJSON string
}

// CoinDetail renders the coin detail page for GET /coins/{coinId}
func (h *Handler) CoinDetail(w http.ResponseWriter, r *http.Request) {
	coinID := strings.TrimSpace(r.PathValue("coinId"))
	q := r.URL.Query()

	currency := strings.ToLower(strings.TrimSpace(q.Get("vs_currency")))
	if currency == "" {
		currency = "usd"
	}
	days, err := api.ParseDays(q.Get("days"), h.opts.DefaultDays)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	detail, err := h.data.CoinDetail(r.Context(), coinID, currency)
	if err != nil {
		h.logger.Warn("loading coin detail", zap.String("coin", coinID), zap.Error(err))
		if errors.Is(err, core.ErrCoinNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "coin data is temporarily unavailable", http.StatusBadGateway)
		return
	}

	data := CoinDetailData{
		Title:        detail.Name,
		Theme:        q.Get("theme"),
		Coin:         detail,
		CoinID:       coinID,
		VsCurrency:   currency,
		CurrencyCode: strings.ToUpper(currency),
		DefaultDays:  days,
		Ranges:       h.rangeOptions(days),
	}

	if h.symbols != nil {
		if symbol, ok := h.symbols.Resolve(coinID, detail.Symbol); ok {
			data.TradingViewSymbol = symbol
		}
	}

	// The local chart is only needed without a widget
	if data.TradingViewSymbol == "" {
		data.ChartJSON = h.initialSeries(r, coinID, days, currency)
	}

	h.render(w, "coin_detail.html", data)
}

// initialSeries returns the embedded chart blob, or "" to let the page
// fetch it
func (h *Handler) initialSeries(r *http.Request, coinID string, days int, currency string) string {
	chart, err := h.data.MarketChart(r.Context(), coinID, days, currency)
	if err != nil {
		h.logger.Warn("loading initial chart", zap.String("coin", coinID), zap.Int("days", days), zap.Error(err))
		return ""
	}
	blob, err := json.Marshal(struct {
		Prices []core.PricePoint `json:"prices"`
	}{chart.Prices})
	if err != nil {
		return ""
	}
	return string(blob)
}

func (h *Handler) rangeOptions(active int) []RangeOption {
	opts := make([]RangeOption, 0, len(h.opts.Ranges))
	for _, days := range h.opts.Ranges {
		opts = append(opts, RangeOption{Days: days, Label: rangeLabel(days), Active: days == active})
	}
	return opts
}

func rangeLabel(days int) string {
	switch {
	case days == 7:
		return "1W"
	case days == 365:
		return "1Y"
	case days >= 30 && days%30 == 0:
		return strconv.Itoa(days/30) + "M"
	default:
		return strconv.Itoa(days) + "D"
	}
}
