// internal/api/handler/api/coins.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/newthinker/coinchart/internal/api/response"
	"github.com/newthinker/coinchart/internal/core"
	"go.uber.org/zap"
)

// MarketData provides coin charts and details.
type MarketData interface {
	MarketChart(ctx context.Context, coinID string, days int, currency string) (core.MarketChart, error)
	CoinDetail(ctx context.Context, coinID, currency string) (*core.CoinDetail, error)
}

// CoinsHandler handles coin API requests.
type CoinsHandler struct {
	data        MarketData
	defaultDays int
	logger      *zap.Logger
}

// NewCoinsHandler creates a new coins handler.
func NewCoinsHandler(data MarketData, defaultDays int, logger *zap.Logger) *CoinsHandler {
	if defaultDays < 1 {
		defaultDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoinsHandler{data: data, defaultDays: defaultDays, logger: logger}
}

// MarketChart handles GET /api/coins/{coinId}/market-chart.
// The chart is written without the success envelope.
func (h *CoinsHandler) MarketChart(w http.ResponseWriter, r *http.Request) {
	coinID := strings.TrimSpace(r.PathValue("coinId"))

	days, err := ParseDays(r.URL.Query().Get("days"), h.defaultDays)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	chart, err := h.data.MarketChart(r.Context(), coinID, days, r.URL.Query().Get("vs_currency"))
	if err != nil {
		h.logger.Warn("market chart request failed",
			zap.String("coin", coinID),
			zap.Int("days", days),
			zap.Error(err),
		)
		response.Error(w, response.StatusFor(err), err)
		return
	}

	response.Raw(w, http.StatusOK, chart)
}

// Detail handles GET /api/coins/{coinId}.
func (h *CoinsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	coinID := strings.TrimSpace(r.PathValue("coinId"))

	detail, err := h.data.CoinDetail(r.Context(), coinID, r.URL.Query().Get("vs_currency"))
	if err != nil {
		h.logger.Warn("coin detail request failed", zap.String("coin", coinID), zap.Error(err))
		response.Error(w, response.StatusFor(err), err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"coin": detail,
	})
}

// ParseDays reads a days query value; empty means fallback.
func ParseDays(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return 0, core.WrapError(core.ErrInvalidRange, fmt.Errorf("days must be a positive integer, got %q", raw))
	}
	return days, nil
}
