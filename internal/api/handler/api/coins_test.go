// internal/api/handler/api/coins_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/coinchart/internal/api/response"
	"github.com/newthinker/coinchart/internal/core"
)

type stubMarketData struct {
	chart     core.MarketChart
	detail    *core.CoinDetail
	err       error
	gotCoin   string
	gotDays   int
	gotCcy    string
	chartHits int
}

func (s *stubMarketData) MarketChart(ctx context.Context, coinID string, days int, currency string) (core.MarketChart, error) {
	s.chartHits++
	s.gotCoin, s.gotDays, s.gotCcy = coinID, days, currency
	return s.chart, s.err
}

func (s *stubMarketData) CoinDetail(ctx context.Context, coinID, currency string) (*core.CoinDetail, error) {
	s.gotCoin, s.gotCcy = coinID, currency
	return s.detail, s.err
}

func newMux(h *CoinsHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/coins/{coinId}/market-chart", h.MarketChart)
	mux.HandleFunc("GET /api/coins/{coinId}", h.Detail)
	return mux
}

func TestCoinsHandler_MarketChart(t *testing.T) {
	data := &stubMarketData{chart: core.MarketChart{
		Prices: []core.PricePoint{{Timestamp: 1700000000000, Value: 50000.12}},
	}}
	mux := newMux(NewCoinsHandler(data, 30, nil))

	req := httptest.NewRequest("GET", "/api/coins/bitcoin/market-chart?days=7&vs_currency=usd", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if data.gotCoin != "bitcoin" || data.gotDays != 7 || data.gotCcy != "usd" {
		t.Errorf("unexpected call: %s %d %s", data.gotCoin, data.gotDays, data.gotCcy)
	}

	var chart core.MarketChart
	if err := json.Unmarshal(w.Body.Bytes(), &chart); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(chart.Prices) != 1 || chart.Prices[0].Value != 50000.12 {
		t.Errorf("unexpected prices: %+v", chart.Prices)
	}
}

func TestCoinsHandler_MarketChart_DefaultDays(t *testing.T) {
	data := &stubMarketData{chart: core.EmptyMarketChart()}
	mux := newMux(NewCoinsHandler(data, 90, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/coins/ethereum/market-chart", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if data.gotDays != 90 {
		t.Errorf("expected default 90 days, got %d", data.gotDays)
	}
}

func TestCoinsHandler_MarketChart_InvalidDays(t *testing.T) {
	for _, days := range []string{"0", "-3", "abc"} {
		data := &stubMarketData{}
		mux := newMux(NewCoinsHandler(data, 30, nil))

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/coins/bitcoin/market-chart?days="+days, nil))

		if w.Code != http.StatusBadRequest {
			t.Errorf("days=%s: expected 400, got %d", days, w.Code)
		}
		if data.chartHits != 0 {
			t.Errorf("days=%s: provider must not be called", days)
		}

		var resp response.ErrorResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Error.Code != "INVALID_RANGE" {
			t.Errorf("days=%s: expected INVALID_RANGE, got %s", days, resp.Error.Code)
		}
	}
}

func TestCoinsHandler_MarketChart_UpstreamError(t *testing.T) {
	data := &stubMarketData{err: core.WrapError(core.ErrProviderFailed, errors.New("503"))}
	mux := newMux(NewCoinsHandler(data, 30, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/coins/bitcoin/market-chart?days=30", nil))

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestCoinsHandler_Detail(t *testing.T) {
	data := &stubMarketData{detail: &core.CoinDetail{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}}
	mux := newMux(NewCoinsHandler(data, 30, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/coins/bitcoin?vs_currency=krw", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if data.gotCcy != "krw" {
		t.Errorf("expected krw, got %s", data.gotCcy)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	coin := resp.Data.(map[string]any)["coin"].(map[string]any)
	if coin["name"] != "Bitcoin" {
		t.Errorf("expected Bitcoin, got %v", coin["name"])
	}
}

func TestCoinsHandler_Detail_NotFound(t *testing.T) {
	data := &stubMarketData{err: core.WrapError(core.ErrCoinNotFound, errors.New("404"))}
	mux := newMux(NewCoinsHandler(data, 30, nil))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/coins/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestParseDays(t *testing.T) {
	if d, err := ParseDays("", 30); err != nil || d != 30 {
		t.Errorf("empty: got %d, %v", d, err)
	}
	if d, err := ParseDays(" 365 ", 30); err != nil || d != 365 {
		t.Errorf("365: got %d, %v", d, err)
	}
	if _, err := ParseDays("1.5", 30); !errors.Is(err, core.ErrInvalidRange) {
		t.Errorf("1.5: expected INVALID_RANGE, got %v", err)
	}
}
