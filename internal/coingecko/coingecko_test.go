package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/coinchart/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinGecko_Name(t *testing.T) {
	c := New("")
	if c.Name() != "coingecko" {
		t.Errorf("expected 'coingecko', got '%s'", c.Name())
	}
}

func TestCoinGecko_MarketChart(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"prices": [[1700000000000, 50000.12], [1700003600000, 50100.5], [1700007200000]],
			"market_caps": [[1700000000000, 980000000000]],
			"total_volumes": [[1700000000000, 21000000000]]
		}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL("demo", srv.URL)
	chart, err := c.MarketChart(context.Background(), "bitcoin", 30, "USD")
	require.NoError(t, err)

	assert.Equal(t, "/coins/bitcoin/market_chart", gotPath)
	assert.Equal(t, "days=30&vs_currency=usd", gotQuery)
	assert.Equal(t, "demo", gotKey)

	// Short pair is dropped, order preserved
	require.Len(t, chart.Prices, 2)
	assert.Equal(t, core.PricePoint{Timestamp: 1700000000000, Value: 50000.12}, chart.Prices[0])
	assert.Equal(t, 50100.5, chart.Prices[1].Value)
	assert.Len(t, chart.MarketCaps, 1)
	assert.Len(t, chart.TotalVolumes, 1)
}

func TestCoinGecko_MarketChart_DailyInterval(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"prices":[]}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL("", srv.URL)
	_, err := c.MarketChart(context.Background(), "ethereum", 365, "krw")
	require.NoError(t, err)
	assert.Equal(t, "days=365&interval=daily&vs_currency=krw", gotQuery)
}

func TestCoinGecko_MarketChart_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   *core.Error
	}{
		{"rate limited", http.StatusTooManyRequests, core.ErrRateLimited},
		{"not found", http.StatusNotFound, core.ErrCoinNotFound},
		{"server error", http.StatusInternalServerError, core.ErrProviderFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewWithBaseURL("", srv.URL)
			_, err := c.MarketChart(context.Background(), "bitcoin", 1, "usd")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCoinGecko_MarketChart_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices": "nope"`))
	}))
	defer srv.Close()

	c := NewWithBaseURL("", srv.URL)
	_, err := c.MarketChart(context.Background(), "bitcoin", 1, "usd")
	assert.ErrorIs(t, err, core.ErrProviderFailed)
}

func TestCoinGecko_MarketChart_CanceledContext(t *testing.T) {
	c := NewWithOptions(Options{BaseURL: "http://127.0.0.1:0", RateLimitPerSec: 0.001, RateBurst: 1})
	// Drain the single burst token so Wait has to block
	c.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.MarketChart(ctx, "bitcoin", 1, "usd")
	assert.ErrorIs(t, err, core.ErrProviderFailed)
}

func TestCoinGecko_CoinDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("tickers"))
		w.Write([]byte(`{
			"id": "bitcoin",
			"symbol": "btc",
			"name": "Bitcoin",
			"description": {"en": "Digital gold"},
			"links": {"homepage": ["", "https://bitcoin.org"]},
			"market_data": {
				"current_price": {"usd": 50000.12, "krw": 65000000},
				"market_cap": {"usd": 980000000000},
				"high_24h": {"usd": 51000},
				"low_24h": {"usd": 49000},
				"price_change_percentage_24h": 1.25
			}
		}`))
	}))
	defer srv.Close()

	c := NewWithBaseURL("", srv.URL)
	detail, err := c.CoinDetail(context.Background(), "bitcoin", "USD")
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", detail.ID)
	assert.Equal(t, "btc", detail.Symbol)
	assert.Equal(t, "Bitcoin", detail.Name)
	assert.Equal(t, "Digital gold", detail.Description)
	assert.Equal(t, "https://bitcoin.org", detail.Homepage)
	assert.Equal(t, 50000.12, detail.CurrentPrice)
	assert.Equal(t, 980000000000.0, detail.MarketCap)
	assert.Equal(t, 51000.0, detail.High24h)
	assert.Equal(t, 49000.0, detail.Low24h)
	assert.Equal(t, 1.25, detail.PriceChangePercentage24h)
}
