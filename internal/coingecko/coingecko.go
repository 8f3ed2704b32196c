package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/coinchart/internal/core"
	"golang.org/x/time/rate"
)

const (
	baseURL = "https://api.coingecko.com/api/v3"

	// dailyIntervalDays is the range from which daily granularity is requested
	dailyIntervalDays = 90
)

// Options configures a CoinGecko client
type Options struct {
	BaseURL         string
	APIKey          string
	RateLimitPerSec float64
	RateBurst       int
	Timeout         time.Duration
}

// CoinGecko fetches market charts and coin details from the CoinGecko API
type CoinGecko struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// New creates a new CoinGecko client with default settings
func New(apiKey string) *CoinGecko {
	return NewWithOptions(Options{APIKey: apiKey})
}

// NewWithBaseURL creates a CoinGecko client with custom base URL (for testing)
func NewWithBaseURL(apiKey, url string) *CoinGecko {
	return NewWithOptions(Options{APIKey: apiKey, BaseURL: url, RateLimitPerSec: 1000, RateBurst: 1000})
}

// NewWithOptions creates a CoinGecko client
func NewWithOptions(opts Options) *CoinGecko {
	if opts.BaseURL == "" {
		opts.BaseURL = baseURL
	}
	if opts.RateLimitPerSec <= 0 {
		opts.RateLimitPerSec = 0.5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &CoinGecko{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateBurst),
	}
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

// marketChartResponse is the raw /market_chart payload: [[ms, value], ...]
type marketChartResponse struct {
	Prices       [][]float64 `json:"prices"`
	MarketCaps   [][]float64 `json:"market_caps"`
	TotalVolumes [][]float64 `json:"total_volumes"`
}

// MarketChart fetches price, market cap and volume series for a coin
func (c *CoinGecko) MarketChart(ctx context.Context, coinID string, days int, vsCurrency string) (core.MarketChart, error) {
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(vsCurrency))
	q.Set("days", strconv.Itoa(days))
	if days >= dailyIntervalDays {
		q.Set("interval", "daily")
	}

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", c.baseURL, url.PathEscape(coinID), q.Encode())

	var raw marketChartResponse
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return core.MarketChart{}, err
	}

	return core.MarketChart{
		Prices:       toPoints(raw.Prices),
		MarketCaps:   toPoints(raw.MarketCaps),
		TotalVolumes: toPoints(raw.TotalVolumes),
	}, nil
}

// coinDetailResponse holds the subset of /coins/{id} used for the detail page
type coinDetailResponse struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description struct {
		En string `json:"en"`
	} `json:"description"`
	Links struct {
		Homepage []string `json:"homepage"`
	} `json:"links"`
	MarketData struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		High24h                  map[string]float64 `json:"high_24h"`
		Low24h                   map[string]float64 `json:"low_24h"`
		PriceChangePercentage24h float64            `json:"price_change_percentage_24h"`
	} `json:"market_data"`
}

// CoinDetail fetches coin metadata and current market data in vsCurrency
func (c *CoinGecko) CoinDetail(ctx context.Context, coinID, vsCurrency string) (*core.CoinDetail, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")

	endpoint := fmt.Sprintf("%s/coins/%s?%s", c.baseURL, url.PathEscape(coinID), q.Encode())

	var raw coinDetailResponse
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return nil, err
	}

	currency := strings.ToLower(vsCurrency)
	detail := &core.CoinDetail{
		ID:                       raw.ID,
		Symbol:                   raw.Symbol,
		Name:                     raw.Name,
		Description:              raw.Description.En,
		CurrentPrice:             raw.MarketData.CurrentPrice[currency],
		MarketCap:                raw.MarketData.MarketCap[currency],
		PriceChangePercentage24h: raw.MarketData.PriceChangePercentage24h,
		High24h:                  raw.MarketData.High24h[currency],
		Low24h:                   raw.MarketData.Low24h[currency],
	}
	for _, home := range raw.Links.Homepage {
		if home != "" {
			detail.Homepage = home
			break
		}
	}

	return detail, nil
}

func (c *CoinGecko) get(ctx context.Context, endpoint string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return core.WrapError(core.ErrRateLimited, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return core.WrapError(core.ErrCoinNotFound, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}

// toPoints converts [[ms, value], ...] pairs, skipping short entries
func toPoints(pairs [][]float64) []core.PricePoint {
	points := make([]core.PricePoint, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		points = append(points, core.PricePoint{
			Timestamp: int64(pair[0]),
			Value:     pair[1],
		})
	}
	return points
}
