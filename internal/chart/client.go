package chart

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
)

// SeriesSource loads the price series of a coin.
type SeriesSource interface {
	PriceSeries(ctx context.Context, coinID string, days int, currency string) ([]core.PricePoint, error)
}

// Client reads price series from the coinchart market-chart endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the server at baseURL. A nil httpClient
// uses a client with a 15s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
	}
}

// PriceSeries implements SeriesSource.
func (c *Client) PriceSeries(ctx context.Context, coinID string, days int, currency string) ([]core.PricePoint, error) {
	q := url.Values{}
	q.Set("days", strconv.Itoa(days))
	q.Set("vs_currency", currency)
	endpoint := fmt.Sprintf("%s/api/coins/%s/market-chart?%s", c.baseURL, url.PathEscape(coinID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var chart core.MarketChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return chart.Prices, nil
}
