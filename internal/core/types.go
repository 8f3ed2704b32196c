package core

import "time"

// PricePoint is a single sample of a price series.
// Timestamp is epoch milliseconds.
type PricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// Time returns the point timestamp as a time.Time.
func (p PricePoint) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// MarketChart holds the series returned for a coin over a number of days.
// Series are kept in the order delivered by the provider.
type MarketChart struct {
	Prices       []PricePoint `json:"prices"`
	MarketCaps   []PricePoint `json:"marketCaps"`
	TotalVolumes []PricePoint `json:"totalVolumes"`
}

// EmptyMarketChart returns a chart with non-nil empty series so it
// serializes as empty arrays rather than null.
func EmptyMarketChart() MarketChart {
	return MarketChart{
		Prices:       []PricePoint{},
		MarketCaps:   []PricePoint{},
		TotalVolumes: []PricePoint{},
	}
}

// IsEmpty reports whether every series is empty.
func (m MarketChart) IsEmpty() bool {
	return len(m.Prices) == 0 && len(m.MarketCaps) == 0 && len(m.TotalVolumes) == 0
}

// CoinDetail is the coin summary shown above the chart
type CoinDetail struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Description              string  `json:"description,omitempty"`
	Homepage                 string  `json:"homepage,omitempty"`
	CurrentPrice             float64 `json:"currentPrice"`
	MarketCap                float64 `json:"marketCap"`
	PriceChangePercentage24h float64 `json:"priceChangePercentage24h"`
	High24h                  float64 `json:"high24h"`
	Low24h                   float64 `json:"low24h"`
}
