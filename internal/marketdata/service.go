// Package marketdata serves coin market charts and details through a
// cache-aside layer over an upstream provider.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/coinchart/internal/core"
	"github.com/newthinker/coinchart/internal/metrics"
	"github.com/newthinker/coinchart/internal/storage/archive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Provider is the upstream source of market data
type Provider interface {
	MarketChart(ctx context.Context, coinID string, days int, vsCurrency string) (core.MarketChart, error)
	CoinDetail(ctx context.Context, coinID, vsCurrency string) (*core.CoinDetail, error)
}

// Options controls cache lifetimes
type Options struct {
	DefaultCurrency string
	// HourlyTTL applies to ranges up to DailyThreshold days
	HourlyTTL time.Duration
	// DailyTTL applies to ranges above DailyThreshold days
	DailyTTL       time.Duration
	DailyThreshold int
}

type chartEntry struct {
	chart     core.MarketChart
	expiresAt time.Time
}

type detailEntry struct {
	detail    core.CoinDetail
	expiresAt time.Time
}

// snapshot is the archived form of a market chart
type snapshot struct {
	CoinID     string           `json:"coinId"`
	Days       int              `json:"days"`
	VsCurrency string           `json:"vsCurrency"`
	FetchedAt  time.Time        `json:"fetchedAt"`
	Chart      core.MarketChart `json:"chart"`
}

// Service caches provider responses in memory and snapshots charts to an
// optional archive used when the provider is rate limited.
type Service struct {
	provider Provider
	archive  archive.Storage
	metrics  *metrics.Registry
	logger   *zap.Logger
	opts     Options
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	charts  map[string]chartEntry
	details map[string]detailEntry
}

// NewService creates a market data service. store and reg may be nil.
func NewService(provider Provider, store archive.Storage, reg *metrics.Registry, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "usd"
	}
	if opts.HourlyTTL <= 0 {
		opts.HourlyTTL = 5 * time.Minute
	}
	if opts.DailyTTL <= 0 {
		opts.DailyTTL = 30 * time.Minute
	}
	if opts.DailyThreshold <= 0 {
		opts.DailyThreshold = 90
	}

	return &Service{
		provider: provider,
		archive:  store,
		metrics:  reg,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		charts:   make(map[string]chartEntry),
		details:  make(map[string]detailEntry),
	}
}

// NormalizeCurrency lowercases currency, falling back to the default
func (s *Service) NormalizeCurrency(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return s.opts.DefaultCurrency
	}
	return currency
}

func chartKey(coinID string, days int, currency string) string {
	return coinID + ":" + strconv.Itoa(days) + ":" + currency
}

func snapshotPath(coinID string, days int, currency string) string {
	return fmt.Sprintf("charts/%s/%s/%d.json", coinID, currency, days)
}

func (s *Service) ttlFor(days int) time.Duration {
	if days > s.opts.DailyThreshold {
		return s.opts.DailyTTL
	}
	return s.opts.HourlyTTL
}

// MarketChart returns the chart for coinID over days in currency.
// Empty results are never cached. A rate-limited provider is answered from
// the stale memory entry, then the archive, then an empty chart.
func (s *Service) MarketChart(ctx context.Context, coinID string, days int, currency string) (core.MarketChart, error) {
	if days < 1 {
		return core.MarketChart{}, core.WrapError(core.ErrInvalidRange, fmt.Errorf("days must be positive, got %d", days))
	}
	currency = s.NormalizeCurrency(currency)
	key := chartKey(coinID, days, currency)

	s.mu.RLock()
	entry, cached := s.charts[key]
	s.mu.RUnlock()
	if cached && s.now().Before(entry.expiresAt) {
		s.recordCache("memory", true)
		return entry.chart, nil
	}
	s.recordCache("memory", false)

	v, err, _ := s.group.Do("chart:"+key, func() (any, error) {
		return s.fetchChart(ctx, coinID, days, currency)
	})
	if err != nil {
		return core.MarketChart{}, err
	}
	return v.(core.MarketChart), nil
}

func (s *Service) fetchChart(ctx context.Context, coinID string, days int, currency string) (core.MarketChart, error) {
	key := chartKey(coinID, days, currency)

	chart, err := s.provider.MarketChart(ctx, coinID, days, currency)
	s.recordUpstream("market_chart", err)
	if err == nil {
		if chart.IsEmpty() {
			return core.EmptyMarketChart(), nil
		}
		s.mu.Lock()
		s.charts[key] = chartEntry{chart: chart, expiresAt: s.now().Add(s.ttlFor(days))}
		s.mu.Unlock()
		s.writeSnapshot(ctx, coinID, days, currency, chart)
		return chart, nil
	}

	if !errors.Is(err, core.ErrRateLimited) {
		return core.MarketChart{}, err
	}

	s.mu.RLock()
	entry, cached := s.charts[key]
	s.mu.RUnlock()
	if cached {
		s.logger.Warn("rate limit hit, serving stale chart", zap.String("key", key))
		s.recordCache("stale", true)
		return entry.chart, nil
	}

	if snap, ok := s.readSnapshot(ctx, coinID, days, currency); ok {
		s.logger.Warn("rate limit hit, serving archived chart",
			zap.String("key", key),
			zap.Time("fetched_at", snap.FetchedAt),
		)
		s.recordCache("archive", true)
		return snap.Chart, nil
	}

	s.logger.Warn("rate limit hit, serving empty chart", zap.String("key", key))
	return core.EmptyMarketChart(), nil
}

func (s *Service) writeSnapshot(ctx context.Context, coinID string, days int, currency string, chart core.MarketChart) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(snapshot{
		CoinID:     coinID,
		Days:       days,
		VsCurrency: currency,
		FetchedAt:  s.now().UTC(),
		Chart:      chart,
	})
	if err != nil {
		s.logger.Warn("encoding chart snapshot", zap.Error(err))
		return
	}
	if err := s.archive.Write(ctx, snapshotPath(coinID, days, currency), data); err != nil {
		s.logger.Warn("writing chart snapshot",
			zap.String("coin", coinID),
			zap.Error(core.WrapError(core.ErrArchiveFailed, err)),
		)
	}
}

func (s *Service) readSnapshot(ctx context.Context, coinID string, days int, currency string) (snapshot, bool) {
	if s.archive == nil {
		return snapshot{}, false
	}
	data, err := s.archive.Read(ctx, snapshotPath(coinID, days, currency))
	if err != nil {
		if !errors.Is(err, archive.ErrNotFound) {
			s.logger.Warn("reading chart snapshot", zap.String("coin", coinID), zap.Error(err))
		}
		return snapshot{}, false
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("decoding chart snapshot", zap.String("coin", coinID), zap.Error(err))
		return snapshot{}, false
	}
	return snap, true
}

// CoinDetail returns coin details priced in currency
func (s *Service) CoinDetail(ctx context.Context, coinID, currency string) (*core.CoinDetail, error) {
	currency = s.NormalizeCurrency(currency)
	key := coinID + ":" + currency

	s.mu.RLock()
	entry, cached := s.details[key]
	s.mu.RUnlock()
	if cached && s.now().Before(entry.expiresAt) {
		d := entry.detail
		return &d, nil
	}

	v, err, _ := s.group.Do("detail:"+key, func() (any, error) {
		detail, err := s.provider.CoinDetail(ctx, coinID, currency)
		s.recordUpstream("coin_detail", err)
		if err != nil {
			if cached && errors.Is(err, core.ErrRateLimited) {
				s.logger.Warn("rate limit hit, serving stale coin detail", zap.String("key", key))
				return entry.detail, nil
			}
			return nil, err
		}
		s.mu.Lock()
		s.details[key] = detailEntry{detail: *detail, expiresAt: s.now().Add(s.opts.HourlyTTL)}
		s.mu.Unlock()
		return *detail, nil
	})
	if err != nil {
		return nil, err
	}
	d := v.(core.CoinDetail)
	return &d, nil
}

func (s *Service) recordCache(tier string, hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(tier, hit)
	}
}

func (s *Service) recordUpstream(endpoint string, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		status = strings.ToLower(coreErr.Code)
	} else if err != nil {
		status = "error"
	}
	s.metrics.RecordUpstream(endpoint, status)
}
