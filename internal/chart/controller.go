package chart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/coinchart/internal/core"
	"github.com/newthinker/coinchart/internal/metrics"
	"github.com/newthinker/coinchart/internal/page"
	"go.uber.org/zap"
)

// State is the controller lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ControllerOptions configures a Controller. Zero values are usable.
type ControllerOptions struct {
	Logger  *zap.Logger
	Metrics *metrics.Registry
	// Location is the display time zone of x-axis labels
	Location *time.Location
}

// Controller renders the local price chart and reacts to range selection.
// A single chart instance is created on first render and updated in place.
type Controller struct {
	doc       page.Document
	charts    Charts
	source    SeriesSource
	formatter Formatter
	logger    *zap.Logger
	metrics   *metrics.Registry

	mu          sync.Mutex
	cfg         Config
	state       State
	initialized bool
	currentDays int
	// seq identifies the latest fetch; older responses are dropped
	seq      uint64
	buttons  []rangeButton
	instance Instance
}

type rangeButton struct {
	days int
	btn  page.RangeButton
}

// NewController creates a Controller drawing on doc's canvas.
func NewController(doc page.Document, charts Charts, source SeriesSource, opts ControllerOptions) *Controller {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{
		doc:       doc,
		charts:    charts,
		source:    source,
		formatter: NewFormatter(opts.Location),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentRange returns the selected range in days.
func (c *Controller) CurrentRange() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentDays
}

// Initialize shows the local chart, marks the default range active and
// renders the embedded series, or fetches the default range when there is
// none. It does nothing without a canvas or coin id, or when already
// initialized.
func (c *Controller) Initialize(ctx context.Context, cfg Config) {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		c.logger.Debug("chart already initialized", zap.String("coin", cfg.CoinID))
		return
	}

	canvas, ok := c.doc.ElementByID(page.CanvasID)
	if !ok || cfg.CoinID == "" {
		c.mu.Unlock()
		c.logger.Debug("chart canvas or coin id missing, skipping",
			zap.Bool("canvas", ok),
			zap.String("coin", cfg.CoinID),
		)
		return
	}
	if cfg.DefaultRangeDays < 1 {
		cfg.DefaultRangeDays = DefaultRangeDays
	}
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = DefaultCurrency
	}

	c.initialized = true
	c.cfg = cfg
	c.currentDays = cfg.DefaultRangeDays

	canvas.Show()
	if sel, ok := c.doc.RangeSelector(); ok {
		sel.Show()
	}
	c.bindButtons(ctx)
	c.markActive(c.currentDays)

	if len(cfg.InitialSeries) > 0 {
		c.renderLocked(cfg.InitialSeries)
		c.mu.Unlock()
		return
	}

	seq := c.beginLoadLocked()
	days := c.currentDays
	c.mu.Unlock()

	c.finishLoad(seq, c.FetchSeries(ctx, days))
}

// SelectRange switches to a new range, fetches it and re-renders. Days that
// no button offers and the current range are ignored.
func (c *Controller) SelectRange(ctx context.Context, days int) {
	c.mu.Lock()
	if !c.initialized || !c.recognized(days) || days == c.currentDays {
		c.mu.Unlock()
		return
	}
	c.currentDays = days
	c.markActive(days)
	seq := c.beginLoadLocked()
	c.mu.Unlock()

	c.finishLoad(seq, c.FetchSeries(ctx, days))
}

// FetchSeries loads the price series for days. Failures are logged and
// yield an empty series.
func (c *Controller) FetchSeries(ctx context.Context, days int) []core.PricePoint {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	points, err := c.source.PriceSeries(ctx, cfg.CoinID, days, cfg.VsCurrency)
	if err != nil {
		c.logger.Warn("failed to fetch chart data",
			zap.String("coin", cfg.CoinID),
			zap.Int("days", days),
			zap.Error(err),
		)
		c.recordFetch("failed")
		return []core.PricePoint{}
	}
	if len(points) == 0 {
		c.recordFetch("empty")
		return []core.PricePoint{}
	}
	c.recordFetch("ok")
	return points
}

// Render draws points for the current range, creating the chart on first
// use and updating it in place afterwards.
func (c *Controller) Render(points []core.PricePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked(points)
}

func (c *Controller) beginLoadLocked() uint64 {
	c.seq++
	c.state = StateLoading
	return c.seq
}

func (c *Controller) finishLoad(seq uint64, points []core.PricePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		c.logger.Debug("discarding stale chart response", zap.Uint64("seq", seq), zap.Uint64("latest", c.seq))
		c.recordFetch("stale")
		return
	}
	c.renderLocked(points)
}

func (c *Controller) renderLocked(points []core.PricePoint) {
	days := c.currentDays
	labels := c.formatter.Labels(points, days)
	values := Values(points)
	maxTicks := MaxTicks(days)
	c.state = StateRendered

	if c.instance != nil {
		if err := c.instance.Update(labels, values, maxTicks); err != nil {
			c.logger.Warn("failed to update chart", zap.Int("days", days), zap.Error(err))
		}
		return
	}

	currency := c.cfg.CurrencyCode()
	formatter := c.formatter
	inst, err := c.charts.Create(Options{
		Label:       fmt.Sprintf("Price (%s)", currency),
		Labels:      labels,
		Values:      values,
		LineColor:   LineColor,
		FillColor:   FillColor,
		LineWidth:   LineWidth,
		PointRadius: PointRadius,
		Tension:     LineTension,
		MaxTicks:    maxTicks,
		YTick:       TickLabel,
		Tooltip: func(v float64) string {
			return formatter.Tooltip(v, currency)
		},
	})
	if err != nil {
		c.logger.Warn("failed to create chart", zap.Error(err))
		return
	}
	c.instance = inst
}

func (c *Controller) bindButtons(ctx context.Context) {
	for _, btn := range c.doc.RangeButtons() {
		days, ok := btn.Days()
		if !ok {
			continue
		}
		c.buttons = append(c.buttons, rangeButton{days: days, btn: btn})
		btn.OnClick(func() {
			c.SelectRange(ctx, days)
		})
	}
}

func (c *Controller) recognized(days int) bool {
	for _, b := range c.buttons {
		if b.days == days {
			return true
		}
	}
	return false
}

func (c *Controller) markActive(days int) {
	for _, b := range c.buttons {
		b.btn.SetActive(b.days == days)
	}
}

func (c *Controller) recordFetch(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordSeriesFetch(outcome)
	}
}
