package chart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/coinchart/internal/core"
	"github.com/newthinker/coinchart/internal/metrics"
	"github.com/newthinker/coinchart/internal/page"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHTML = `<html><body>
  <div class="chart-range-selector" style="display:none">
    <button data-days="1">1D</button>
    <button data-days="7">1W</button>
    <button data-days="30">1M</button>
    <button data-days="90">3M</button>
    <button data-days="365">1Y</button>
  </div>
  <canvas id="coinChart" style="display:none"></canvas>
</body></html>`

type fetchCall struct {
	coinID   string
	days     int
	currency string
}

type fakeSource struct {
	mu      sync.Mutex
	calls   []fetchCall
	series  map[int][]core.PricePoint
	err     error
	gates   map[int]chan struct{}
	started chan int
}

func (s *fakeSource) PriceSeries(ctx context.Context, coinID string, days int, currency string) ([]core.PricePoint, error) {
	s.mu.Lock()
	s.calls = append(s.calls, fetchCall{coinID, days, currency})
	gate := s.gates[days]
	started := s.started
	s.mu.Unlock()

	if started != nil {
		started <- days
	}
	if gate != nil {
		<-gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.series[days], nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type update struct {
	labels   []string
	values   []float64
	maxTicks int
}

type fakeInstance struct {
	mu      sync.Mutex
	updates []update
}

func (i *fakeInstance) Update(labels []string, values []float64, maxTicks int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.updates = append(i.updates, update{labels, values, maxTicks})
	return nil
}

func (i *fakeInstance) last() update {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.updates[len(i.updates)-1]
}

type fakeCharts struct {
	created  []Options
	instance *fakeInstance
	err      error
}

func (c *fakeCharts) Create(opts Options) (Instance, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.created = append(c.created, opts)
	c.instance = &fakeInstance{}
	return c.instance, nil
}

func series(values ...float64) []core.PricePoint {
	points := make([]core.PricePoint, len(values))
	for i, v := range values {
		points[i] = core.PricePoint{Timestamp: 1700000000000 + int64(i)*3600_000, Value: v}
	}
	return points
}

func newTestController(t *testing.T, src *fakeSource, reg *metrics.Registry) (*Controller, *page.HTMLDocument, *fakeCharts) {
	t.Helper()
	doc, err := page.ParseString(pageHTML)
	require.NoError(t, err)
	charts := &fakeCharts{}
	ctrl := NewController(doc, charts, src, ControllerOptions{
		Metrics:  reg,
		Location: DisplayZone(9),
	})
	return ctrl, doc, charts
}

func activeDays(doc *page.HTMLDocument) []int {
	var active []int
	for _, b := range doc.RangeButtons() {
		if b.Active() {
			days, _ := b.Days()
			active = append(active, days)
		}
	}
	return active
}

func TestController_InitializeWithEmbeddedSeries(t *testing.T) {
	src := &fakeSource{}
	ctrl, doc, charts := newTestController(t, src, nil)

	ctrl.Initialize(context.Background(), Config{
		CoinID:           "bitcoin",
		VsCurrency:       "usd",
		DefaultRangeDays: 30,
		InitialSeries:    []core.PricePoint{{Timestamp: 1700000000000, Value: 50000.12}},
	})

	assert.Equal(t, 0, src.callCount(), "embedded series must not hit the network")
	require.Len(t, charts.created, 1)
	opts := charts.created[0]
	assert.Equal(t, []string{"Nov 15"}, opts.Labels)
	assert.Equal(t, []float64{50000.12}, opts.Values)
	assert.Equal(t, 12, opts.MaxTicks)
	assert.Equal(t, LineColor, opts.LineColor)
	assert.Equal(t, float64(0), opts.PointRadius)
	assert.False(t, opts.ShowXGrid)
	assert.Equal(t, "50,000.12 USD", opts.Tooltip(50000.12))
	assert.Equal(t, "1.5K", opts.YTick(1500))

	assert.Equal(t, StateRendered, ctrl.State())
	assert.Equal(t, []int{30}, activeDays(doc))

	canvas, _ := doc.ElementByID(page.CanvasID)
	assert.True(t, canvas.Visible())
	sel, _ := doc.RangeSelector()
	assert.True(t, sel.Visible())
}

func TestController_InitializeFetchesDefaultRange(t *testing.T) {
	src := &fakeSource{series: map[int][]core.PricePoint{30: series(1, 2, 3)}}
	ctrl, _, charts := newTestController(t, src, nil)

	ctrl.Initialize(context.Background(), Config{CoinID: "bitcoin", VsCurrency: "usd", DefaultRangeDays: 30, InitialSeries: []core.PricePoint{}})

	require.Equal(t, []fetchCall{{"bitcoin", 30, "usd"}}, src.calls)
	require.Len(t, charts.created, 1)
	assert.Equal(t, []float64{1, 2, 3}, charts.created[0].Values)
}

func TestController_InitializeSkipsWithoutCanvasOrCoin(t *testing.T) {
	src := &fakeSource{}

	doc, err := page.ParseString(`<div class="chart-range-selector"><button data-days="30"></button></div>`)
	require.NoError(t, err)
	charts := &fakeCharts{}
	ctrl := NewController(doc, charts, src, ControllerOptions{})
	ctrl.Initialize(context.Background(), Config{CoinID: "bitcoin", DefaultRangeDays: 30})
	assert.Equal(t, StateUninitialized, ctrl.State())

	ctrl2, _, charts2 := newTestController(t, src, nil)
	ctrl2.Initialize(context.Background(), Config{DefaultRangeDays: 30})
	assert.Equal(t, StateUninitialized, ctrl2.State())

	assert.Equal(t, 0, src.callCount())
	assert.Empty(t, charts.created)
	assert.Empty(t, charts2.created)
}

func TestController_SelectRangeUpdatesInPlace(t *testing.T) {
	src := &fakeSource{series: map[int][]core.PricePoint{
		7:  series(10, 11),
		90: series(20, 21, 22),
	}}
	ctrl, doc, charts := newTestController(t, src, nil)
	ctx := context.Background()

	ctrl.Initialize(ctx, Config{CoinID: "bitcoin", VsCurrency: "usd", DefaultRangeDays: 30, InitialSeries: series(1)})

	ctrl.SelectRange(ctx, 7)
	assert.Equal(t, 7, ctrl.CurrentRange())
	assert.Equal(t, []int{7}, activeDays(doc))
	require.Len(t, charts.created, 1, "chart instance is reused")
	last := charts.instance.last()
	assert.Equal(t, []float64{10, 11}, last.values)
	assert.Equal(t, 8, last.maxTicks)
	assert.Equal(t, "Nov 15 07:13", last.labels[0])

	ctrl.SelectRange(ctx, 90)
	last = charts.instance.last()
	assert.Equal(t, []float64{20, 21, 22}, last.values)
	assert.Equal(t, 12, last.maxTicks)
	assert.Equal(t, "Nov 15", last.labels[0])
	assert.Len(t, charts.created, 1)
}

func TestController_SelectRangeIgnoresCurrentAndUnknown(t *testing.T) {
	src := &fakeSource{}
	ctrl, doc, _ := newTestController(t, src, nil)
	ctx := context.Background()

	// Before initialization
	ctrl.SelectRange(ctx, 7)
	assert.Equal(t, 0, src.callCount())

	ctrl.Initialize(ctx, Config{CoinID: "bitcoin", DefaultRangeDays: 30, InitialSeries: series(1)})

	ctrl.SelectRange(ctx, 30)
	ctrl.SelectRange(ctx, 14)
	assert.Equal(t, 0, src.callCount())
	assert.Equal(t, 30, ctrl.CurrentRange())
	assert.Equal(t, []int{30}, activeDays(doc))
}

func TestController_ButtonClickSelectsRange(t *testing.T) {
	src := &fakeSource{series: map[int][]core.PricePoint{365: series(5)}}
	ctrl, doc, charts := newTestController(t, src, nil)

	ctrl.Initialize(context.Background(), Config{CoinID: "bitcoin", DefaultRangeDays: 30, InitialSeries: series(1)})

	require.True(t, doc.ClickRange(365))
	assert.Equal(t, 365, ctrl.CurrentRange())
	assert.Equal(t, []int{365}, activeDays(doc))
	assert.Equal(t, []float64{5}, charts.instance.last().values)
}

func TestController_FetchFailureRendersEmpty(t *testing.T) {
	reg := metrics.NewRegistry()
	src := &fakeSource{err: errors.New("connection refused")}
	ctrl, _, charts := newTestController(t, src, reg)

	ctrl.Initialize(context.Background(), Config{CoinID: "bitcoin", DefaultRangeDays: 30})

	require.Len(t, charts.created, 1)
	assert.Empty(t, charts.created[0].Values)
	assert.Empty(t, charts.created[0].Labels)
	assert.Equal(t, StateRendered, ctrl.State())
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.SeriesFetches().WithLabelValues("failed")))
}

func TestController_CreateFailureRetriesOnNextRender(t *testing.T) {
	src := &fakeSource{series: map[int][]core.PricePoint{7: series(3)}}
	ctrl, _, charts := newTestController(t, src, nil)
	charts.err = errors.New("no 2d context")
	ctx := context.Background()

	ctrl.Initialize(ctx, Config{CoinID: "bitcoin", DefaultRangeDays: 30, InitialSeries: series(1)})
	assert.Empty(t, charts.created)

	charts.err = nil
	ctrl.SelectRange(ctx, 7)
	require.Len(t, charts.created, 1)
	assert.Equal(t, []float64{3}, charts.created[0].Values)
}

func TestController_DiscardsStaleResponse(t *testing.T) {
	reg := metrics.NewRegistry()
	slow := make(chan struct{})
	src := &fakeSource{
		series: map[int][]core.PricePoint{
			7:  series(7, 7),
			30: series(30, 30, 30),
		},
		gates:   map[int]chan struct{}{7: slow},
		started: make(chan int, 4),
	}
	ctrl, doc, charts := newTestController(t, src, reg)
	ctx := context.Background()

	ctrl.Initialize(ctx, Config{CoinID: "bitcoin", DefaultRangeDays: 90, InitialSeries: series(90)})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.SelectRange(ctx, 7)
	}()

	select {
	case days := <-src.started:
		require.Equal(t, 7, days)
	case <-time.After(time.Second):
		t.Fatal("fetch for 7 days never started")
	}

	// The later selection answers first
	ctrl.SelectRange(ctx, 30)
	<-src.started
	assert.Equal(t, []float64{30, 30, 30}, charts.instance.last().values)

	close(slow)
	<-done

	assert.Equal(t, []float64{30, 30, 30}, charts.instance.last().values)
	assert.Equal(t, 30, ctrl.CurrentRange())
	assert.Equal(t, []int{30}, activeDays(doc))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.SeriesFetches().WithLabelValues("stale")))
}

func TestController_InitializeTwiceIsNoop(t *testing.T) {
	src := &fakeSource{}
	ctrl, _, charts := newTestController(t, src, nil)
	cfg := Config{CoinID: "bitcoin", DefaultRangeDays: 30, InitialSeries: series(1)}

	ctrl.Initialize(context.Background(), cfg)
	ctrl.Initialize(context.Background(), cfg)

	assert.Len(t, charts.created, 1)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "rendered", StateRendered.String())
}
