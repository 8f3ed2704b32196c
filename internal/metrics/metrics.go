package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Chart metrics
	upstreamRequests *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	seriesFetches    *prometheus.CounterVec
	widgetOutcomes   *prometheus.CounterVec
	scriptLoads      *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinchart_upstream_requests_total",
			Help: "Total number of market data provider requests",
		},
		[]string{"endpoint", "status"},
	)
	r.cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinchart_cache_lookups_total",
			Help: "Market chart cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)
	r.seriesFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinchart_series_fetches_total",
			Help: "Chart series fetches issued by the chart controller",
		},
		[]string{"outcome"},
	)
	r.widgetOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinchart_widget_outcomes_total",
			Help: "Chart strategy decisions by renderer and reason",
		},
		[]string{"renderer", "reason"},
	)
	r.scriptLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinchart_script_loads_total",
			Help: "External widget script loads by result",
		},
		[]string{"result"},
	)

	reg.MustRegister(r.upstreamRequests)
	reg.MustRegister(r.cacheLookups)
	reg.MustRegister(r.seriesFetches)
	reg.MustRegister(r.widgetOutcomes)
	reg.MustRegister(r.scriptLoads)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordUpstream records a provider call by endpoint and status.
func (r *Registry) RecordUpstream(endpoint, status string) {
	r.upstreamRequests.WithLabelValues(endpoint, status).Inc()
}

// RecordCacheLookup records a cache hit or miss for a tier.
func (r *Registry) RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(tier, result).Inc()
}

// RecordSeriesFetch records a controller fetch outcome ("ok", "empty", "failed", "stale").
func (r *Registry) RecordSeriesFetch(outcome string) {
	r.seriesFetches.WithLabelValues(outcome).Inc()
}

// RecordWidgetOutcome records which renderer a page ended up with and why.
func (r *Registry) RecordWidgetOutcome(renderer, reason string) {
	r.widgetOutcomes.WithLabelValues(renderer, reason).Inc()
}

// RecordScriptLoad records an external script load result.
func (r *Registry) RecordScriptLoad(result string) {
	r.scriptLoads.WithLabelValues(result).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

// SeriesFetches exposes the series fetch counter.
func (r *Registry) SeriesFetches() *prometheus.CounterVec {
	return r.seriesFetches
}

// WidgetOutcomes exposes the widget outcome counter.
func (r *Registry) WidgetOutcomes() *prometheus.CounterVec {
	return r.widgetOutcomes
}

// ScriptLoads exposes the script load counter.
func (r *Registry) ScriptLoads() *prometheus.CounterVec {
	return r.scriptLoads
}
