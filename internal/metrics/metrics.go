package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects engine and HTTP metrics. Collectors live on a private
// registry so several instances can coexist in tests. All methods are safe on
// a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	FlightEvaluations  *prometheus.CounterVec
	LogbookEvaluations prometheus.Counter
	EvaluateLatency    prometheus.Histogram
	ContextCache       *prometheus.CounterVec
	SummaryCache       *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	RateLimited        prometheus.Counter

	// Mirrors for the JSON snapshot
	flights       atomic.Int64
	unknownNight  atomic.Int64
	logbooks      atomic.Int64
	contextHits   atomic.Int64
	contextMisses atomic.Int64
	summaryHits   atomic.Int64
	summaryMisses atomic.Int64
	httpRequests  atomic.Int64
	httpErrors    atomic.Int64
	rateLimited   atomic.Int64

	startTime time.Time
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FlightEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flighttime_flight_evaluations_total",
			Help: "Flights evaluated by night classification status",
		}, []string{"status"}),

		LogbookEvaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "flighttime_logbook_evaluations_total",
			Help: "Rolling window and limit evaluations over a logbook snapshot",
		}),

		EvaluateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "flighttime_logbook_evaluate_duration_seconds",
			Help:    "Duration of a full logbook evaluation",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		ContextCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flighttime_context_cache_lookups_total",
			Help: "Calculation context memo lookups by result",
		}, []string{"result"}),

		SummaryCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flighttime_summary_cache_lookups_total",
			Help: "Utilization summary cache lookups by result",
		}, []string{"result"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flighttime_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),

		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flighttime_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "flighttime_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),

		startTime: time.Now(),
	}
}

// Engine metrics

// IncrementFlightEvaluations records one flight evaluation with its night
// classification status.
func (m *Metrics) IncrementFlightEvaluations(status string) {
	if m == nil {
		return
	}
	m.FlightEvaluations.WithLabelValues(status).Inc()
	m.flights.Add(1)
	if status == "unknown" {
		m.unknownNight.Add(1)
	}
}

// ObserveLogbookEvaluation records one logbook evaluation and its duration.
func (m *Metrics) ObserveLogbookEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.LogbookEvaluations.Inc()
	m.EvaluateLatency.Observe(d.Seconds())
	m.logbooks.Add(1)
}

func (m *Metrics) IncrementContextCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.ContextCache.WithLabelValues("hit").Inc()
		m.contextHits.Add(1)
		return
	}
	m.ContextCache.WithLabelValues("miss").Inc()
	m.contextMisses.Add(1)
}

func (m *Metrics) IncrementSummaryCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.SummaryCache.WithLabelValues("hit").Inc()
		m.summaryHits.Add(1)
		return
	}
	m.SummaryCache.WithLabelValues("miss").Inc()
	m.summaryMisses.Add(1)
}

// HTTP metrics

// ObserveRequest records a served request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
	m.httpRequests.Add(1)
	if code >= http.StatusInternalServerError {
		m.httpErrors.Add(1)
	}
}

func (m *Metrics) IncrementRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
	m.rateLimited.Add(1)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) GetUptime() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}

// Snapshot represents a point-in-time snapshot of the counters
type Snapshot struct {
	// Engine
	FlightEvaluations  int64 `json:"flight_evaluations"`
	UnknownNight       int64 `json:"unknown_night_classifications"`
	LogbookEvaluations int64 `json:"logbook_evaluations"`

	// Caches
	ContextCacheHits   int64 `json:"context_cache_hits"`
	ContextCacheMisses int64 `json:"context_cache_misses"`
	SummaryCacheHits   int64 `json:"summary_cache_hits"`
	SummaryCacheMisses int64 `json:"summary_cache_misses"`

	// HTTP
	HTTPRequests int64 `json:"http_requests"`
	HTTPErrors   int64 `json:"http_errors"`
	RateLimited  int64 `json:"rate_limited"`

	UptimeSeconds int64 `json:"uptime_seconds"`
	Timestamp     int64 `json:"timestamp"`
}

// GetSnapshot returns a snapshot of all current counters
func (m *Metrics) GetSnapshot() *Snapshot {
	if m == nil {
		return &Snapshot{Timestamp: time.Now().Unix()}
	}
	return &Snapshot{
		FlightEvaluations:  m.flights.Load(),
		UnknownNight:       m.unknownNight.Load(),
		LogbookEvaluations: m.logbooks.Load(),
		ContextCacheHits:   m.contextHits.Load(),
		ContextCacheMisses: m.contextMisses.Load(),
		SummaryCacheHits:   m.summaryHits.Load(),
		SummaryCacheMisses: m.summaryMisses.Load(),
		HTTPRequests:       m.httpRequests.Load(),
		HTTPErrors:         m.httpErrors.Load(),
		RateLimited:        m.rateLimited.Load(),
		UptimeSeconds:      int64(m.GetUptime().Seconds()),
		Timestamp:          time.Now().Unix(),
	}
}
