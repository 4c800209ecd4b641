package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/waxfeed-backend/internal/platform/envutil"
	"github.com/yungbote/waxfeed-backend/internal/platform/logger"
)

// Metrics owns a private registry so tests can build isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	waxFlow        *prometheus.CounterVec
	waxCapped      *prometheus.CounterVec
	tasteComputes  *prometheus.CounterVec
	tasteMatchSize prometheus.Histogram
	matchCache     *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once. It returns nil when METRICS_ENABLED is false.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("prometheus metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waxfeed_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "waxfeed_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_aggregate_operations_total",
			Help: "Aggregate write operations by operation and outcome code.",
		}, []string{"operation", "status"}),
		aggregateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "waxfeed_aggregate_operation_duration_seconds",
			Help:    "Aggregate write latency including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		aggregateConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_aggregate_conflicts_total",
			Help: "Aggregate attempts that failed with a conflict.",
		}, []string{"operation"}),
		aggregateRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_aggregate_retries_total",
			Help: "Aggregate attempts that failed with a retryable error.",
		}, []string{"operation"}),
		waxFlow: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_wax_amount_total",
			Help: "Wax moved by transaction type and direction.",
		}, []string{"type", "direction"}),
		waxCapped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_wax_capped_total",
			Help: "Earn requests reduced or refused by tier caps.",
		}, []string{"type"}),
		tasteComputes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_taste_computes_total",
			Help: "Taste profile computations by result status.",
		}, []string{"status"}),
		tasteMatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "waxfeed_taste_match_results",
			Help:    "Number of matches returned per request.",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		}),
		matchCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "waxfeed_taste_match_cache_total",
			Help: "Match cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	code := strconv.Itoa(status)
	m.apiRequests.WithLabelValues(method, route, code).Inc()
	m.apiLatency.WithLabelValues(method, route, code).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(op, status).Inc()
	m.aggregateLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(op).Inc()
}

// AddWax records a committed ledger movement. Negative deltas count as debits.
func (m *Metrics) AddWax(txType string, delta int64) {
	if m == nil || delta == 0 {
		return
	}
	direction := "credit"
	if delta < 0 {
		direction = "debit"
		delta = -delta
	}
	m.waxFlow.WithLabelValues(txType, direction).Add(float64(delta))
}

func (m *Metrics) IncWaxCapped(txType string) {
	if m == nil {
		return
	}
	m.waxCapped.WithLabelValues(txType).Inc()
}

func (m *Metrics) IncTasteCompute(status string) {
	if m == nil {
		return
	}
	m.tasteComputes.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveMatchResults(n int) {
	if m == nil {
		return
	}
	m.tasteMatchSize.Observe(float64(n))
}

func (m *Metrics) IncMatchCache(result string) {
	if m == nil {
		return
	}
	m.matchCache.WithLabelValues(result).Inc()
}
