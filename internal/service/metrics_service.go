package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Autofill outcomes.
const (
	AutofillOutcomeCommitted = "committed"
	AutofillOutcomeEmpty     = "empty"
	AutofillOutcomeAborted   = "aborted"
	AutofillOutcomeFailed    = "failed"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer, the cache and the planner.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec

	autofillRuns       *prometheus.CounterVec
	autofillPlaced     prometheus.Counter
	autofillUnplaced   prometheus.Counter
	autofillDuration   prometheus.Observer
	placementRejection *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	autofillRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_autofill_runs_total",
		Help: "Auto-fill runs by outcome",
	}, []string{"outcome"})

	autofillPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_autofill_placements_total",
		Help: "Slots committed by auto-fill",
	})

	autofillUnplaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_autofill_unplaced_sessions_total",
		Help: "Weekly sessions auto-fill left for manual planning",
	})

	autofillDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_autofill_duration_seconds",
		Help:    "Wall time of auto-fill runs",
		Buckets: prometheus.DefBuckets,
	})

	placementRejection := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_placement_rejections_total",
		Help: "Manual placements rejected, by error code",
	}, []string{"code"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		autofillRuns, autofillPlaced, autofillUnplaced, autofillDuration, placementRejection, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheLookups:       cacheLookups,
		autofillRuns:       autofillRuns,
		autofillPlaced:     autofillPlaced,
		autofillUnplaced:   autofillUnplaced,
		autofillDuration:   autofillDuration,
		placementRejection: placementRejection,
	}
}

// Handler exposes the Prometheus scrape handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordAutofill records one auto-fill run.
func (m *MetricsService) RecordAutofill(outcome string, placed, unplaced int, duration time.Duration) {
	if m == nil {
		return
	}
	m.autofillRuns.WithLabelValues(outcome).Inc()
	m.autofillPlaced.Add(float64(placed))
	m.autofillUnplaced.Add(float64(unplaced))
	m.autofillDuration.Observe(duration.Seconds())
}

// RecordPlacementRejection counts a manual placement refused with the given error code.
func (m *MetricsService) RecordPlacementRejection(code string) {
	if m == nil {
		return
	}
	m.placementRejection.WithLabelValues(code).Inc()
}
