package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	runDuration     prometheus.Observer
	runTotal        *prometheus.CounterVec
	conflictsFound  prometheus.Counter
	conflictsFixed  prometheus.Counter
	lastScore       prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	runCount             uint64
	runFailures          uint64
	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
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

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimization_run_duration_seconds",
		Help:    "Duration of optimization runs",
		Buckets: prometheus.DefBuckets,
	})

	runTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimization_runs_total",
		Help: "Total optimization runs by outcome",
	}, []string{"outcome"})

	conflictsFound := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimization_conflicts_detected_total",
		Help: "Total slot conflicts detected across runs",
	})

	conflictsFixed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimization_conflicts_resolved_total",
		Help: "Total slot conflicts resolved across runs",
	})

	lastScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "optimization_last_score",
		Help: "Final score of the most recent optimization run",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, runDuration, runTotal, conflictsFound, conflictsFixed, lastScore, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runDuration:     runDuration,
		runTotal:        runTotal,
		conflictsFound:  conflictsFound,
		conflictsFixed:  conflictsFixed,
		lastScore:       lastScore,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveOptimizationRun records the outcome of one optimization run.
func (m *MetricsService) ObserveOptimizationRun(duration time.Duration, score float64, detected, resolved int, failed bool) {
	if m == nil {
		return
	}
	m.runDuration.Observe(duration.Seconds())
	outcome := "success"
	if failed {
		outcome = "failure"
		atomic.AddUint64(&m.runFailures, 1)
	} else {
		m.lastScore.Set(score)
		m.conflictsFound.Add(float64(detected))
		m.conflictsFixed.Add(float64(resolved))
	}
	m.runTotal.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.runCount, 1)
}

// RecordCacheOperation records cache hit/miss counts.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
}

// Snapshot returns aggregated metrics suitable for diagnostics endpoints.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		OptimizationRuns:         atomic.LoadUint64(&m.runCount),
		OptimizationFailures:     atomic.LoadUint64(&m.runFailures),
		CacheHitRatio:            cacheRatio,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
