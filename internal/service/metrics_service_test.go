package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/schedules", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/schedules", http.StatusOK, 40*time.Millisecond)
	m.ObserveOptimizationRun(time.Second, 80, 2, 2, false)
	m.ObserveOptimizationRun(time.Second, 0, 0, 0, true)
	m.RecordCacheOperation(true)
	m.RecordCacheOperation(true)
	m.RecordCacheOperation(true)
	m.RecordCacheOperation(false)

	snap := m.Snapshot()
	require.Equal(t, uint64(2), snap.RequestsTotal)
	require.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	require.Equal(t, uint64(2), snap.OptimizationRuns)
	require.Equal(t, uint64(1), snap.OptimizationFailures)
	require.InDelta(t, 0.75, snap.CacheHitRatio, 0.001)
	require.Greater(t, snap.Goroutines, 0)
	require.False(t, snap.GeneratedAt.IsZero())
}

func TestMetricsServiceExposesCacheCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordCacheOperation(true)
	m.RecordCacheOperation(false)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	require.Contains(t, body, "cache_hits_total 1")
	require.Contains(t, body, "cache_misses_total 1")
}
