package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

type stubSnapshotter struct {
	snapshot models.SystemMetrics
}

func (s *stubSnapshotter) Snapshot() models.SystemMetrics {
	return s.snapshot
}

func TestSystemHandlerMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &SystemHandler{metrics: &stubSnapshotter{snapshot: models.SystemMetrics{
		RequestsTotal:    12,
		OptimizationRuns: 3,
		CacheHitRatio:    0.5,
		Goroutines:       8,
		GeneratedAt:      time.Now().UTC(),
	}}}
	r := gin.New()
	r.GET("/system/metrics", h.Metrics)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.SystemMetrics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, uint64(12), envelope.Data.RequestsTotal)
	require.Equal(t, uint64(3), envelope.Data.OptimizationRuns)
	require.InDelta(t, 0.5, envelope.Data.CacheHitRatio, 0.001)
}
