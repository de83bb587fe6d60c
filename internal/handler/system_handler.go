package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	"github.com/noah-isme/sma-timetable-optimizer/internal/service"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/response"
)

type metricsSnapshotter interface {
	Snapshot() models.SystemMetrics
}

// SystemHandler exposes aggregated runtime diagnostics. The raw Prometheus
// series stay on /metrics; this is the human-readable summary.
type SystemHandler struct {
	metrics metricsSnapshotter
}

// NewSystemHandler constructs the handler.
func NewSystemHandler(metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{metrics: metrics}
}

// Metrics godoc
// @Summary Aggregated runtime metrics snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /system/metrics [get]
func (h *SystemHandler) Metrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
