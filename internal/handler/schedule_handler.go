package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-optimizer/internal/dto"
	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	"github.com/noah-isme/sma-timetable-optimizer/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-optimizer/pkg/errors"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/response"
)

type scheduleReader interface {
	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	Analyze(ctx context.Context, scheduleID string) (*dto.AnalysisResponse, error)
}

type reportRunner interface {
	Enqueue(ctx context.Context, scheduleID string, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	Status(jobID string) (*dto.ReportStatusResponse, error)
	Result(jobID string) ([]byte, string, error)
}

// ScheduleHandler exposes read and diagnostic endpoints for stored schedules.
type ScheduleHandler struct {
	schedules scheduleReader
	reports   reportRunner
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(schedules *service.OptimizerService, reports *service.ReportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, reports: reports}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by name"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	list, total, err := h.schedules.ListSchedules(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get one schedule with its slots
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Analysis godoc
// @Summary Diagnostic analysis of a stored schedule
// @Description Recomputes conflicts, priorities, flow violations, waste, and score without persisting anything.
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id}/analysis [get]
func (h *ScheduleHandler) Analysis(c *gin.Context) {
	analysis, err := h.schedules.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis, nil)
}

// EnqueueReport godoc
// @Summary Queue a schedule export
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ReportRequest true "Report payload"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/{id}/reports [post]
func (h *ScheduleHandler) EnqueueReport(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	job, err := h.reports.Enqueue(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ReportStatus godoc
// @Summary Poll report job progress
// @Tags Reports
// @Produce json
// @Param jobId path string true "Report job ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{jobId} [get]
func (h *ScheduleHandler) ReportStatus(c *gin.Context) {
	status, err := h.reports.Status(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// ReportDownload godoc
// @Summary Download a completed report
// @Tags Reports
// @Produce octet-stream
// @Param jobId path string true "Report job ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reports/{jobId}/download [get]
func (h *ScheduleHandler) ReportDownload(c *gin.Context) {
	artifact, format, err := h.reports.Result(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	filename := "schedule-report.csv"
	if format == "pdf" {
		contentType = "application/pdf"
		filename = "schedule-report.pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, artifact)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
