package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-optimizer/internal/dto"
	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	"github.com/noah-isme/sma-timetable-optimizer/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-optimizer/pkg/errors"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/response"
)

type optimizerRunner interface {
	Optimize(ctx context.Context, req dto.OptimizeRequest) (*dto.OptimizeResponse, error)
	Train(ctx context.Context, req dto.TrainRequest) (*models.TrainingTargets, error)
	Targets() *models.TrainingTargets
}

// OptimizerHandler exposes the optimization and training endpoints.
type OptimizerHandler struct {
	service optimizerRunner
}

// NewOptimizerHandler constructs the handler.
func NewOptimizerHandler(svc *service.OptimizerService) *OptimizerHandler {
	return &OptimizerHandler{service: svc}
}

// Run godoc
// @Summary Run a full optimization pass over a schedule
// @Description Looks up the schedule by name (creating a draft when absent), resolves conflicts, audits flow, analyzes waste, scores, and persists the outcome atomically.
// @Tags Optimizer
// @Accept json
// @Produce json
// @Param payload body dto.OptimizeRequest true "Optimize payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /optimizer/run [post]
func (h *OptimizerHandler) Run(c *gin.Context) {
	var req dto.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimize payload"))
		return
	}
	result, err := h.service.Optimize(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Train godoc
// @Summary Recompute training targets from historical runs
// @Description Averages utilization and efficiency over high-scoring historical schedules. Targets are advisory and do not alter scoring.
// @Tags Optimizer
// @Accept json
// @Produce json
// @Param payload body dto.TrainRequest false "Train payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /optimizer/train [post]
func (h *OptimizerHandler) Train(c *gin.Context) {
	var req dto.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid train payload"))
		return
	}
	targets, err := h.service.Train(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if targets == nil {
		response.JSON(c, http.StatusOK, gin.H{"trained": false}, nil)
		return
	}
	response.JSON(c, http.StatusOK, targets, nil)
}

// Targets godoc
// @Summary Current training targets
// @Tags Optimizer
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /optimizer/targets [get]
func (h *OptimizerHandler) Targets(c *gin.Context) {
	targets := h.service.Targets()
	if targets == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no training targets available"))
		return
	}
	response.JSON(c, http.StatusOK, targets, nil)
}
