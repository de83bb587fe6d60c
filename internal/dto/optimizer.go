package dto

import (
	"time"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

// OptimizeRequest asks for a full optimization pass over the named schedule.
// The schedule is matched by exact case-insensitive name; a missing schedule
// is created as a draft for the given date range.
type OptimizeRequest struct {
	ScheduleName string    `json:"scheduleName" validate:"omitempty,max=200"`
	StartDate    time.Time `json:"startDate" validate:"required"`
	EndDate      time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
}

// OptimizeResponse returns the persisted schedule plus the run's breakdown.
type OptimizeResponse struct {
	Schedule  *models.Schedule      `json:"schedule"`
	Breakdown models.ScoreBreakdown `json:"breakdown"`
	Waste     models.WasteAnalysis  `json:"waste"`
}

// ConflictReport summarises detection and resolution for one run.
type ConflictReport struct {
	Total     int                   `json:"total"`
	Resolved  int                   `json:"resolved"`
	Conflicts []models.SlotConflict `json:"conflicts"`
}

// AnalysisResponse is the introspection payload for a stored schedule. It is
// computed without persisting anything.
type AnalysisResponse struct {
	ScheduleID     string                          `json:"scheduleId"`
	Conflicts      ConflictReport                  `json:"conflicts"`
	PriorityCounts map[models.PriorityCategory]int `json:"priorityCounts"`
	FlowViolations []models.FlowViolation          `json:"flowViolations"`
	Waste          models.WasteAnalysis            `json:"waste"`
	Breakdown      models.ScoreBreakdown           `json:"breakdown"`
	GeneratedAt    time.Time                       `json:"generatedAt"`
}

// TrainRequest optionally narrows training to schedules inside a date range.
type TrainRequest struct {
	Since *time.Time `json:"since"`
}

// ReportRequest queues an export of a schedule's optimization summary.
type ReportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
}

// ReportJobResponse acknowledges a queued report.
type ReportJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ReportStatusResponse exposes job progress to pollers.
type ReportStatusResponse struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Error  *string `json:"error,omitempty"`
}
