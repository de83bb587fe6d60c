package models

import "time"

// ConflictDimension names the resource axis a conflict occurred on.
type ConflictDimension string

const (
	ConflictDimensionTeacher ConflictDimension = "TEACHER"
	ConflictDimensionRoom    ConflictDimension = "ROOM"
)

// SlotConflict is an ephemeral pairing of two slots double-booking one
// resource. Recomputed every run, never persisted.
type SlotConflict struct {
	First      *ScheduleSlot     `json:"first"`
	Second     *ScheduleSlot     `json:"second"`
	ResourceID string            `json:"resource_id"`
	Dimension  ConflictDimension `json:"dimension"`
	Resolved   bool              `json:"resolved"`
}

// PriorityCategory is the Eisenhower-style urgency/importance bucket derived
// from a slot's course.
type PriorityCategory string

const (
	PriorityUrgentImportant       PriorityCategory = "URGENT_IMPORTANT"
	PriorityNotUrgentImportant    PriorityCategory = "NOT_URGENT_IMPORTANT"
	PriorityUrgentNotImportant    PriorityCategory = "URGENT_NOT_IMPORTANT"
	PriorityNotUrgentNotImportant PriorityCategory = "NOT_URGENT_NOT_IMPORTANT"
)

// FlowViolationType enumerates advisory flow checks.
type FlowViolationType string

const (
	FlowViolationWIPLimit    FlowViolationType = "WIP_LIMIT"
	FlowViolationGap         FlowViolationType = "GAP"
	FlowViolationMissingTime FlowViolationType = "MISSING_TIME"
)

// FlowViolation is a diagnostic finding from the flow auditor. Log-only: it
// never escalates to an error and never mutates the schedule.
type FlowViolation struct {
	Type       FlowViolationType `json:"type"`
	TeacherID  string            `json:"teacher_id,omitempty"`
	SlotID     string            `json:"slot_id,omitempty"`
	DayOfWeek  string            `json:"day_of_week,omitempty"`
	Count      int               `json:"count,omitempty"`
	GapMinutes int               `json:"gap_minutes,omitempty"`
}

// WasteAnalysis aggregates utilization waste for one run. Ephemeral.
type WasteAnalysis struct {
	EmptySlots         int     `json:"empty_slots"`
	UnderutilizedRooms int     `json:"underutilized_rooms"`
	WastePercent       float64 `json:"waste_percent"`
	TeacherUtilization float64 `json:"teacher_utilization"`
	RoomUtilization    float64 `json:"room_utilization"`
}

// ScoreBreakdown carries each weighted sub-score alongside the final value.
type ScoreBreakdown struct {
	TeacherUtilization     float64 `json:"teacher_utilization"`
	RoomUtilization        float64 `json:"room_utilization"`
	ConflictResolution     float64 `json:"conflict_resolution"`
	Compactness            float64 `json:"compactness"`
	PreferenceSatisfaction float64 `json:"preference_satisfaction"`
	Final                  float64 `json:"final"`
}

// SystemMetrics is a lightweight aggregate snapshot for diagnostics endpoints.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	OptimizationRuns         uint64    `json:"optimization_runs"`
	OptimizationFailures     uint64    `json:"optimization_failures"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// TrainingTargets are soft targets averaged from historical runs scoring above
// the training threshold. Advisory only; not consumed by the score calculator.
type TrainingTargets struct {
	TeacherUtilization float64   `json:"teacher_utilization"`
	RoomUtilization    float64   `json:"room_utilization"`
	EfficiencyRate     float64   `json:"efficiency_rate"`
	SampleSize         int       `json:"sample_size"`
	TrainedAt          time.Time `json:"trained_at"`
}
