package models

import "time"

// ScheduleStatus represents lifecycle phases for timetables.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusPublished ScheduleStatus = "PUBLISHED"
	ScheduleStatusArchived  ScheduleStatus = "ARCHIVED"
)

// Schedule is the optimization unit: a named timetable with its slots and the
// summary fields the optimizer writes back after a run.
type Schedule struct {
	ID                 string         `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	StartDate          time.Time      `db:"start_date" json:"start_date"`
	EndDate            time.Time      `db:"end_date" json:"end_date"`
	Status             ScheduleStatus `db:"status" json:"status"`
	OptimizationScore  float64        `db:"optimization_score" json:"optimization_score"`
	TotalConflicts     int            `db:"total_conflicts" json:"total_conflicts"`
	ResolvedConflicts  int            `db:"resolved_conflicts" json:"resolved_conflicts"`
	TeacherUtilization float64        `db:"teacher_utilization" json:"teacher_utilization"`
	RoomUtilization    float64        `db:"room_utilization" json:"room_utilization"`
	EfficiencyRate     float64        `db:"efficiency_rate" json:"efficiency_rate"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`

	Slots []ScheduleSlot `db:"-" json:"slots,omitempty"`
}

// ScheduleSlot is one scheduled occurrence of a course. Teacher, room, and
// course references are optional; an absent reference cannot conflict on that
// axis. A slot missing either time is excluded from conflict and compactness
// computations.
type ScheduleSlot struct {
	ID         string     `db:"id" json:"id"`
	ScheduleID string     `db:"schedule_id" json:"schedule_id"`
	TeacherID  *string    `db:"teacher_id" json:"teacher_id,omitempty"`
	RoomID     *string    `db:"room_id" json:"room_id,omitempty"`
	CourseID   *string    `db:"course_id" json:"course_id,omitempty"`
	DayOfWeek  string     `db:"day_of_week" json:"day_of_week"`
	StartTime  *TimeOfDay `db:"start_time" json:"start_time,omitempty"`
	EndTime    *TimeOfDay `db:"end_time" json:"end_time,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`

	// Course is hydrated by the repository when loading slots for a run.
	Course *Course `db:"-" json:"course,omitempty"`
}

// HasTimes reports whether both start and end time are present.
func (s *ScheduleSlot) HasTimes() bool {
	return s.StartTime != nil && s.EndTime != nil
}

// DurationMinutes returns the configured slot length, or 0 when a time is missing.
func (s *ScheduleSlot) DurationMinutes() int {
	if !s.HasTimes() {
		return 0
	}
	return s.EndTime.Minutes() - s.StartTime.Minutes()
}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// Pagination carries list metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
