package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

const scheduleColumns = `id, name, start_date, end_date, status, optimization_score, total_conflicts, resolved_conflicts, teacher_utilization, room_utilization, efficiency_rate, created_at, updated_at`

// ScheduleRepository persists schedules and their slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByName loads a schedule by exact case-insensitive name match.
func (r *ScheduleRepository) FindByName(ctx context.Context, name string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE LOWER(name) = LOWER($1)`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, name); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedules WHERE id = $1`, scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule == nil {
		return errors.New("schedule payload is nil")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `
INSERT INTO schedules (id, name, start_date, end_date, status, optimization_score, total_conflicts, resolved_conflicts, teacher_utilization, room_utilization, efficiency_rate, created_at, updated_at)
VALUES (:id, :name, :start_date, :end_date, :status, :optimization_score, :total_conflicts, :resolved_conflicts, :teacher_utilization, :room_utilization, :efficiency_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY updated_at DESC LIMIT %d OFFSET %d", scheduleColumns, base, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// ListHistory returns schedules updated at or after the cutoff, used as
// training input. A zero cutoff returns the full history.
func (r *ScheduleRepository) ListHistory(ctx context.Context, since time.Time) ([]models.Schedule, error) {
	var (
		query string
		args  []interface{}
	)
	if since.IsZero() {
		query = fmt.Sprintf("SELECT %s FROM schedules ORDER BY updated_at DESC", scheduleColumns)
	} else {
		query = fmt.Sprintf("SELECT %s FROM schedules WHERE updated_at >= $1 ORDER BY updated_at DESC", scheduleColumns)
		args = append(args, since)
	}
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule history: %w", err)
	}
	return schedules, nil
}

type slotRow struct {
	models.ScheduleSlot
	CourseCode     *string  `db:"course_code"`
	CourseName     *string  `db:"course_name"`
	CourseCredits  *float64 `db:"course_credits"`
	CourseRequired *bool    `db:"course_is_core_required"`
}

// ListSlots loads a schedule's slots ordered by day/time, hydrating each
// slot's course reference when present.
func (r *ScheduleRepository) ListSlots(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error) {
	const query = `
SELECT s.id, s.schedule_id, s.teacher_id, s.room_id, s.course_id, s.day_of_week, s.start_time, s.end_time, s.created_at, s.updated_at,
       c.code AS course_code, c.name AS course_name, c.credits AS course_credits, c.is_core_required AS course_is_core_required
FROM schedule_slots s
LEFT JOIN courses c ON c.id = s.course_id
WHERE s.schedule_id = $1
ORDER BY s.day_of_week ASC, s.start_time ASC NULLS LAST, s.id ASC`
	var rows []slotRow
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule slots: %w", err)
	}

	slots := make([]models.ScheduleSlot, 0, len(rows))
	for _, row := range rows {
		slot := row.ScheduleSlot
		if slot.CourseID != nil && row.CourseName != nil {
			slot.Course = &models.Course{
				ID:             *slot.CourseID,
				Name:           *row.CourseName,
				IsCoreRequired: row.CourseRequired != nil && *row.CourseRequired,
			}
			if row.CourseCode != nil {
				slot.Course.Code = *row.CourseCode
			}
			if row.CourseCredits != nil {
				slot.Course.Credits = *row.CourseCredits
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// UpdateSummary writes the optimizer's summary fields back onto the schedule
// row. Runs inside the caller's transaction when exec is non-nil.
func (r *ScheduleRepository) UpdateSummary(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	schedule.UpdatedAt = now

	const query = `
UPDATE schedules
SET optimization_score = $1, total_conflicts = $2, resolved_conflicts = $3,
    teacher_utilization = $4, room_utilization = $5, efficiency_rate = $6, updated_at = $7
WHERE id = $8`
	result, err := target.ExecContext(ctx, query,
		schedule.OptimizationScore,
		schedule.TotalConflicts,
		schedule.ResolvedConflicts,
		schedule.TeacherUtilization,
		schedule.RoomUtilization,
		schedule.EfficiencyRate,
		now,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule summary: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule summary rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateSlotTimes commits a resolver relocation for one slot.
func (r *ScheduleRepository) UpdateSlotTimes(ctx context.Context, exec sqlx.ExtContext, slotID string, start, end models.TimeOfDay) error {
	target := r.exec(exec)
	const query = `UPDATE schedule_slots SET start_time = $1, end_time = $2, updated_at = $3 WHERE id = $4`
	result, err := target.ExecContext(ctx, query, start, end, time.Now().UTC(), slotID)
	if err != nil {
		return fmt.Errorf("update slot times: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("slot times rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
