package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scheduleRows(id, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "start_date", "end_date", "status",
		"optimization_score", "total_conflicts", "resolved_conflicts",
		"teacher_utilization", "room_utilization", "efficiency_rate",
		"created_at", "updated_at",
	}).AddRow(id, name, now, now.AddDate(0, 6, 0), "DRAFT", 82.5, 3, 3, 70.0, 60.0, 88.0, now, now)
}

func TestScheduleRepositoryFindByName(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER($1)")).
		WithArgs("Fall 2026").
		WillReturnRows(scheduleRows("sched-1", "Fall 2026"))

	found, err := repo.FindByName(context.Background(), "Fall 2026")
	require.NoError(t, err)
	require.Equal(t, "sched-1", found.ID)
	require.Equal(t, models.ScheduleStatusDraft, found.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByNameMissing(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(name) = LOWER($1)")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByName(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	schedule := &models.Schedule{
		Name:      "Spring 2027",
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 6, 0),
	}
	require.NoError(t, repo.Create(context.Background(), schedule))
	require.NotEmpty(t, schedule.ID)
	require.Equal(t, models.ScheduleStatusDraft, schedule.Status)
	require.False(t, schedule.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("status = $1")).
		WithArgs("DRAFT", "%fall%").
		WillReturnRows(scheduleRows("sched-1", "Fall 2026"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("DRAFT", "%fall%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ScheduleFilter{
		Status: "DRAFT",
		Search: "fall",
		Page:   1,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListSlotsHydratesCourse(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "schedule_id", "teacher_id", "room_id", "course_id", "day_of_week",
		"start_time", "end_time", "created_at", "updated_at",
		"course_code", "course_name", "course_credits", "course_is_core_required",
	}).
		AddRow("slot-1", "sched-1", "teacher-1", "room-1", "course-1", "MONDAY", "08:00:00", "08:50:00", now, now, "MATH101", "Algebra I", 1.0, true).
		AddRow("slot-2", "sched-1", "teacher-1", nil, nil, "MONDAY", nil, nil, now, now, nil, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedule_slots s")).
		WithArgs("sched-1").
		WillReturnRows(rows)

	slots, err := repo.ListSlots(context.Background(), "sched-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)

	require.NotNil(t, slots[0].Course)
	require.Equal(t, "Algebra I", slots[0].Course.Name)
	require.True(t, slots[0].Course.IsCoreRequired)
	require.True(t, slots[0].HasTimes())
	require.Equal(t, models.NewTimeOfDay(8, 0), *slots[0].StartTime)

	require.Nil(t, slots[1].Course)
	require.False(t, slots[1].HasTimes())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateSummary(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	schedule := &models.Schedule{ID: "sched-1", OptimizationScore: 91.2}
	require.NoError(t, repo.UpdateSummary(context.Background(), nil, schedule))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateSummaryMissingRow(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateSummary(context.Background(), nil, &models.Schedule{ID: "ghost"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateSlotTimesInTx(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_slots SET start_time")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateSlotTimes(context.Background(), tx, "slot-1", models.NewTimeOfDay(7, 30), models.NewTimeOfDay(8, 20)))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
