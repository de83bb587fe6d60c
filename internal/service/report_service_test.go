package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-optimizer/internal/dto"
	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/jobs"
)

type stubReportReader struct {
	schedule *models.Schedule
	slots    []models.ScheduleSlot
}

func (s *stubReportReader) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s.schedule == nil || s.schedule.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.schedule, nil
}

func (s *stubReportReader) ListSlots(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error) {
	return s.slots, nil
}

type stubTeacherLister struct {
	teachers []models.Teacher
}

func (s *stubTeacherLister) ListAll(ctx context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

func newTestReportService(t *testing.T, reader *stubReportReader) *ReportService {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewReportService(
		ctx,
		reader,
		&stubTeacherLister{teachers: []models.Teacher{{ID: "t1", FullName: "Ada Lovelace"}}},
		&stubRoomLister{rooms: []models.Room{{ID: "r1", Name: "Room 101"}}},
		nil,
		zap.NewNop(),
		jobs.QueueConfig{Workers: 1},
	)
	t.Cleanup(func() {
		svc.Stop()
		cancel()
	})
	return svc
}

func reportFixture() *stubReportReader {
	core := &models.Course{ID: "c1", Name: "Algebra I", IsCoreRequired: true}
	slot := timedSlot("slot-1", "t1", "r1", "MONDAY", 8, 0, 8, 50)
	slot.Course = core
	return &stubReportReader{
		schedule: &models.Schedule{ID: "sched-1", Name: "Fall 2026", OptimizationScore: 88.25, TotalConflicts: 2, ResolvedConflicts: 2},
		slots:    []models.ScheduleSlot{slot},
	}
}

func TestReportServiceEnqueueUnknownSchedule(t *testing.T) {
	svc := newTestReportService(t, &stubReportReader{})

	_, err := svc.Enqueue(context.Background(), "ghost", dto.ReportRequest{Format: "csv"})
	require.Error(t, err)
}

func TestReportServiceEnqueueRejectsBadFormat(t *testing.T) {
	svc := newTestReportService(t, reportFixture())

	_, err := svc.Enqueue(context.Background(), "sched-1", dto.ReportRequest{Format: "xlsx"})
	require.Error(t, err)
}

func TestReportServiceCSVLifecycle(t *testing.T) {
	svc := newTestReportService(t, reportFixture())

	job, err := svc.Enqueue(context.Background(), "sched-1", dto.ReportRequest{Format: "csv"})
	require.NoError(t, err)
	require.Equal(t, reportStatusQueued, job.Status)

	require.Eventually(t, func() bool {
		status, err := svc.Status(job.ID)
		return err == nil && status.Status == reportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	artifact, format, err := svc.Result(job.ID)
	require.NoError(t, err)
	require.Equal(t, "csv", format)
	require.True(t, bytes.HasPrefix(artifact, []byte("Day,Start,End,Course,Teacher,Room")))
	require.Contains(t, string(artifact), "Ada Lovelace")
	require.Contains(t, string(artifact), "Room 101")
	require.Contains(t, string(artifact), "88.25")
}

func TestReportServiceRenderPDF(t *testing.T) {
	svc := newTestReportService(t, reportFixture())

	artifact, err := svc.render(context.Background(), reportJob{ScheduleID: "sched-1", Format: "pdf"})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(artifact, []byte("%PDF")))
}

func TestReportServiceStatusUnknownJob(t *testing.T) {
	svc := newTestReportService(t, reportFixture())

	_, err := svc.Status("nope")
	require.Error(t, err)
}

func TestReportServiceResultNotReady(t *testing.T) {
	svc := newTestReportService(t, reportFixture())
	svc.store.Save(reportJob{ID: "job-1", Status: reportStatusQueued})

	_, _, err := svc.Result("job-1")
	require.Error(t, err)
}

func TestBuildScheduleDatasetOrdersAndSummarizes(t *testing.T) {
	friday := timedSlot("slot-f", "t1", "r1", "FRIDAY", 9, 0, 9, 50)
	monday := timedSlot("slot-m", "t1", "r1", "MONDAY", 8, 0, 8, 50)
	untimed := models.ScheduleSlot{ID: "slot-u", DayOfWeek: "TUESDAY"}

	schedule := &models.Schedule{Name: "Fall 2026", OptimizationScore: 75.5, TotalConflicts: 1, ResolvedConflicts: 1}
	dataset := buildScheduleDataset(schedule, []models.ScheduleSlot{friday, monday, untimed}, map[string]string{"t1": "Ada"}, map[string]string{"r1": "101"})

	require.Len(t, dataset.Rows, 4)
	require.Equal(t, "MONDAY", dataset.Rows[0]["Day"])
	require.Equal(t, "FRIDAY", dataset.Rows[1]["Day"])
	require.Equal(t, "TUESDAY", dataset.Rows[2]["Day"])
	require.Equal(t, "SCORE", dataset.Rows[3]["Day"])
	require.Equal(t, "75.50", dataset.Rows[3]["Start"])
}
