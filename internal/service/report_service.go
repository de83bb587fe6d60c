package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-optimizer/internal/dto"
	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-optimizer/pkg/errors"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/export"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/jobs"
)

const (
	reportStatusQueued    = "QUEUED"
	reportStatusRunning   = "RUNNING"
	reportStatusCompleted = "COMPLETED"
	reportStatusFailed    = "FAILED"
)

type reportScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListSlots(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
}

type teacherLister interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

// ReportService renders schedule exports off the request path. Jobs run on an
// in-memory queue; finished artifacts stay available until process exit.
type ReportService struct {
	schedules reportScheduleReader
	teachers  teacherLister
	rooms     roomLister
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	store     *reportStore
}

// NewReportService wires the report pipeline and starts its worker queue.
func NewReportService(
	ctx context.Context,
	schedules reportScheduleReader,
	teachers teacherLister,
	rooms roomLister,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg jobs.QueueConfig,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &ReportService{
		schedules: schedules,
		teachers:  teachers,
		rooms:     rooms,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		store:     newReportStore(),
	}
	s.queue = jobs.NewQueue("schedule-reports", s.handleJob, cfg)
	s.queue.Start(ctx)
	return s
}

// Stop drains the worker queue.
func (s *ReportService) Stop() {
	s.queue.Stop()
}

// Enqueue validates the request and queues a report for the schedule.
func (s *ReportService) Enqueue(ctx context.Context, scheduleID string, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}

	job := reportJob{
		ID:         uuid.NewString(),
		ScheduleID: scheduleID,
		Format:     req.Format,
		Status:     reportStatusQueued,
		QueuedAt:   time.Now().UTC(),
	}
	s.store.Save(job)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "schedule-report", Payload: job}); err != nil {
		s.store.Fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue report")
	}

	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status}, nil
}

// Status reports progress for one queued report.
func (s *ReportService) Status(jobID string) (*dto.ReportStatusResponse, error) {
	job, ok := s.store.Get(jobID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	resp := &dto.ReportStatusResponse{ID: job.ID, Status: job.Status}
	if job.Err != "" {
		msg := job.Err
		resp.Error = &msg
	}
	return resp, nil
}

// Result returns the rendered artifact for a completed report.
func (s *ReportService) Result(jobID string) ([]byte, string, error) {
	job, ok := s.store.Get(jobID)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "report job not found")
	}
	if job.Status != reportStatusCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "report is not ready")
	}
	return job.Artifact, job.Format, nil
}

func (s *ReportService) handleJob(ctx context.Context, raw jobs.Job) error {
	job, ok := raw.Payload.(reportJob)
	if !ok {
		s.logger.Error("report queue received unknown payload", zap.String("job_id", raw.ID))
		return nil
	}
	s.store.MarkRunning(job.ID)

	artifact, err := s.render(ctx, job)
	if err != nil {
		s.store.Fail(job.ID, err)
		s.logger.Error("report rendering failed",
			zap.String("job_id", job.ID),
			zap.String("schedule_id", job.ScheduleID),
			zap.Error(err),
		)
		return err
	}

	s.store.Complete(job.ID, artifact)
	s.logger.Info("report rendered",
		zap.String("job_id", job.ID),
		zap.String("schedule_id", job.ScheduleID),
		zap.String("format", job.Format),
		zap.Int("bytes", len(artifact)),
	)
	return nil
}

func (s *ReportService) render(ctx context.Context, job reportJob) ([]byte, error) {
	schedule, err := s.schedules.FindByID(ctx, job.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	slots, err := s.schedules.ListSlots(ctx, job.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule slots: %w", err)
	}

	teacherNames, err := s.teacherNames(ctx)
	if err != nil {
		return nil, err
	}
	roomNames, err := s.roomNames(ctx)
	if err != nil {
		return nil, err
	}

	dataset := buildScheduleDataset(schedule, slots, teacherNames, roomNames)

	switch job.Format {
	case "csv":
		return s.csv.Render(dataset)
	case "pdf":
		return s.pdf.Render(dataset, schedule.Name)
	default:
		return nil, fmt.Errorf("unsupported report format %q", job.Format)
	}
}

func (s *ReportService) teacherNames(ctx context.Context) (map[string]string, error) {
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load teacher roster: %w", err)
	}
	names := make(map[string]string, len(teachers))
	for _, teacher := range teachers {
		names[teacher.ID] = teacher.FullName
	}
	return names, nil
}

func (s *ReportService) roomNames(ctx context.Context) (map[string]string, error) {
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load room universe: %w", err)
	}
	names := make(map[string]string, len(rooms))
	for _, room := range rooms {
		names[room.ID] = room.Name
	}
	return names, nil
}

func buildScheduleDataset(schedule *models.Schedule, slots []models.ScheduleSlot, teacherNames, roomNames map[string]string) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Course", "Teacher", "Room"},
	}
	ptrs := slotPointers(slots)
	timed := make([]*models.ScheduleSlot, 0, len(ptrs))
	untimed := make([]*models.ScheduleSlot, 0)
	for _, slot := range ptrs {
		if slot.HasTimes() {
			timed = append(timed, slot)
		} else {
			untimed = append(untimed, slot)
		}
	}
	ordered := append(sortByDayAndStart(timed), untimed...)
	for _, slot := range ordered {
		row := map[string]string{
			"Day": slot.DayOfWeek,
		}
		if slot.StartTime != nil {
			row["Start"] = slot.StartTime.String()
		}
		if slot.EndTime != nil {
			row["End"] = slot.EndTime.String()
		}
		if slot.Course != nil {
			row["Course"] = slot.Course.Name
		}
		if slot.TeacherID != nil {
			row["Teacher"] = teacherNames[*slot.TeacherID]
		}
		if slot.RoomID != nil {
			row["Room"] = roomNames[*slot.RoomID]
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	dataset.Rows = append(dataset.Rows, map[string]string{
		"Day":    "SCORE",
		"Start":  strconv.FormatFloat(schedule.OptimizationScore, 'f', 2, 64),
		"End":    "",
		"Course": fmt.Sprintf("conflicts %d/%d resolved", schedule.ResolvedConflicts, schedule.TotalConflicts),
	})
	return dataset
}

// --- Job bookkeeping ---

type reportJob struct {
	ID         string
	ScheduleID string
	Format     string
	Status     string
	Err        string
	Artifact   []byte
	QueuedAt   time.Time
	FinishedAt time.Time
}

type reportStore struct {
	mu    sync.RWMutex
	items map[string]reportJob
}

func newReportStore() *reportStore {
	return &reportStore{items: make(map[string]reportJob)}
}

func (s *reportStore) Save(job reportJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[job.ID] = job
}

func (s *reportStore) Get(id string) (reportJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.items[id]
	return job, ok
}

func (s *reportStore) MarkRunning(id string) {
	s.update(id, func(job *reportJob) {
		job.Status = reportStatusRunning
	})
}

func (s *reportStore) Complete(id string, artifact []byte) {
	s.update(id, func(job *reportJob) {
		job.Status = reportStatusCompleted
		job.Artifact = artifact
		job.FinishedAt = time.Now().UTC()
	})
}

func (s *reportStore) Fail(id string, err error) {
	s.update(id, func(job *reportJob) {
		job.Status = reportStatusFailed
		job.Err = err.Error()
		job.FinishedAt = time.Now().UTC()
	})
}

func (s *reportStore) update(id string, apply func(*reportJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.items[id]
	if !ok {
		return
	}
	apply(&job)
	s.items[id] = job
}
