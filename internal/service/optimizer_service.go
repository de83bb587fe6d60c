package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-optimizer/internal/dto"
	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/config"
	appErrors "github.com/noah-isme/sma-timetable-optimizer/pkg/errors"
)

type scheduleStore interface {
	FindByName(ctx context.Context, name string) (*models.Schedule, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	ListHistory(ctx context.Context, since time.Time) ([]models.Schedule, error)
	ListSlots(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
	UpdateSummary(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	UpdateSlotTimes(ctx context.Context, exec sqlx.ExtContext, slotID string, start, end models.TimeOfDay) error
}

type roomLister interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type optimizerTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type analysisCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string)
}

type runObserver interface {
	ObserveOptimizationRun(duration time.Duration, score float64, detected, resolved int, failed bool)
	RecordCacheOperation(hit bool)
}

// OptimizerService runs the fixed optimization pipeline against one schedule:
// conflict detection and repair, flow audit, priority classification, waste
// analysis, scoring, then a single transactional persist.
type OptimizerService struct {
	schedules scheduleStore
	rooms     roomLister
	tx        optimizerTxProvider
	cache     analysisCache
	metrics   runObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.OptimizerConfig
	weights   scoreWeights
	targets   *targetStore

	// One run per schedule at a time; cross-schedule runs stay parallel.
	locks sync.Map
}

// NewOptimizerService wires optimizer dependencies.
func NewOptimizerService(
	schedules scheduleStore,
	rooms roomLister,
	tx optimizerTxProvider,
	cache analysisCache,
	metrics runObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.OptimizerConfig,
) *OptimizerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCoursesPerTeacherDay <= 0 {
		cfg.MaxCoursesPerTeacherDay = 4
	}
	if cfg.MaxGapMinutes <= 0 {
		cfg.MaxGapMinutes = 60
	}
	if cfg.AnalysisCacheTTL <= 0 {
		cfg.AnalysisCacheTTL = 5 * time.Minute
	}
	return &OptimizerService{
		schedules: schedules,
		rooms:     rooms,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		weights:   weightsFromConfig(cfg),
		targets:   newTargetStore(),
	}
}

// Optimize runs the full pipeline for the named schedule and persists the
// outcome. On any phase failure nothing is persisted and the schedule retains
// its previous state.
func (s *OptimizerService) Optimize(ctx context.Context, req dto.OptimizeRequest) (*dto.OptimizeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid optimize payload")
	}

	name := strings.TrimSpace(req.ScheduleName)
	if name == "" {
		name = fmt.Sprintf("Schedule %s to %s", req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	}

	unlock := s.lockSchedule(name)
	defer unlock()

	started := time.Now()
	resp, err := s.run(ctx, name, req)
	if s.metrics != nil {
		var score float64
		var detected, resolved int
		if resp != nil && resp.Schedule != nil {
			score = resp.Schedule.OptimizationScore
			detected = resp.Schedule.TotalConflicts
			resolved = resp.Schedule.ResolvedConflicts
		}
		s.metrics.ObserveOptimizationRun(time.Since(started), score, detected, resolved, err != nil)
	}
	return resp, err
}

func (s *OptimizerService) run(ctx context.Context, name string, req dto.OptimizeRequest) (*dto.OptimizeResponse, error) {
	schedule, err := s.lookupOrCreate(ctx, name, req)
	if err != nil {
		return nil, err
	}

	slots, err := s.schedules.ListSlots(ctx, schedule.ID)
	if err != nil {
		return nil, s.phaseError("lookup", schedule.ID, err, "failed to load schedule slots")
	}
	schedule.Slots = slots

	if len(slots) == 0 {
		// Nothing to optimize: neutral outcome, no mutation, no persist.
		schedule.OptimizationScore = 0
		s.logger.Info("schedule has no slots, skipping optimization", zap.String("schedule_id", schedule.ID))
		return &dto.OptimizeResponse{Schedule: schedule}, nil
	}

	ptrs := slotPointers(schedule.Slots)

	// CONSTRAINT phase: detect and repair double-bookings.
	conflicts := detectConflicts(buildResourceIndex(ptrs))
	resolved, moved := resolveConflicts(conflicts, ptrs)
	schedule.TotalConflicts = len(conflicts)
	schedule.ResolvedConflicts = resolved
	s.logger.Info("constraint phase complete",
		zap.String("schedule_id", schedule.ID),
		zap.Int("detected", len(conflicts)),
		zap.Int("resolved", resolved),
	)

	// FLOW phase: advisory only.
	violations := auditFlow(ptrs, flowLimits{
		maxCoursesPerTeacherDay: s.cfg.MaxCoursesPerTeacherDay,
		maxGapMinutes:           s.cfg.MaxGapMinutes,
	})
	for _, violation := range violations {
		s.logger.Warn("flow violation",
			zap.String("schedule_id", schedule.ID),
			zap.String("type", string(violation.Type)),
			zap.String("teacher_id", violation.TeacherID),
			zap.String("day", violation.DayOfWeek),
			zap.Int("count", violation.Count),
			zap.Int("gap_minutes", violation.GapMinutes),
		)
	}

	// PRIORITY phase: aggregate counts for observability.
	priorities := classifyPriorities(ptrs)
	s.logger.Info("priority phase complete",
		zap.String("schedule_id", schedule.ID),
		zap.Int("urgent_important", priorities[models.PriorityUrgentImportant]),
		zap.Int("not_urgent_important", priorities[models.PriorityNotUrgentImportant]),
		zap.Int("urgent_not_important", priorities[models.PriorityUrgentNotImportant]),
		zap.Int("not_urgent_not_important", priorities[models.PriorityNotUrgentNotImportant]),
	)

	// WASTE phase.
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, s.phaseError("waste", schedule.ID, err, "failed to load room universe")
	}
	waste := analyzeWaste(ptrs, rooms)
	schedule.TeacherUtilization = waste.TeacherUtilization
	schedule.RoomUtilization = waste.RoomUtilization
	schedule.EfficiencyRate = clampScore(100 - waste.WastePercent)

	// SCORE phase.
	breakdown := computeScore(ptrs, schedule.TotalConflicts, schedule.ResolvedConflicts, s.weights)
	schedule.OptimizationScore = breakdown.Final
	s.logger.Info("score phase complete",
		zap.String("schedule_id", schedule.ID),
		zap.Float64("teacher_utilization", breakdown.TeacherUtilization),
		zap.Float64("room_utilization", breakdown.RoomUtilization),
		zap.Float64("conflict_resolution", breakdown.ConflictResolution),
		zap.Float64("compactness", breakdown.Compactness),
		zap.Float64("preference_satisfaction", breakdown.PreferenceSatisfaction),
		zap.Float64("final", breakdown.Final),
	)

	// PERSIST phase: single transaction for the summary and every relocation.
	if err := s.persist(ctx, schedule, moved); err != nil {
		return nil, s.phaseError("persist", schedule.ID, err, "failed to persist optimization")
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, analysisCacheKey(schedule.ID))
	}

	return &dto.OptimizeResponse{Schedule: schedule, Breakdown: breakdown, Waste: waste}, nil
}

func (s *OptimizerService) lookupOrCreate(ctx context.Context, name string, req dto.OptimizeRequest) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByName(ctx, name)
	if err == nil {
		return schedule, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, s.phaseError("lookup", "", err, "failed to look up schedule")
	}

	schedule = &models.Schedule{
		Name:      name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    models.ScheduleStatusDraft,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, s.phaseError("lookup", "", err, "failed to create draft schedule")
	}
	s.logger.Info("created draft schedule", zap.String("schedule_id", schedule.ID), zap.String("name", name))
	return schedule, nil
}

func (s *OptimizerService) persist(ctx context.Context, schedule *models.Schedule, moved []*models.ScheduleSlot) error {
	if s.tx == nil {
		return errors.New("transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin optimization transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, slot := range moved {
		if err = s.schedules.UpdateSlotTimes(ctx, tx, slot.ID, *slot.StartTime, *slot.EndTime); err != nil {
			return fmt.Errorf("persist slot relocation: %w", err)
		}
	}
	if err = s.schedules.UpdateSummary(ctx, tx, schedule); err != nil {
		return fmt.Errorf("persist schedule summary: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit optimization transaction: %w", err)
	}
	return nil
}

// GetSchedule loads one schedule with its slots.
func (s *OptimizerService) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	slots, err := s.schedules.ListSlots(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slots")
	}
	schedule.Slots = slots
	return schedule, nil
}

// ListSchedules returns schedules matching the filter.
func (s *OptimizerService) ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	list, total, err := s.schedules.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return list, total, nil
}

// Analyze computes the full diagnostic view of a stored schedule without
// persisting anything. Results are cached briefly.
func (s *OptimizerService) Analyze(ctx context.Context, scheduleID string) (*dto.AnalysisResponse, error) {
	key := analysisCacheKey(scheduleID)
	if s.cache != nil {
		var cached dto.AnalysisResponse
		err := s.cache.Get(ctx, key, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil)
		}
		if err == nil {
			return &cached, nil
		}
	}

	schedule, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	analysis := &dto.AnalysisResponse{
		ScheduleID:  schedule.ID,
		GeneratedAt: time.Now().UTC(),
	}

	ptrs := slotPointers(schedule.Slots)
	conflicts := detectConflicts(buildResourceIndex(ptrs))
	resolved, _ := resolveConflicts(conflicts, ptrs)
	analysis.Conflicts = dto.ConflictReport{
		Total:     len(conflicts),
		Resolved:  resolved,
		Conflicts: conflicts,
	}
	analysis.PriorityCounts = classifyPriorities(ptrs)
	analysis.FlowViolations = auditFlow(ptrs, flowLimits{
		maxCoursesPerTeacherDay: s.cfg.MaxCoursesPerTeacherDay,
		maxGapMinutes:           s.cfg.MaxGapMinutes,
	})

	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room universe")
	}
	analysis.Waste = analyzeWaste(ptrs, rooms)
	analysis.Breakdown = computeScore(ptrs, len(conflicts), resolved, s.weights)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, analysis, s.cfg.AnalysisCacheTTL); err != nil {
			s.logger.Warn("analysis cache write failed", zap.String("schedule_id", scheduleID), zap.Error(err))
		}
	}
	return analysis, nil
}

// DetectAndResolveConflicts runs the constraint phase against an in-memory
// schedule. Callers own the schedule; nothing is persisted.
func (s *OptimizerService) DetectAndResolveConflicts(schedule *models.Schedule) dto.ConflictReport {
	ptrs := slotPointers(schedule.Slots)
	conflicts := detectConflicts(buildResourceIndex(ptrs))
	resolved, _ := resolveConflicts(conflicts, ptrs)
	schedule.TotalConflicts = len(conflicts)
	schedule.ResolvedConflicts = resolved
	return dto.ConflictReport{Total: len(conflicts), Resolved: resolved, Conflicts: conflicts}
}

// ClassifyPriorities aggregates priority categories for an in-memory schedule.
func (s *OptimizerService) ClassifyPriorities(schedule *models.Schedule) map[models.PriorityCategory]int {
	return classifyPriorities(slotPointers(schedule.Slots))
}

// AuditFlow runs the advisory flow checks against an in-memory schedule.
func (s *OptimizerService) AuditFlow(schedule *models.Schedule) []models.FlowViolation {
	return auditFlow(slotPointers(schedule.Slots), flowLimits{
		maxCoursesPerTeacherDay: s.cfg.MaxCoursesPerTeacherDay,
		maxGapMinutes:           s.cfg.MaxGapMinutes,
	})
}

// AnalyzeWaste measures waste for an in-memory schedule against the stored
// room universe.
func (s *OptimizerService) AnalyzeWaste(ctx context.Context, schedule *models.Schedule) (models.WasteAnalysis, error) {
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return models.WasteAnalysis{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room universe")
	}
	return analyzeWaste(slotPointers(schedule.Slots), rooms), nil
}

// ComputeScore scores an in-memory schedule using its recorded conflict
// counts.
func (s *OptimizerService) ComputeScore(schedule *models.Schedule) models.ScoreBreakdown {
	return computeScore(slotPointers(schedule.Slots), schedule.TotalConflicts, schedule.ResolvedConflicts, s.weights)
}

// Train recomputes soft targets from historical schedules scoring above the
// training threshold. Returns nil targets when no schedule qualifies.
func (s *OptimizerService) Train(ctx context.Context, req dto.TrainRequest) (*models.TrainingTargets, error) {
	var since time.Time
	if req.Since != nil {
		since = *req.Since
	}
	history, err := s.schedules.ListHistory(ctx, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule history")
	}
	targets := computeTrainingTargets(history, time.Now().UTC())
	if targets == nil {
		s.logger.Info("training skipped, no qualifying schedules", zap.Int("history_size", len(history)))
		return nil, nil
	}
	s.targets.Set(*targets)
	s.logger.Info("training targets updated",
		zap.Float64("teacher_utilization", targets.TeacherUtilization),
		zap.Float64("room_utilization", targets.RoomUtilization),
		zap.Float64("efficiency_rate", targets.EfficiencyRate),
		zap.Int("sample_size", targets.SampleSize),
	)
	return targets, nil
}

// Targets returns the current training targets, or nil before any training.
func (s *OptimizerService) Targets() *models.TrainingTargets {
	return s.targets.Get()
}

func (s *OptimizerService) lockSchedule(name string) func() {
	key := strings.ToLower(name)
	actual, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *OptimizerService) phaseError(phase, scheduleID string, err error, message string) error {
	s.logger.Error("optimization phase failed",
		zap.String("phase", phase),
		zap.String("schedule_id", scheduleID),
		zap.Error(err),
	)
	return appErrors.Wrap(err, appErrors.ErrPhaseFailed.Code, appErrors.ErrPhaseFailed.Status, fmt.Sprintf("%s phase failed: %s", phase, message))
}

func analysisCacheKey(scheduleID string) string {
	return "optimizer:analysis:" + scheduleID
}
