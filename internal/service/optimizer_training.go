package service

import (
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

// trainingScoreThreshold filters historical schedules used as training input.
const trainingScoreThreshold = 70.0

// targetStore holds the soft targets computed from historical runs. Populated
// only by an explicit training call, read by reporting, never silently reset.
// The score calculator does not consume it.
type targetStore struct {
	mu      sync.RWMutex
	targets *models.TrainingTargets
}

func newTargetStore() *targetStore {
	return &targetStore{}
}

func (s *targetStore) Set(targets models.TrainingTargets) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = &targets
}

// Get returns a copy of the current targets, or nil when never trained.
func (s *targetStore) Get() *models.TrainingTargets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.targets == nil {
		return nil
	}
	copied := *s.targets
	return &copied
}

// computeTrainingTargets averages utilization and efficiency over schedules
// scoring above the threshold. Returns nil when no schedule qualifies.
func computeTrainingTargets(history []models.Schedule, now time.Time) *models.TrainingTargets {
	var teacherSum, roomSum, efficiencySum float64
	count := 0
	for _, schedule := range history {
		if schedule.OptimizationScore <= trainingScoreThreshold {
			continue
		}
		teacherSum += schedule.TeacherUtilization
		roomSum += schedule.RoomUtilization
		efficiencySum += schedule.EfficiencyRate
		count++
	}
	if count == 0 {
		return nil
	}
	return &models.TrainingTargets{
		TeacherUtilization: teacherSum / float64(count),
		RoomUtilization:    roomSum / float64(count),
		EfficiencyRate:     efficiencySum / float64(count),
		SampleSize:         count,
		TrainedAt:          now,
	}
}
