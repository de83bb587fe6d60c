package service

import (
	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
	"github.com/noah-isme/sma-timetable-optimizer/pkg/config"
)

const (
	compactnessGapFloorMinutes = 10
	compactnessGapScaleMinutes = 120
	noonMinutes                = 12 * 60
)

// scoreWeights are the relative weights of the five sub-scores. They are
// expected to sum to 1.0 (enforced at config load).
type scoreWeights struct {
	teacherUtilization float64
	roomUtilization    float64
	preference         float64
	conflict           float64
	compactness        float64
}

func defaultScoreWeights() scoreWeights {
	return scoreWeights{
		teacherUtilization: 0.25,
		roomUtilization:    0.20,
		preference:         0.25,
		conflict:           0.15,
		compactness:        0.15,
	}
}

func weightsFromConfig(cfg config.OptimizerConfig) scoreWeights {
	w := scoreWeights{
		teacherUtilization: cfg.TeacherUtilizationWeight,
		roomUtilization:    cfg.RoomUtilizationWeight,
		preference:         cfg.PreferenceWeight,
		conflict:           cfg.ConflictWeight,
		compactness:        cfg.CompactnessWeight,
	}
	if w.teacherUtilization+w.roomUtilization+w.preference+w.conflict+w.compactness == 0 {
		return defaultScoreWeights()
	}
	return w
}

// computeScore combines the five sub-scores into one weighted value clamped
// to [0,100].
func computeScore(slots []*models.ScheduleSlot, totalConflicts, resolvedConflicts int, weights scoreWeights) models.ScoreBreakdown {
	index := buildResourceIndex(slots)

	breakdown := models.ScoreBreakdown{
		TeacherUtilization:     averageUtilization(index.byTeacher, maxSlotsPerTeacher),
		RoomUtilization:        averageUtilization(index.byRoom, maxSlotsPerRoom),
		ConflictResolution:     conflictResolutionScore(totalConflicts, resolvedConflicts),
		Compactness:            compactnessScore(index.byTeacher),
		PreferenceSatisfaction: preferenceScore(slots),
	}

	final := breakdown.TeacherUtilization*weights.teacherUtilization +
		breakdown.RoomUtilization*weights.roomUtilization +
		breakdown.PreferenceSatisfaction*weights.preference +
		breakdown.ConflictResolution*weights.conflict +
		breakdown.Compactness*weights.compactness

	breakdown.Final = clampScore(final)
	return breakdown
}

func conflictResolutionScore(total, resolved int) float64 {
	if total == 0 {
		return 100
	}
	return clampScore(float64(resolved) / float64(total) * 100)
}

// compactnessScore penalizes idle gaps in teachers' daily schedules. Gaps at
// or below the noise floor are ignored. Teachers whose slots yield no
// qualifying gap are excluded from the average; when nobody qualifies the
// score is a full 100.
func compactnessScore(byTeacher map[string][]*models.ScheduleSlot) float64 {
	var gapSum float64
	gapCount := 0

	for _, group := range byTeacher {
		timed := make([]*models.ScheduleSlot, 0, len(group))
		for _, slot := range group {
			if slot.HasTimes() {
				timed = append(timed, slot)
			}
		}
		if len(timed) < 2 {
			continue
		}
		ordered := sortByDayAndStart(timed)
		for i := 0; i < len(ordered)-1; i++ {
			current, next := ordered[i], ordered[i+1]
			if current.DayOfWeek != next.DayOfWeek {
				continue
			}
			gap := next.StartTime.Minutes() - current.EndTime.Minutes()
			if gap > compactnessGapFloorMinutes {
				gapSum += float64(gap)
				gapCount++
			}
		}
	}

	if gapCount == 0 {
		return 100
	}
	avgGap := gapSum / float64(gapCount)
	return clampScore(100 - avgGap/compactnessGapScaleMinutes*100)
}

// preferenceScore is the share of classified slots whose placement honors
// their priority: urgent-important courses must start before noon, everything
// else is satisfied by construction.
func preferenceScore(slots []*models.ScheduleSlot) float64 {
	qualifying := 0
	satisfied := 0
	for _, slot := range slots {
		if slot.Course == nil || slot.StartTime == nil {
			continue
		}
		qualifying++
		if classifySlotPriority(slot) != models.PriorityUrgentImportant {
			satisfied++
			continue
		}
		if slot.StartTime.Minutes() < noonMinutes {
			satisfied++
		}
	}
	if qualifying == 0 {
		return 100
	}
	return float64(satisfied) / float64(qualifying) * 100
}

func clampScore(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
