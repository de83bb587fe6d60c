package service

import (
	"sort"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

// flowLimits carries the advisory thresholds of the flow auditor.
type flowLimits struct {
	maxCoursesPerTeacherDay int
	maxGapMinutes           int
}

// auditFlow runs the advisory flow checks: per-teacher daily WIP limit,
// oversized gaps between consecutive same-day slots, and missing times.
// Findings are diagnostics only; nothing is repaired or escalated.
func auditFlow(slots []*models.ScheduleSlot, limits flowLimits) []models.FlowViolation {
	var violations []models.FlowViolation

	violations = append(violations, auditWIPLimits(slots, limits.maxCoursesPerTeacherDay)...)
	violations = append(violations, auditGaps(slots, limits.maxGapMinutes)...)

	for _, slot := range slots {
		if !slot.HasTimes() {
			violations = append(violations, models.FlowViolation{
				Type:      models.FlowViolationMissingTime,
				SlotID:    slot.ID,
				DayOfWeek: slot.DayOfWeek,
			})
		}
	}

	return violations
}

func auditWIPLimits(slots []*models.ScheduleSlot, maxCourses int) []models.FlowViolation {
	type teacherDay struct {
		teacherID string
		day       string
	}
	courses := make(map[teacherDay]map[string]struct{})
	for _, slot := range slots {
		if slot.TeacherID == nil || slot.CourseID == nil {
			continue
		}
		key := teacherDay{teacherID: *slot.TeacherID, day: slot.DayOfWeek}
		if courses[key] == nil {
			courses[key] = make(map[string]struct{})
		}
		courses[key][*slot.CourseID] = struct{}{}
	}

	var violations []models.FlowViolation
	for key, distinct := range courses {
		if len(distinct) > maxCourses {
			violations = append(violations, models.FlowViolation{
				Type:      models.FlowViolationWIPLimit,
				TeacherID: key.teacherID,
				DayOfWeek: key.day,
				Count:     len(distinct),
			})
		}
	}
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].TeacherID == violations[j].TeacherID {
			return dayIndex(violations[i].DayOfWeek) < dayIndex(violations[j].DayOfWeek)
		}
		return violations[i].TeacherID < violations[j].TeacherID
	})
	return violations
}

func auditGaps(slots []*models.ScheduleSlot, maxGap int) []models.FlowViolation {
	byTeacher := make(map[string][]*models.ScheduleSlot)
	for _, slot := range slots {
		if slot.TeacherID == nil || !slot.HasTimes() {
			continue
		}
		byTeacher[*slot.TeacherID] = append(byTeacher[*slot.TeacherID], slot)
	}

	var violations []models.FlowViolation
	for _, teacherID := range sortedKeys(byTeacher) {
		ordered := sortByDayAndStart(byTeacher[teacherID])
		for i := 0; i < len(ordered)-1; i++ {
			current, next := ordered[i], ordered[i+1]
			if current.DayOfWeek != next.DayOfWeek {
				continue
			}
			gap := next.StartTime.Minutes() - current.EndTime.Minutes()
			if gap > maxGap {
				violations = append(violations, models.FlowViolation{
					Type:       models.FlowViolationGap,
					TeacherID:  teacherID,
					DayOfWeek:  current.DayOfWeek,
					GapMinutes: gap,
				})
			}
		}
	}
	return violations
}

func sortByDayAndStart(slots []*models.ScheduleSlot) []*models.ScheduleSlot {
	ordered := make([]*models.ScheduleSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := dayIndex(ordered[i].DayOfWeek), dayIndex(ordered[j].DayOfWeek)
		if di != dj {
			return di < dj
		}
		return ordered[i].StartTime.Minutes() < ordered[j].StartTime.Minutes()
	})
	return ordered
}
