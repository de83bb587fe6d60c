package service

import (
	"strings"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

var advancedCourseMarkers = []string{"AP ", "HONORS", "IB "}

// classifySlotPriority derives the urgency/importance bucket from the slot's
// course. Pure: the same (isCoreRequired, name, credits) always yields the
// same category.
func classifySlotPriority(slot *models.ScheduleSlot) models.PriorityCategory {
	course := slot.Course
	if course == nil {
		return models.PriorityNotUrgentNotImportant
	}
	if course.IsCoreRequired {
		return models.PriorityUrgentImportant
	}
	upper := strings.ToUpper(course.Name)
	for _, marker := range advancedCourseMarkers {
		if strings.Contains(upper, marker) {
			return models.PriorityNotUrgentImportant
		}
	}
	if course.Credits >= 1.0 {
		return models.PriorityUrgentNotImportant
	}
	return models.PriorityNotUrgentNotImportant
}

// classifyPriorities aggregates category counts across all slots.
func classifyPriorities(slots []*models.ScheduleSlot) map[models.PriorityCategory]int {
	counts := map[models.PriorityCategory]int{
		models.PriorityUrgentImportant:       0,
		models.PriorityNotUrgentImportant:    0,
		models.PriorityUrgentNotImportant:    0,
		models.PriorityNotUrgentNotImportant: 0,
	}
	for _, slot := range slots {
		counts[classifySlotPriority(slot)]++
	}
	return counts
}
