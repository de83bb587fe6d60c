package service

import (
	"sort"

	"github.com/noah-isme/sma-timetable-optimizer/internal/models"
)

// Candidate start times the resolver may move a slot to, in preference order.
// Each is tested with a fixed 50-minute window regardless of the slot's own
// configured length; the commit preserves the original duration.
var candidateStartTimes = []models.TimeOfDay{
	models.NewTimeOfDay(7, 30),
	models.NewTimeOfDay(8, 30),
	models.NewTimeOfDay(9, 30),
	models.NewTimeOfDay(10, 30),
	models.NewTimeOfDay(11, 30),
	models.NewTimeOfDay(12, 30),
	models.NewTimeOfDay(13, 30),
	models.NewTimeOfDay(14, 30),
}

const resolutionTestMinutes = 50

var dayNameIndex = map[string]int{
	"MONDAY":    1,
	"TUESDAY":   2,
	"WEDNESDAY": 3,
	"THURSDAY":  4,
	"FRIDAY":    5,
	"SATURDAY":  6,
	"SUNDAY":    7,
}

func dayIndex(name string) int {
	return dayNameIndex[name]
}

// resourceIndex groups a schedule's slots by teacher and by room. Slots with
// an absent reference are omitted from the corresponding grouping.
type resourceIndex struct {
	byTeacher map[string][]*models.ScheduleSlot
	byRoom    map[string][]*models.ScheduleSlot
}

func buildResourceIndex(slots []*models.ScheduleSlot) resourceIndex {
	index := resourceIndex{
		byTeacher: make(map[string][]*models.ScheduleSlot),
		byRoom:    make(map[string][]*models.ScheduleSlot),
	}
	for _, slot := range slots {
		if slot.TeacherID != nil {
			index.byTeacher[*slot.TeacherID] = append(index.byTeacher[*slot.TeacherID], slot)
		}
		if slot.RoomID != nil {
			index.byRoom[*slot.RoomID] = append(index.byRoom[*slot.RoomID], slot)
		}
	}
	return index
}

// slotsOverlap reports half-open interval overlap on the same day. Touching
// endpoints do not overlap. Slots missing a time never overlap.
func slotsOverlap(a, b *models.ScheduleSlot) bool {
	if a.DayOfWeek != b.DayOfWeek {
		return false
	}
	if !a.HasTimes() || !b.HasTimes() {
		return false
	}
	return a.StartTime.Minutes() < b.EndTime.Minutes() && b.StartTime.Minutes() < a.EndTime.Minutes()
}

// detectGroupConflicts compares every unordered pair within one resource
// group. O(n²), acceptable for one school's daily slot counts.
func detectGroupConflicts(group []*models.ScheduleSlot, resourceID string, dimension models.ConflictDimension) []models.SlotConflict {
	var conflicts []models.SlotConflict
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if slotsOverlap(group[i], group[j]) {
				conflicts = append(conflicts, models.SlotConflict{
					First:      group[i],
					Second:     group[j],
					ResourceID: resourceID,
					Dimension:  dimension,
				})
			}
		}
	}
	return conflicts
}

// detectConflicts runs the detector once per teacher group and once per room
// group, in sorted resource order so results are deterministic.
func detectConflicts(index resourceIndex) []models.SlotConflict {
	var conflicts []models.SlotConflict
	for _, teacherID := range sortedKeys(index.byTeacher) {
		conflicts = append(conflicts, detectGroupConflicts(index.byTeacher[teacherID], teacherID, models.ConflictDimensionTeacher)...)
	}
	for _, roomID := range sortedKeys(index.byRoom) {
		conflicts = append(conflicts, detectGroupConflicts(index.byRoom[roomID], roomID, models.ConflictDimensionRoom)...)
	}
	return conflicts
}

func sortedKeys(groups map[string][]*models.ScheduleSlot) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// sharesResource reports whether two slots are bound to the same teacher or
// the same room.
func sharesResource(a, b *models.ScheduleSlot) bool {
	if a.TeacherID != nil && b.TeacherID != nil && *a.TeacherID == *b.TeacherID {
		return true
	}
	if a.RoomID != nil && b.RoomID != nil && *a.RoomID == *b.RoomID {
		return true
	}
	return false
}

// windowCollides tests the fixed 50-minute candidate window against every
// other slot in the schedule that shares a resource on the same day.
func windowCollides(slot *models.ScheduleSlot, all []*models.ScheduleSlot, start models.TimeOfDay) bool {
	windowEnd := start.Minutes() + resolutionTestMinutes
	for _, other := range all {
		if other == slot {
			continue
		}
		if other.DayOfWeek != slot.DayOfWeek || !other.HasTimes() {
			continue
		}
		if !sharesResource(slot, other) {
			continue
		}
		if start.Minutes() < other.EndTime.Minutes() && other.StartTime.Minutes() < windowEnd {
			return true
		}
	}
	return false
}

// resolveConflicts walks the detected conflicts in order and relocates the
// second slot of each pair to the first collision-free candidate start.
// Relocation mutates the slot in place, so later conflicts see the new
// placement; the walk must stay strictly sequential. Returns the resolved
// count and the slots that were moved.
func resolveConflicts(conflicts []models.SlotConflict, all []*models.ScheduleSlot) (int, []*models.ScheduleSlot) {
	resolved := 0
	var moved []*models.ScheduleSlot
	for i := range conflicts {
		conflict := &conflicts[i]
		target := conflict.Second
		if !slotsOverlap(conflict.First, conflict.Second) {
			// An earlier relocation already separated the pair.
			conflict.Resolved = true
			resolved++
			continue
		}
		for _, candidate := range candidateStartTimes {
			if windowCollides(target, all, candidate) {
				continue
			}
			duration := target.DurationMinutes()
			if duration <= 0 {
				duration = resolutionTestMinutes
			}
			start := candidate
			end := models.TimeOfDay(candidate.Minutes() + duration)
			target.StartTime = &start
			target.EndTime = &end
			conflict.Resolved = true
			resolved++
			moved = append(moved, target)
			break
		}
	}
	return resolved, moved
}

func slotPointers(slots []models.ScheduleSlot) []*models.ScheduleSlot {
	ptrs := make([]*models.ScheduleSlot, len(slots))
	for i := range slots {
		ptrs[i] = &slots[i]
	}
	return ptrs
}
