package service

import "github.com/noah-isme/sma-timetable-optimizer/internal/models"

const (
	maxSlotsPerTeacher = 30
	maxSlotsPerRoom    = 35

	// A room is considered underutilized below this share of its weekly
	// slot capacity.
	underutilizedRoomShare = 0.3

	weeklyTeachingDays = 5
)

// analyzeWaste measures unused capacity: empty slots across the room
// universe, rooms running under capacity, and teacher/room utilization
// percentages. Recomputed fresh each run; nothing is persisted from here
// directly.
func analyzeWaste(slots []*models.ScheduleSlot, rooms []models.Room) models.WasteAnalysis {
	analysis := models.WasteAnalysis{}

	index := buildResourceIndex(slots)
	analysis.TeacherUtilization = averageUtilization(index.byTeacher, maxSlotsPerTeacher)
	analysis.RoomUtilization = averageUtilization(index.byRoom, maxSlotsPerRoom)

	if len(rooms) == 0 {
		return analysis
	}

	capacity := len(rooms) * len(candidateStartTimes) * weeklyTeachingDays
	occupied := 0
	for _, slot := range slots {
		if slot.HasTimes() {
			occupied++
		}
	}
	if occupied > capacity {
		occupied = capacity
	}
	analysis.EmptySlots = capacity - occupied
	if capacity > 0 {
		analysis.WastePercent = float64(analysis.EmptySlots) / float64(capacity) * 100
	}

	floor := underutilizedRoomShare * maxSlotsPerRoom
	threshold := int(floor)
	for _, room := range rooms {
		if len(index.byRoom[room.ID]) < threshold {
			analysis.UnderutilizedRooms++
		}
	}

	return analysis
}

// averageUtilization averages min(slotCount/max, 1)×100 over resources that
// hold at least one slot. Resources with no slots are excluded.
func averageUtilization(groups map[string][]*models.ScheduleSlot, maxSlots int) float64 {
	if len(groups) == 0 {
		return 0
	}
	var sum float64
	count := 0
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		ratio := float64(len(group)) / float64(maxSlots)
		if ratio > 1 {
			ratio = 1
		}
		sum += ratio * 100
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
