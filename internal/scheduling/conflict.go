package scheduling

import "github.com/consulate-portal/scheduler/internal/model"

// HasConflict проверяет пересекается ли кандидат с существующими записями.
// Отменённые и перенесённые записи окно не занимают и исключаются
// до сравнения. Полуоткрытые интервалы: запись, заканчивающаяся ровно
// в начале кандидата, конфликтом не считается.
func HasConflict(candidate model.TimeSlot, existing []*model.Appointment) bool {
	for _, appt := range existing {
		if !appt.IsActive() {
			continue
		}
		if candidate.Overlaps(appt.Slot()) {
			return true
		}
	}
	return false
}
