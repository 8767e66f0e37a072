package scheduling

import (
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
)

// GenerateSlots строит упорядоченную сетку кандидатов на календарный день.
// Чистая функция: два вызова с одинаковыми аргументами дают идентичный список.
// Начинаем с открытия и шагаем по сетке, пока слот целиком помещается
// в рабочее окно - слот, чей конец вылезает за закрытие, не выдаётся.
func GenerateSlots(date time.Time, durationMinutes int, hours *model.OperatingHours) []model.TimeSlot {
	if hours == nil || durationMinutes <= 0 {
		return nil
	}
	if !hours.AppliesTo(date.Weekday()) {
		return nil
	}

	open, close := hours.WindowFor(date)
	duration := time.Duration(durationMinutes) * time.Minute
	step := hours.Step()

	var slots []model.TimeSlot
	for start := open; !start.Add(duration).After(close); start = start.Add(step) {
		slots = append(slots, model.TimeSlot{Start: start, End: start.Add(duration)})
	}

	return slots
}

// ContainsSlot проверяет что слот присутствует в сетке.
// Используется при бронировании: серверная перепроверка вместо
// доверия слоту, выбранному клиентом по устаревшей доступности.
func ContainsSlot(slots []model.TimeSlot, candidate model.TimeSlot) bool {
	for _, s := range slots {
		if s.Equal(candidate) {
			return true
		}
	}
	return false
}
