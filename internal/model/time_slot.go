package model

import "time"

// TimeSlot — кандидат на бронирование, полуоткрытый интервал [Start, End).
// Value object: равенство структурное, никогда не сохраняется сам по себе.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps проверяет пересечение полуоткрытых интервалов.
// Слот, заканчивающийся ровно в начале другого, пересечением не считается.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return s.Start.Before(other.End) && other.Start.Before(s.End)
}

// Equal сравнивает слоты структурно (одинаковые start+end)
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.Start.Equal(other.Start) && s.End.Equal(other.End)
}

// DurationMinutes возвращает длительность слота в минутах
func (s TimeSlot) DurationMinutes() int {
	return int(s.End.Sub(s.Start) / time.Minute)
}
