package model

import "time"

// DefaultGranularityMinutes — шаг сетки слотов по умолчанию
const DefaultGranularityMinutes = 30

// OperatingHours — рабочие часы организации (или конкретной услуги).
// Справочные данные: создаются администрацией организации,
// ядро планирования их только читает.
type OperatingHours struct {
	ID             int64          `json:"id"`
	OrganizationID int64          `json:"organization_id"`
	ServiceID      *int64         `json:"service_id"` // nil = часы всей организации
	Weekdays       []time.Weekday `json:"weekdays"`   // 0 = Sunday, 6 = Saturday
	StartHour      int            `json:"start_hour"` // 0-23
	StartMinute    int            `json:"start_minute"`
	EndHour        int            `json:"end_hour"`
	EndMinute      int            `json:"end_minute"`
	Granularity    int            `json:"granularity"` // шаг сетки в минутах
}

// AppliesTo проверяет входит ли день недели в рабочие дни
func (h *OperatingHours) AppliesTo(day time.Weekday) bool {
	for _, wd := range h.Weekdays {
		if wd == day {
			return true
		}
	}
	return false
}

// WindowFor возвращает рабочее окно (открытие, закрытие) для календарного дня
func (h *OperatingHours) WindowFor(date time.Time) (time.Time, time.Time) {
	year, month, day := date.Date()
	open := time.Date(year, month, day, h.StartHour, h.StartMinute, 0, 0, date.Location())
	close := time.Date(year, month, day, h.EndHour, h.EndMinute, 0, 0, date.Location())
	return open, close
}

// Step возвращает шаг сетки, подставляя дефолт для нулевого значения
func (h *OperatingHours) Step() time.Duration {
	if h.Granularity <= 0 {
		return DefaultGranularityMinutes * time.Minute
	}
	return time.Duration(h.Granularity) * time.Minute
}
