package scheduling

import (
	"testing"
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Понедельник
var testMonday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func workweekHours() *model.OperatingHours {
	return &model.OperatingHours{
		ID:             1,
		OrganizationID: 1,
		Weekdays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		StartHour:   9,
		EndHour:     17,
		Granularity: 30,
	}
}

func TestGenerateSlots_FullDay(t *testing.T) {
	slots := GenerateSlots(testMonday, 30, workweekHours())

	// 09:00 - 17:00 с шагом 30 минут: ровно 16 слотов, 09:00 ... 16:30
	require.Len(t, slots, 16)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC), slots[0].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 30, 0, 0, time.UTC), slots[0].End)
	assert.Equal(t, time.Date(2026, 9, 7, 16, 30, 0, 0, time.UTC), slots[15].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 17, 0, 0, 0, time.UTC), slots[15].End)

	// Порядок строго хронологический
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Start.Before(slots[i].Start))
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	first := GenerateSlots(testMonday, 30, workweekHours())
	second := GenerateSlots(testMonday, 30, workweekHours())

	require.Equal(t, first, second)
}

func TestGenerateSlots_OffWeekday(t *testing.T) {
	saturday := testMonday.AddDate(0, 0, 5)

	slots := GenerateSlots(saturday, 30, workweekHours())

	assert.Empty(t, slots)
}

func TestGenerateSlots_DurationExceedsWindow(t *testing.T) {
	// Длительность больше рабочего окна - пустая последовательность, не ошибка
	slots := GenerateSlots(testMonday, 9*60, workweekHours())

	assert.Empty(t, slots)
}

func TestGenerateSlots_NonPositiveDuration(t *testing.T) {
	assert.Empty(t, GenerateSlots(testMonday, 0, workweekHours()))
	assert.Empty(t, GenerateSlots(testMonday, -30, workweekHours()))
}

func TestGenerateSlots_LastSlotNeverPastClosing(t *testing.T) {
	// Длительность не делит окно нацело: слот, вылезающий за закрытие, не выдаётся
	hours := workweekHours()
	hours.EndHour = 10
	hours.EndMinute = 45

	slots := GenerateSlots(testMonday, 30, hours)

	// 09:00, 09:30, 10:00 - следующий (10:30-11:00) кончался бы после 10:45
	require.Len(t, slots, 3)
	close := time.Date(2026, 9, 7, 10, 45, 0, 0, time.UTC)
	for _, slot := range slots {
		assert.False(t, slot.End.After(close))
	}
}

func TestGenerateSlots_CustomGranularity(t *testing.T) {
	hours := workweekHours()
	hours.Granularity = 60

	slots := GenerateSlots(testMonday, 30, hours)

	// Шаг час, длительность полчаса: 09:00-09:30, 10:00-10:30, ... 16:00-16:30
	require.Len(t, slots, 8)
	assert.Equal(t, time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC), slots[1].Start)
	assert.Equal(t, time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC), slots[1].End)
}

func TestContainsSlot(t *testing.T) {
	slots := GenerateSlots(testMonday, 30, workweekHours())

	onGrid := model.TimeSlot{
		Start: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC),
	}
	offGrid := model.TimeSlot{
		Start: time.Date(2026, 9, 7, 10, 15, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 7, 10, 45, 0, 0, time.UTC),
	}

	assert.True(t, ContainsSlot(slots, onGrid))
	assert.False(t, ContainsSlot(slots, offGrid))
}
