package scheduling

import "time"

// Clock абстрагирует "сейчас", чтобы генерация слотов и проверки
// конфликтов были детерминированы в тестах
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock возвращает часы на основе time.Now
func SystemClock() Clock {
	return systemClock{}
}
