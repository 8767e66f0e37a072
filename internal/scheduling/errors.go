package scheduling

import "errors"

// Ошибки ядра планирования. Публичные операции возвращают их
// завёрнутыми через fmt.Errorf("%w"), вызывающий код ветвится по errors.Is.
var (
	// ErrNotFound - организация, услуга или запись не найдены
	ErrNotFound = errors.New("not found")

	// ErrValidation - некорректные входные данные (нулевая длительность,
	// конец раньше начала, слот вне бронируемой сетки)
	ErrValidation = errors.New("validation failed")

	// ErrSlotUnavailable - детерминированный конфликт: окно уже занято.
	// Повторять с теми же аргументами бессмысленно, нужно перечитать доступность.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrNoAgentAvailable - ни один квалифицированный агент не свободен
	ErrNoAgentAvailable = errors.New("no agent available")

	// ErrConcurrencyConflict - транзакция не уложилась в бюджет блокировок.
	// Безопасно повторить с теми же аргументами: частичное состояние не записано.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrInvalidTransition - нелегальный переход статуса, ошибка вызывающей логики
	ErrInvalidTransition = errors.New("invalid status transition")
)
