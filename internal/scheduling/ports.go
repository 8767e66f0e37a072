package scheduling

import (
	"context"
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
)

// LockKey — ключ сериализации бронирований: все мутации записей
// одной организации за один день выполняются строго по очереди
type LockKey struct {
	OrganizationID int64
	Day            time.Time
}

// Store — транзакционное хранилище записей. Единственный владелец
// мутаций: прямых обновлений полей в обход Store нет, поэтому
// инвариант непересечения нельзя нарушить посторонним писателем.
type Store interface {
	// GetAppointment возвращает (nil, nil) если запись не найдена
	GetAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	FindAppointments(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error)

	// WithinTx выполняет fn в одной атомарной транзакции, удерживая
	// блокировки по всем ключам. Ошибка fn откатывает всё целиком.
	// Невозможность взять блокировку в отведённое время - ErrConcurrencyConflict.
	WithinTx(ctx context.Context, keys []LockKey, fn func(ctx context.Context, tx StoreTx) error) error
}

// StoreTx — операции, доступные внутри транзакции
type StoreTx interface {
	GetAppointment(ctx context.Context, id int64) (*model.Appointment, error)
	FindAppointments(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error)
	InsertAppointment(ctx context.Context, appt *model.Appointment) (*model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status model.AppointmentStatus, rescheduledTo *int64) (*model.Appointment, error)
	UpdateAppointmentAgent(ctx context.Context, id int64, agentID int64) (*model.Appointment, error)
}

// HoursRegistry — справочник рабочих часов, администрируется вне ядра
type HoursRegistry interface {
	// GetHours ищет часы услуги, затем часы организации.
	// Возвращает ErrNotFound если у организации часы не настроены.
	GetHours(ctx context.Context, organizationID int64, serviceID *int64) (*model.OperatingHours, error)
}

// Directory — внешний справочник квалификации агентов
type Directory interface {
	// QualifiedAgents возвращает id агентов по возрастанию
	QualifiedAgents(ctx context.Context, organizationID int64, countryCode string, serviceID *int64) ([]int64, error)
}
