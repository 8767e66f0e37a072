package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"     // Создана, агент ещё не назначен
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"   // Подтверждена, агент назначен
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled" // Перенесена, заменена новой записью
	AppointmentStatusCompleted   AppointmentStatus = "completed"   // Приём состоялся
	AppointmentStatusMissed      AppointmentStatus = "missed"      // Заявитель не явился
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"   // Отменена
)

type AppointmentType string

const (
	AppointmentTypeDocumentSubmission AppointmentType = "document_submission"
	AppointmentTypeConsultation       AppointmentType = "consultation"
	AppointmentTypeOther              AppointmentType = "other"
)

// TransitionAction — действие над статусом записи
type TransitionAction string

const (
	ActionConfirm   TransitionAction = "confirm"
	ActionComplete  TransitionAction = "complete"
	ActionMiss      TransitionAction = "miss"
	ActionCancel    TransitionAction = "cancel"
	ActionSupersede TransitionAction = "supersede" // только через перенос записи
)

// Appointment — запись на приём в консульском учреждении
type Appointment struct {
	ID             int64             `json:"id"`
	GroupID        uuid.UUID         `json:"group_id"` // связывает цепочку перенесённых записей
	OrganizationID int64             `json:"organization_id"`
	CountryCode    string            `json:"country_code"`
	ServiceID      *int64            `json:"service_id"` // указатель - может быть nil
	RequestID      *int64            `json:"request_id"`
	AttendeeID     int64             `json:"attendee_id"`
	AgentID        *int64            `json:"agent_id"` // nil пока агент не назначен
	Date           time.Time         `json:"date"`     // календарный день приёма
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	Duration       int               `json:"duration"` // в минутах
	Type           AppointmentType   `json:"type"`
	Status         AppointmentStatus `json:"status"`
	Instructions   string            `json:"instructions"`
	RescheduledTo  *int64            `json:"rescheduled_to"` // id записи-замены
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Таблица легальных переходов статусов.
// Переход supersede из pending нужен для переноса записи,
// у которой агент ещё не назначен.
var appointmentTransitions = map[AppointmentStatus]map[TransitionAction]AppointmentStatus{
	AppointmentStatusPending: {
		ActionConfirm:   AppointmentStatusConfirmed,
		ActionCancel:    AppointmentStatusCancelled,
		ActionSupersede: AppointmentStatusRescheduled,
	},
	AppointmentStatusConfirmed: {
		ActionComplete:  AppointmentStatusCompleted,
		ActionMiss:      AppointmentStatusMissed,
		ActionCancel:    AppointmentStatusCancelled,
		ActionSupersede: AppointmentStatusRescheduled,
	},
}

// NextStatus возвращает статус после применения действия.
// false - переход нелегален.
func (a *Appointment) NextStatus(action TransitionAction) (AppointmentStatus, bool) {
	next, ok := appointmentTransitions[a.Status][action]
	return next, ok
}

// IsActive проверяет занимает ли запись своё временное окно
func (a *Appointment) IsActive() bool {
	return a.Status == AppointmentStatusPending || a.Status == AppointmentStatusConfirmed
}

// IsTerminal проверяет является ли статус конечным
func (a *Appointment) IsTerminal() bool {
	switch a.Status {
	case AppointmentStatusCompleted, AppointmentStatusMissed,
		AppointmentStatusCancelled, AppointmentStatusRescheduled:
		return true
	}
	return false
}

// Slot возвращает временное окно записи
func (a *Appointment) Slot() TimeSlot {
	return TimeSlot{Start: a.StartTime, End: a.EndTime}
}
