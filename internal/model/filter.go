package model

import "time"

// AppointmentFilter — единый объект фильтрации записей.
// Незаполненные поля не участвуют в запросе: один построитель WHERE
// вместо отдельной функции на каждую комбинацию условий.
type AppointmentFilter struct {
	OrganizationID int64
	AgentID        *int64
	AttendeeID     *int64
	ServiceID      *int64
	Statuses       []AppointmentStatus
	From           time.Time // start_time >= From
	To             time.Time // start_time < To
	EndedBefore    time.Time // end_time <= EndedBefore (для поиска просроченных)
}

// ActiveStatuses — статусы, занимающие временное окно агента
func ActiveStatuses() []AppointmentStatus {
	return []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed}
}
