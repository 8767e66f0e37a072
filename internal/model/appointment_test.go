package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus_LegalTransitions(t *testing.T) {
	cases := []struct {
		from   AppointmentStatus
		action TransitionAction
		want   AppointmentStatus
	}{
		{AppointmentStatusPending, ActionConfirm, AppointmentStatusConfirmed},
		{AppointmentStatusPending, ActionCancel, AppointmentStatusCancelled},
		{AppointmentStatusPending, ActionSupersede, AppointmentStatusRescheduled},
		{AppointmentStatusConfirmed, ActionComplete, AppointmentStatusCompleted},
		{AppointmentStatusConfirmed, ActionMiss, AppointmentStatusMissed},
		{AppointmentStatusConfirmed, ActionCancel, AppointmentStatusCancelled},
		{AppointmentStatusConfirmed, ActionSupersede, AppointmentStatusRescheduled},
	}

	for _, tc := range cases {
		appt := &Appointment{Status: tc.from}
		next, ok := appt.NextStatus(tc.action)
		assert.True(t, ok, "%s + %s", tc.from, tc.action)
		assert.Equal(t, tc.want, next)
	}
}

func TestNextStatus_IllegalTransitions(t *testing.T) {
	cases := []struct {
		from   AppointmentStatus
		action TransitionAction
	}{
		{AppointmentStatusPending, ActionComplete},
		{AppointmentStatusPending, ActionMiss},
		{AppointmentStatusConfirmed, ActionConfirm},
	}

	for _, tc := range cases {
		appt := &Appointment{Status: tc.from}
		_, ok := appt.NextStatus(tc.action)
		assert.False(t, ok, "%s + %s", tc.from, tc.action)
	}
}

func TestNextStatus_TerminalStatesFrozen(t *testing.T) {
	terminal := []AppointmentStatus{
		AppointmentStatusCompleted,
		AppointmentStatusMissed,
		AppointmentStatusCancelled,
		AppointmentStatusRescheduled,
	}
	actions := []TransitionAction{
		ActionConfirm, ActionComplete, ActionMiss, ActionCancel, ActionSupersede,
	}

	// Из конечного статуса нет ни одного легального перехода
	for _, status := range terminal {
		appt := &Appointment{Status: status}
		assert.True(t, appt.IsTerminal())
		for _, action := range actions {
			_, ok := appt.NextStatus(action)
			assert.False(t, ok, "%s + %s", status, action)
		}
	}
}

func TestIsActive(t *testing.T) {
	assert.True(t, (&Appointment{Status: AppointmentStatusPending}).IsActive())
	assert.True(t, (&Appointment{Status: AppointmentStatusConfirmed}).IsActive())
	assert.False(t, (&Appointment{Status: AppointmentStatusCancelled}).IsActive())
	assert.False(t, (&Appointment{Status: AppointmentStatusRescheduled}).IsActive())
}
