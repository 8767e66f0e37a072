package repository

import (
	"fmt"
	"testing"

	"github.com/consulate-portal/scheduler/internal/scheduling"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapPgError_TransientCodes(t *testing.T) {
	for _, code := range []string{"40001", "40P01", "55P03"} {
		err := mapPgError("commit transaction", &pgconn.PgError{Code: code})
		assert.ErrorIs(t, err, scheduling.ErrConcurrencyConflict, code)
	}
}

func TestMapPgError_ExclusionViolation(t *testing.T) {
	// Страховочный констрейнт непересечения в базе: для вызывающего
	// это обычное занятое окно, а не внутренняя ошибка
	pgErr := &pgconn.PgError{Code: "23P01", ConstraintName: "appointments_agent_no_overlap"}

	err := mapPgError("insert appointment", pgErr)

	assert.ErrorIs(t, err, scheduling.ErrSlotUnavailable)
	assert.Contains(t, err.Error(), "appointments_agent_no_overlap")
}

func TestMapPgError_PassesThroughOtherErrors(t *testing.T) {
	cause := fmt.Errorf("connection reset")

	err := mapPgError("insert appointment", cause)

	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, scheduling.ErrConcurrencyConflict)
}

func TestMapPgError_OtherPgCodesUnmapped(t *testing.T) {
	err := mapPgError("insert appointment", &pgconn.PgError{Code: "23505"})

	assert.NotErrorIs(t, err, scheduling.ErrConcurrencyConflict)
	assert.NotErrorIs(t, err, scheduling.ErrSlotUnavailable)
}
