package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/consulate-portal/scheduler/internal/scheduling"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{scheduling.ErrNotFound, http.StatusNotFound},
		{scheduling.ErrValidation, http.StatusUnprocessableEntity},
		{scheduling.ErrSlotUnavailable, http.StatusConflict},
		{scheduling.ErrNoAgentAvailable, http.StatusConflict},
		{scheduling.ErrInvalidTransition, http.StatusConflict},
		{scheduling.ErrConcurrencyConflict, http.StatusServiceUnavailable},
		{errors.New("database on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), "%v", tc.err)
		// Завёрнутая ошибка маппится так же
		wrapped := fmt.Errorf("book appointment: %w", tc.err)
		assert.Equal(t, tc.want, statusFor(wrapped))
	}
}
