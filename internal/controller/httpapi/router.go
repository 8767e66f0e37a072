package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/consulate-portal/scheduler/internal/notify"
	"github.com/consulate-portal/scheduler/internal/scheduling"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handler — HTTP-поверхность над ядром планирования.
// Тонкий слой: парсинг, вызов сервиса, маппинг ошибок, уведомления.
type Handler struct {
	scheduler *scheduling.Service
	notifier  *notify.Notifier
	timezone  *time.Location
	logger    *zap.Logger
}

func NewHandler(scheduler *scheduling.Service, notifier *notify.Notifier, timezone *time.Location, logger *zap.Logger) *Handler {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Handler{
		scheduler: scheduler,
		notifier:  notifier,
		timezone:  timezone,
		logger:    logger,
	}
}

// Router собирает маршруты API
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/organizations/{orgID}/availability", h.handleGetAvailability)
	r.Get("/organizations/{orgID}/slots", h.handleGetSlotsWithAgents)

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", h.handleListAppointments)
		r.Post("/", h.handleBook)
		r.Get("/{id}", h.handleGetAppointment)
		r.Post("/{id}/reschedule", h.handleReschedule)
		r.Post("/{id}/agent", h.handleAssignAgent)
		r.Post("/{id}/confirm", h.transitionHandler("confirm"))
		r.Post("/{id}/complete", h.transitionHandler("complete"))
		r.Post("/{id}/miss", h.transitionHandler("miss"))
		r.Post("/{id}/cancel", h.transitionHandler("cancel"))
	})

	return r
}

// statusFor переводит таксономию ошибок ядра в HTTP-статусы
func statusFor(err error) int {
	switch {
	case errors.Is(err, scheduling.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scheduling.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scheduling.ErrSlotUnavailable),
		errors.Is(err, scheduling.ErrNoAgentAvailable),
		errors.Is(err, scheduling.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, scheduling.ErrConcurrencyConflict):
		// Транзиентная ошибка: клиенту стоит повторить запрос
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
