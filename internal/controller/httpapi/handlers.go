package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
	"github.com/consulate-portal/scheduler/internal/scheduling"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// handleGetAvailability — свободные окна организации на день,
// без привязки к агентам: ?date=2026-09-01&duration=30
func (h *Handler) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), h.timezone)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid duration")
		return
	}

	slots, err := h.scheduler.GetAvailability(r.Context(), orgID, date, duration)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"slots": emptyIfNil(slots)})
}

// handleGetSlotsWithAgents — слоты диапазона дат со свободными агентами:
// ?country=KZ&service=5&from=2026-09-01&to=2026-09-07&duration=30
func (h *Handler) handleGetSlotsWithAgents(w http.ResponseWriter, r *http.Request) {
	orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	q := r.URL.Query()

	from, err := time.ParseInLocation("2006-01-02", q.Get("from"), h.timezone)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
		return
	}
	to, err := time.ParseInLocation("2006-01-02", q.Get("to"), h.timezone)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
		return
	}
	duration, err := strconv.Atoi(q.Get("duration"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid duration")
		return
	}

	var serviceID *int64
	if s := q.Get("service"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid service id")
			return
		}
		serviceID = &id
	}

	slots, err := h.scheduler.GetAvailableSlotsWithAgents(r.Context(), orgID, q.Get("country"), serviceID, from, to, duration)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"slots": emptyIfNil(slots)})
}

type bookRequest struct {
	OrganizationID int64                 `json:"organization_id"`
	CountryCode    string                `json:"country_code"`
	AttendeeID     int64                 `json:"attendee_id"`
	ServiceID      *int64                `json:"service_id"`
	RequestID      *int64                `json:"request_id"`
	Start          time.Time             `json:"start"`
	End            time.Time             `json:"end"`
	AgentID        *int64                `json:"agent_id"`
	DeferAgent     bool                  `json:"defer_agent"`
	Type           model.AppointmentType `json:"type"`
	Instructions   string                `json:"instructions"`
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Type == "" {
		req.Type = model.AppointmentTypeOther
	}

	appt, err := h.scheduler.Book(r.Context(), scheduling.BookingRequest{
		OrganizationID:   req.OrganizationID,
		CountryCode:      req.CountryCode,
		AttendeeID:       req.AttendeeID,
		ServiceID:        req.ServiceID,
		RequestID:        req.RequestID,
		Slot:             model.TimeSlot{Start: req.Start, End: req.End},
		PreferredAgentID: req.AgentID,
		DeferAgent:       req.DeferAgent,
		Type:             req.Type,
		Instructions:     req.Instructions,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	// Уведомление - побочный эффект транспортного слоя, не ядра
	h.notifier.AppointmentBooked(r.Context(), appt)

	h.writeJSON(w, http.StatusCreated, appt)
}

type rescheduleRequest struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	AgentID *int64    `json:"agent_id"`
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	replacement, superseded, err := h.scheduler.Reschedule(r.Context(), scheduling.RescheduleRequest{
		AppointmentID: id,
		NewStart:      req.Start,
		NewEnd:        req.End,
		NewAgentID:    req.AgentID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.notifier.AppointmentRescheduled(r.Context(), superseded, replacement)

	h.writeJSON(w, http.StatusOK, replacement)
}

type assignAgentRequest struct {
	AgentID int64 `json:"agent_id"`
}

// handleAssignAgent назначает агента отложенной записи
func (h *Handler) handleAssignAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	var req assignAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.scheduler.AssignAgent(r.Context(), id, req.AgentID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) transitionHandler(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid appointment id")
			return
		}

		appt, err := h.scheduler.Transition(r.Context(), id, model.TransitionAction(action))
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		h.notifier.StatusChanged(r.Context(), appt, model.TransitionAction(action))

		h.writeJSON(w, http.StatusOK, appt)
	}
}

func (h *Handler) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.scheduler.GetAppointment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, appt)
}

// handleListAppointments — выборка по фильтру:
// ?organization=1&agent=2&attendee=3&status=confirmed&from=...&to=...
func (h *Handler) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter model.AppointmentFilter

	if s := q.Get("organization"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid organization id")
			return
		}
		filter.OrganizationID = id
	}
	if s := q.Get("agent"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid agent id")
			return
		}
		filter.AgentID = &id
	}
	if s := q.Get("attendee"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid attendee id")
			return
		}
		filter.AttendeeID = &id
	}
	if s := q.Get("status"); s != "" {
		filter.Statuses = []model.AppointmentStatus{model.AppointmentStatus(s)}
	}
	if s := q.Get("from"); s != "" {
		from, err := time.ParseInLocation("2006-01-02", s, h.timezone)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		filter.From = from
	}
	if s := q.Get("to"); s != "" {
		to, err := time.ParseInLocation("2006-01-02", s, h.timezone)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		filter.To = to
	}

	appts, err := h.scheduler.ListAppointments(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled service error",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
	}
	h.writeError(w, status, err.Error())
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
