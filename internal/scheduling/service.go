package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service — публичная поверхность ядра планирования
type Service struct {
	store  Store
	hours  HoursRegistry
	agents Directory
	clock  Clock
	logger *zap.Logger
}

func NewService(store Store, hours HoursRegistry, agents Directory, clock Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{
		store:  store,
		hours:  hours,
		agents: agents,
		clock:  clock,
		logger: logger,
	}
}

// SlotAvailability — слот вместе со свободными для него агентами
type SlotAvailability struct {
	Slot            model.TimeSlot `json:"slot"`
	AvailableAgents []int64        `json:"available_agents"`
}

// GetAvailability возвращает свободные окна организации на день,
// без учёта конкретных агентов (грубая проверка "открыто ли вообще")
func (s *Service) GetAvailability(ctx context.Context, organizationID int64, date time.Time, durationMinutes int) ([]model.TimeSlot, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}

	hours, err := s.hours.GetHours(ctx, organizationID, nil)
	if err != nil {
		return nil, fmt.Errorf("get operating hours: %w", err)
	}

	candidates := GenerateSlots(date, durationMinutes, hours)
	if len(candidates) == 0 {
		return nil, nil
	}

	dayStart, dayEnd := dayBounds(date)
	existing, err := s.store.FindAppointments(ctx, model.AppointmentFilter{
		OrganizationID: organizationID,
		Statuses:       model.ActiveStatuses(),
		From:           dayStart,
		To:             dayEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}

	var free []model.TimeSlot
	for _, slot := range candidates {
		if !HasConflict(slot, existing) {
			free = append(free, slot)
		}
	}

	return free, nil
}

// GetAvailableSlotsWithAgents возвращает слоты диапазона дат вместе
// со списком свободных агентов для каждого. Слоты без единого
// свободного агента не выдаются.
func (s *Service) GetAvailableSlotsWithAgents(ctx context.Context, organizationID int64, countryCode string, serviceID *int64, rangeStart, rangeEnd time.Time, durationMinutes int) ([]SlotAvailability, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrValidation)
	}
	if rangeEnd.Before(rangeStart) {
		return nil, fmt.Errorf("%w: range end before range start", ErrValidation)
	}

	hours, err := s.hours.GetHours(ctx, organizationID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get operating hours: %w", err)
	}

	qualified, err := s.agents.QualifiedAgents(ctx, organizationID, countryCode, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get qualified agents: %w", err)
	}
	// Пустой список агентов - не ошибка: организация просто не укомплектована
	if len(qualified) == 0 {
		return nil, nil
	}
	sort.Slice(qualified, func(i, j int) bool { return qualified[i] < qualified[j] })

	var result []SlotAvailability
	for day := dayOf(rangeStart); !day.After(dayOf(rangeEnd)); day = day.AddDate(0, 0, 1) {
		slots := GenerateSlots(day, durationMinutes, hours)
		if len(slots) == 0 {
			continue
		}

		byAgent, err := s.agentAppointmentsForDay(ctx, organizationID, qualified, day)
		if err != nil {
			return nil, err
		}

		for _, slot := range slots {
			var available []int64
			for _, agentID := range qualified {
				if !HasConflict(slot, byAgent[agentID]) {
					available = append(available, agentID)
				}
			}
			if len(available) > 0 {
				result = append(result, SlotAvailability{Slot: slot, AvailableAgents: available})
			}
		}
	}

	return result, nil
}

// BookingRequest — входные параметры бронирования
type BookingRequest struct {
	OrganizationID   int64
	CountryCode      string
	AttendeeID       int64
	ServiceID        *int64
	RequestID        *int64
	Slot             model.TimeSlot
	PreferredAgentID *int64
	DeferAgent       bool // создать pending без назначения агента
	Type             model.AppointmentType
	Instructions     string
}

// Book атомарно проверяет окно и создаёт запись. Перепроверка конфликтов
// и вставка выполняются в одной транзакции под блокировкой (организация, день):
// из двух одновременных бронирований одного окна выигрывает ровно одно,
// проигравшее получает ErrSlotUnavailable.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	if err := s.validateSlot(ctx, req.OrganizationID, req.ServiceID, req.Slot); err != nil {
		return nil, err
	}

	appt, _, err := s.bookTx(ctx, req, uuid.New(), nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment booked",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("organization_id", appt.OrganizationID),
		zap.Int64("attendee_id", appt.AttendeeID),
		zap.Time("start_time", appt.StartTime),
		zap.String("status", string(appt.Status)),
	)

	return appt, nil
}

// bookTx — общая транзакционная часть Book и Reschedule.
// supersedes исключается из проверки конфликтов и переводится
// в rescheduled той же транзакцией; возвращается его состояние
// после перевода. Снимок supersedes до транзакции не авторитетен:
// статус перечитывается и проверяется уже под блокировкой.
func (s *Service) bookTx(ctx context.Context, req BookingRequest, groupID uuid.UUID, supersedes *model.Appointment) (*model.Appointment, *model.Appointment, error) {
	day := dayOf(req.Slot.Start)

	candidates, err := s.candidateAgents(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	keys := []LockKey{{OrganizationID: req.OrganizationID, Day: day}}
	if supersedes != nil && !dayOf(supersedes.StartTime).Equal(day) {
		keys = append(keys, LockKey{OrganizationID: req.OrganizationID, Day: dayOf(supersedes.StartTime)})
	}

	var created, superseded *model.Appointment
	err = s.store.WithinTx(ctx, keys, func(ctx context.Context, tx StoreTx) error {
		var current *model.Appointment
		if supersedes != nil {
			// Перечитываем под блокировкой: запись могли отменить
			// или перенести между загрузкой и началом транзакции
			found, err := tx.GetAppointment(ctx, supersedes.ID)
			if err != nil {
				return fmt.Errorf("get appointment: %w", err)
			}
			if found == nil {
				return fmt.Errorf("%w: appointment %d", ErrNotFound, supersedes.ID)
			}
			if _, ok := found.NextStatus(model.ActionSupersede); !ok {
				return fmt.Errorf("%w: %s cannot be superseded", ErrInvalidTransition, found.Status)
			}
			current = found
		}

		var agentID *int64
		if !req.DeferAgent {
			picked, err := s.resolveAgentTx(ctx, tx, req, candidates, current)
			if err != nil {
				return err
			}
			agentID = picked
		}

		status := model.AppointmentStatusConfirmed
		if agentID == nil {
			status = model.AppointmentStatusPending
		}

		appt := &model.Appointment{
			GroupID:        groupID,
			OrganizationID: req.OrganizationID,
			CountryCode:    req.CountryCode,
			ServiceID:      req.ServiceID,
			RequestID:      req.RequestID,
			AttendeeID:     req.AttendeeID,
			AgentID:        agentID,
			Date:           day,
			StartTime:      req.Slot.Start,
			EndTime:        req.Slot.End,
			Duration:       req.Slot.DurationMinutes(),
			Type:           req.Type,
			Status:         status,
			Instructions:   req.Instructions,
		}

		created, err = tx.InsertAppointment(ctx, appt)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}

		if current != nil {
			superseded, err = tx.UpdateAppointmentStatus(ctx, current.ID, model.AppointmentStatusRescheduled, &created.ID)
			if err != nil {
				return fmt.Errorf("supersede appointment: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return created, superseded, nil
}

// resolveAgentTx выбирает агента внутри транзакции по актуальному
// состоянию хранилища. Предпочтённый агент с конфликтом - ErrSlotUnavailable,
// ни одного свободного из квалифицированных - ErrNoAgentAvailable.
func (s *Service) resolveAgentTx(ctx context.Context, tx StoreTx, req BookingRequest, candidates []int64, exclude *model.Appointment) (*int64, error) {
	day := dayOf(req.Slot.Start)
	dayStart, dayEnd := dayBounds(day)

	for _, agentID := range candidates {
		existing, err := tx.FindAppointments(ctx, model.AppointmentFilter{
			OrganizationID: req.OrganizationID,
			AgentID:        &agentID,
			Statuses:       model.ActiveStatuses(),
			From:           dayStart,
			To:             dayEnd,
		})
		if err != nil {
			return nil, fmt.Errorf("find agent appointments: %w", err)
		}
		if exclude != nil {
			existing = withoutAppointment(existing, exclude.ID)
		}

		if !HasConflict(req.Slot, existing) {
			id := agentID
			return &id, nil
		}

		// У явно запрошенного агента занято - не подменяем его другим
		if req.PreferredAgentID != nil {
			return nil, fmt.Errorf("%w: agent %d is booked for this window", ErrSlotUnavailable, agentID)
		}
	}

	return nil, fmt.Errorf("%w: no qualified agent is free for this window", ErrNoAgentAvailable)
}

// candidateAgents строит упорядоченный список кандидатов до входа в транзакцию
func (s *Service) candidateAgents(ctx context.Context, req BookingRequest) ([]int64, error) {
	if req.DeferAgent {
		return nil, nil
	}

	qualified, err := s.agents.QualifiedAgents(ctx, req.OrganizationID, req.CountryCode, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get qualified agents: %w", err)
	}

	if req.PreferredAgentID != nil {
		for _, id := range qualified {
			if id == *req.PreferredAgentID {
				return []int64{id}, nil
			}
		}
		return nil, fmt.Errorf("%w: agent %d is not qualified for this service", ErrValidation, *req.PreferredAgentID)
	}

	if len(qualified) == 0 {
		return nil, fmt.Errorf("%w: organization has no qualified agents", ErrNoAgentAvailable)
	}

	sort.Slice(qualified, func(i, j int) bool { return qualified[i] < qualified[j] })
	return qualified, nil
}

// RescheduleRequest — входные параметры переноса записи
type RescheduleRequest struct {
	AppointmentID int64
	NewStart      time.Time
	NewEnd        time.Time
	NewAgentID    *int64
}

// Reschedule переносит запись на новое окно: создаёт замену с той же
// бизнес-связкой (заявитель, услуга, обращение, группа) и переводит
// старую запись в rescheduled. Обе операции коммитятся вместе;
// если бронирование замены не прошло, старая запись не тронута.
// Возвращает замену и старую запись в её состоянии после перевода.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*model.Appointment, *model.Appointment, error) {
	existing, err := s.store.GetAppointment(ctx, req.AppointmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("get appointment: %w", err)
	}
	if existing == nil {
		return nil, nil, fmt.Errorf("%w: appointment %d", ErrNotFound, req.AppointmentID)
	}

	if !existing.IsActive() {
		return nil, nil, fmt.Errorf("%w: %s appointment cannot be rescheduled", ErrInvalidTransition, existing.Status)
	}

	slot := model.TimeSlot{Start: req.NewStart, End: req.NewEnd}
	if err := s.validateSlot(ctx, existing.OrganizationID, existing.ServiceID, slot); err != nil {
		return nil, nil, err
	}

	preferred := req.NewAgentID
	if preferred == nil {
		preferred = existing.AgentID
	}

	booking := BookingRequest{
		OrganizationID:   existing.OrganizationID,
		CountryCode:      existing.CountryCode,
		AttendeeID:       existing.AttendeeID,
		ServiceID:        existing.ServiceID,
		RequestID:        existing.RequestID,
		Slot:             slot,
		PreferredAgentID: preferred,
		DeferAgent:       existing.AgentID == nil && req.NewAgentID == nil,
		Type:             existing.Type,
		Instructions:     existing.Instructions,
	}

	replacement, superseded, err := s.bookTx(ctx, booking, existing.GroupID, existing)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Appointment rescheduled",
		zap.Int64("old_appointment_id", superseded.ID),
		zap.Int64("new_appointment_id", replacement.ID),
		zap.Time("new_start_time", replacement.StartTime),
	)

	return replacement, superseded, nil
}

// AssignAgent назначает агента отложенной (pending) записи. Агент
// должен быть квалифицирован и свободен на окно записи; подтверждение
// остаётся отдельным действием confirm.
func (s *Service) AssignAgent(ctx context.Context, appointmentID, agentID int64) (*model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, fmt.Errorf("%w: appointment %d", ErrNotFound, appointmentID)
	}

	qualified, err := s.agents.QualifiedAgents(ctx, appt.OrganizationID, appt.CountryCode, appt.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get qualified agents: %w", err)
	}
	if !containsAgent(qualified, agentID) {
		return nil, fmt.Errorf("%w: agent %d is not qualified for this service", ErrValidation, agentID)
	}

	var updated *model.Appointment
	keys := []LockKey{{OrganizationID: appt.OrganizationID, Day: dayOf(appt.StartTime)}}
	err = s.store.WithinTx(ctx, keys, func(ctx context.Context, tx StoreTx) error {
		current, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return fmt.Errorf("get appointment: %w", err)
		}
		if current == nil {
			return fmt.Errorf("%w: appointment %d", ErrNotFound, appointmentID)
		}
		if current.Status != model.AppointmentStatusPending {
			return fmt.Errorf("%w: agent can be assigned to a pending appointment only, got %s", ErrInvalidTransition, current.Status)
		}

		dayStart, dayEnd := dayBounds(current.StartTime)
		existing, err := tx.FindAppointments(ctx, model.AppointmentFilter{
			OrganizationID: current.OrganizationID,
			AgentID:        &agentID,
			Statuses:       model.ActiveStatuses(),
			From:           dayStart,
			To:             dayEnd,
		})
		if err != nil {
			return fmt.Errorf("find agent appointments: %w", err)
		}
		if HasConflict(current.Slot(), existing) {
			return fmt.Errorf("%w: agent %d is booked for this window", ErrSlotUnavailable, agentID)
		}

		updated, err = tx.UpdateAppointmentAgent(ctx, appointmentID, agentID)
		if err != nil {
			return fmt.Errorf("update appointment agent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Agent assigned",
		zap.Int64("appointment_id", updated.ID),
		zap.Int64("agent_id", agentID),
	)

	return updated, nil
}

// Transition применяет действие к записи через таблицу переходов.
// Возвращает авторитетную запись после перехода - вызывающему коду
// не нужно перечитывать хранилище отдельно.
func (s *Service) Transition(ctx context.Context, appointmentID int64, action model.TransitionAction) (*model.Appointment, error) {
	// supersede создаёт связанную запись-замену, это делает только Reschedule
	if action == model.ActionSupersede {
		return nil, fmt.Errorf("%w: supersede is applied via reschedule only", ErrValidation)
	}

	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, fmt.Errorf("%w: appointment %d", ErrNotFound, appointmentID)
	}

	var updated *model.Appointment
	keys := []LockKey{{OrganizationID: appt.OrganizationID, Day: dayOf(appt.StartTime)}}
	err = s.store.WithinTx(ctx, keys, func(ctx context.Context, tx StoreTx) error {
		// Перечитываем под блокировкой: статус мог уйти вперёд
		current, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return fmt.Errorf("get appointment: %w", err)
		}
		if current == nil {
			return fmt.Errorf("%w: appointment %d", ErrNotFound, appointmentID)
		}

		next, ok := current.NextStatus(action)
		if !ok {
			return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, current.Status)
		}
		if next == model.AppointmentStatusConfirmed && current.AgentID == nil {
			return fmt.Errorf("%w: agent must be assigned before confirmation", ErrValidation)
		}

		updated, err = tx.UpdateAppointmentStatus(ctx, appointmentID, next, nil)
		if err != nil {
			return fmt.Errorf("update appointment status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment status changed",
		zap.Int64("appointment_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// ListAppointments — read-only выборка для портала (ближайшие записи
// заявителя, дневной лист агента)
func (s *Service) ListAppointments(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	return s.store.FindAppointments(ctx, filter)
}

// GetAppointment получает запись по id
func (s *Service) GetAppointment(ctx context.Context, appointmentID int64) (*model.Appointment, error) {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, fmt.Errorf("%w: appointment %d", ErrNotFound, appointmentID)
	}
	return appt, nil
}

// validateSlot проверяет что слот совпадает с одним из кандидатов,
// которые генератор выдал бы прямо сейчас для тех же часов
func (s *Service) validateSlot(ctx context.Context, organizationID int64, serviceID *int64, slot model.TimeSlot) error {
	if !slot.Start.Before(slot.End) {
		return fmt.Errorf("%w: slot end must be after start", ErrValidation)
	}
	if slot.Start.Before(s.clock.Now()) {
		return fmt.Errorf("%w: slot start is in the past", ErrValidation)
	}

	hours, err := s.hours.GetHours(ctx, organizationID, serviceID)
	if err != nil {
		return fmt.Errorf("get operating hours: %w", err)
	}

	grid := GenerateSlots(dayOf(slot.Start), slot.DurationMinutes(), hours)
	if !ContainsSlot(grid, slot) {
		return fmt.Errorf("%w: slot is outside the bookable grid", ErrValidation)
	}

	return nil
}

// agentAppointmentsForDay группирует активные записи дня по агентам
func (s *Service) agentAppointmentsForDay(ctx context.Context, organizationID int64, agents []int64, day time.Time) (map[int64][]*model.Appointment, error) {
	dayStart, dayEnd := dayBounds(day)
	appts, err := s.store.FindAppointments(ctx, model.AppointmentFilter{
		OrganizationID: organizationID,
		Statuses:       model.ActiveStatuses(),
		From:           dayStart,
		To:             dayEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}

	byAgent := make(map[int64][]*model.Appointment, len(agents))
	for _, appt := range appts {
		if appt.AgentID == nil {
			continue
		}
		byAgent[*appt.AgentID] = append(byAgent[*appt.AgentID], appt)
	}
	return byAgent, nil
}

func containsAgent(agents []int64, id int64) bool {
	for _, a := range agents {
		if a == id {
			return true
		}
	}
	return false
}

func withoutAppointment(appts []*model.Appointment, id int64) []*model.Appointment {
	out := appts[:0]
	for _, a := range appts {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

// dayOf обрезает время до полуночи календарного дня
func dayOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// dayBounds возвращает полуоткрытые границы календарного дня
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := dayOf(t)
	return start, start.AddDate(0, 0, 1)
}
