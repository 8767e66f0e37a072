package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
)

// memStore — хранилище в памяти для тестов ядра. WithinTx держит один
// мьютекс на всё хранилище: транзакции строго последовательны, откат
// через снимок состояния.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	appts  map[int64]*model.Appointment

	// beforeTx выполняется перед входом в транзакцию - окно для
	// вклинивания конкурирующей операции в тестах
	beforeTx func()
}

func newMemStore() *memStore {
	return &memStore{appts: make(map[int64]*model.Appointment)}
}

func (s *memStore) GetAppointment(_ context.Context, id int64) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAppointment(s.appts[id]), nil
}

func (s *memStore) FindAppointments(_ context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(filter), nil
}

func (s *memStore) WithinTx(ctx context.Context, _ []LockKey, fn func(ctx context.Context, tx StoreTx) error) error {
	if s.beforeTx != nil {
		s.beforeTx()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[int64]*model.Appointment, len(s.appts))
	for id, appt := range s.appts {
		snapshot[id] = copyAppointment(appt)
	}
	snapshotNextID := s.nextID

	if err := fn(ctx, &memTx{store: s}); err != nil {
		s.appts = snapshot
		s.nextID = snapshotNextID
		return err
	}
	return nil
}

func (s *memStore) findLocked(filter model.AppointmentFilter) []*model.Appointment {
	var out []*model.Appointment
	for id := int64(1); id <= s.nextID; id++ {
		appt, ok := s.appts[id]
		if !ok || !matchesFilter(appt, filter) {
			continue
		}
		out = append(out, copyAppointment(appt))
	}
	return out
}

// activeForAgent возвращает активные записи агента - для проверок инварианта
func (s *memStore) activeForAgent(agentID int64) []*model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(model.AppointmentFilter{AgentID: &agentID, Statuses: model.ActiveStatuses()})
}

type memTx struct {
	store *memStore
}

func (t *memTx) GetAppointment(_ context.Context, id int64) (*model.Appointment, error) {
	return copyAppointment(t.store.appts[id]), nil
}

func (t *memTx) FindAppointments(_ context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	return t.store.findLocked(filter), nil
}

func (t *memTx) InsertAppointment(_ context.Context, appt *model.Appointment) (*model.Appointment, error) {
	t.store.nextID++
	stored := copyAppointment(appt)
	stored.ID = t.store.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	t.store.appts[stored.ID] = stored
	return copyAppointment(stored), nil
}

func (t *memTx) UpdateAppointmentStatus(_ context.Context, id int64, status model.AppointmentStatus, rescheduledTo *int64) (*model.Appointment, error) {
	appt, ok := t.store.appts[id]
	if !ok {
		return nil, fmt.Errorf("%w: appointment %d", ErrNotFound, id)
	}
	appt.Status = status
	if rescheduledTo != nil {
		appt.RescheduledTo = rescheduledTo
	}
	appt.UpdatedAt = time.Now()
	return copyAppointment(appt), nil
}

func (t *memTx) UpdateAppointmentAgent(_ context.Context, id int64, agentID int64) (*model.Appointment, error) {
	appt, ok := t.store.appts[id]
	if !ok {
		return nil, fmt.Errorf("%w: appointment %d", ErrNotFound, id)
	}
	appt.AgentID = &agentID
	appt.UpdatedAt = time.Now()
	return copyAppointment(appt), nil
}

func matchesFilter(appt *model.Appointment, filter model.AppointmentFilter) bool {
	if filter.OrganizationID != 0 && appt.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.AgentID != nil && (appt.AgentID == nil || *appt.AgentID != *filter.AgentID) {
		return false
	}
	if filter.AttendeeID != nil && appt.AttendeeID != *filter.AttendeeID {
		return false
	}
	if filter.ServiceID != nil && (appt.ServiceID == nil || *appt.ServiceID != *filter.ServiceID) {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, st := range filter.Statuses {
			if appt.Status == st {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if !filter.From.IsZero() && appt.StartTime.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && !appt.StartTime.Before(filter.To) {
		return false
	}
	if !filter.EndedBefore.IsZero() && appt.EndTime.After(filter.EndedBefore) {
		return false
	}
	return true
}

func copyAppointment(appt *model.Appointment) *model.Appointment {
	if appt == nil {
		return nil
	}
	cp := *appt
	return &cp
}

// memHours — справочник часов в памяти
type memHours struct {
	byOrg     map[int64]*model.OperatingHours
	byService map[int64]*model.OperatingHours // ключ - service id
}

func (h *memHours) GetHours(_ context.Context, organizationID int64, serviceID *int64) (*model.OperatingHours, error) {
	if serviceID != nil {
		if hours, ok := h.byService[*serviceID]; ok {
			return hours, nil
		}
	}
	if hours, ok := h.byOrg[organizationID]; ok {
		return hours, nil
	}
	return nil, fmt.Errorf("%w: operating hours for organization %d", ErrNotFound, organizationID)
}

// memDirectory — справочник квалификации в памяти
type memDirectory struct {
	agents []int64
}

func (d *memDirectory) QualifiedAgents(context.Context, int64, string, *int64) ([]int64, error) {
	return append([]int64(nil), d.agents...), nil
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }
