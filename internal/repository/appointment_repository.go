package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/consulate-portal/scheduler/internal/model"
	"github.com/consulate-portal/scheduler/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, group_id, organization_id, country_code, service_id, request_id,
	attendee_id, agent_id, date, start_time, end_time, duration, type, status,
	instructions, rescheduled_to, created_at, updated_at`

// AppointmentRepository — pgx-реализация хранилища записей
type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// querier покрывает и пул, и транзакцию - запросы пишем один раз
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// GetAppointment получает запись по ID, (nil, nil) если не найдена
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	return getAppointment(ctx, r.pool, id)
}

// FindAppointments получает записи по фильтру
func (r *AppointmentRepository) FindAppointments(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	return findAppointments(ctx, r.pool, filter)
}

// WithinTx выполняет fn в одной транзакции, предварительно взяв
// advisory-блокировки по всем ключам (организация, день). Блокировки
// транзакционные: снимаются автоматически на commit/rollback.
func (r *AppointmentRepository) WithinTx(ctx context.Context, keys []scheduling.LockKey, fn func(ctx context.Context, tx scheduling.StoreTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Ограниченное ожидание блокировки: не уложились - ErrConcurrencyConflict
	if _, err := tx.Exec(ctx, `SET LOCAL lock_timeout = '3s'`); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	for _, key := range sortedKeys(keys) {
		lockName := fmt.Sprintf("appointments:%d:%s", key.OrganizationID, key.Day.Format("2006-01-02"))
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockName); err != nil {
			return mapPgError("acquire booking lock", err)
		}
	}

	if err := fn(ctx, &appointmentTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgError("commit transaction", err)
	}

	return nil
}

// appointmentTx — те же операции поверх открытой транзакции
type appointmentTx struct {
	tx pgx.Tx
}

func (t *appointmentTx) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	return getAppointment(ctx, t.tx, id)
}

func (t *appointmentTx) FindAppointments(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	return findAppointments(ctx, t.tx, filter)
}

// InsertAppointment создаёт запись и возвращает её в персистентном виде
func (t *appointmentTx) InsertAppointment(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	query := `
		INSERT INTO appointments (group_id, organization_id, country_code, service_id, request_id,
			attendee_id, agent_id, date, start_time, end_time, duration, type, status, instructions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + appointmentColumns

	row := t.tx.QueryRow(
		ctx, query,
		appt.GroupID,
		appt.OrganizationID,
		appt.CountryCode,
		appt.ServiceID,
		appt.RequestID,
		appt.AttendeeID,
		appt.AgentID,
		appt.Date,
		appt.StartTime,
		appt.EndTime,
		appt.Duration,
		appt.Type,
		appt.Status,
		appt.Instructions,
	)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, mapPgError("insert appointment", err)
	}

	return created, nil
}

// UpdateAppointmentStatus обновляет статус и ссылку на запись-замену.
// Жёсткого удаления нет: записи хранятся для аудита.
func (t *appointmentTx) UpdateAppointmentStatus(ctx context.Context, id int64, status model.AppointmentStatus, rescheduledTo *int64) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2,
		    rescheduled_to = COALESCE($3, rescheduled_to),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + appointmentColumns

	updated, err := scanAppointment(t.tx.QueryRow(ctx, query, id, status, rescheduledTo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: appointment %d", scheduling.ErrNotFound, id)
		}
		return nil, mapPgError("update appointment status", err)
	}

	return updated, nil
}

// UpdateAppointmentAgent назначает агента записи
func (t *appointmentTx) UpdateAppointmentAgent(ctx context.Context, id int64, agentID int64) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET agent_id = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + appointmentColumns

	updated, err := scanAppointment(t.tx.QueryRow(ctx, query, id, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: appointment %d", scheduling.ErrNotFound, id)
		}
		return nil, mapPgError("update appointment agent", err)
	}

	return updated, nil
}

func getAppointment(ctx context.Context, q querier, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appt, nil
}

func findAppointments(ctx context.Context, q querier, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	where, args := buildAppointmentWhere(filter)
	query := `SELECT ` + appointmentColumns + ` FROM appointments ` + where + ` ORDER BY start_time, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	return appts, rows.Err()
}

// buildAppointmentWhere собирает WHERE из заполненных полей фильтра.
// Один построитель вместо отдельного запроса на каждую комбинацию условий.
func buildAppointmentWhere(filter model.AppointmentFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.OrganizationID != 0 {
		add("organization_id = $%d", filter.OrganizationID)
	}
	if filter.AgentID != nil {
		add("agent_id = $%d", *filter.AgentID)
	}
	if filter.AttendeeID != nil {
		add("attendee_id = $%d", *filter.AttendeeID)
	}
	if filter.ServiceID != nil {
		add("service_id = $%d", *filter.ServiceID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", statuses)
	}
	if !filter.From.IsZero() {
		add("start_time >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("start_time < $%d", filter.To)
	}
	if !filter.EndedBefore.IsZero() {
		add("end_time <= $%d", filter.EndedBefore)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.GroupID,
		&appt.OrganizationID,
		&appt.CountryCode,
		&appt.ServiceID,
		&appt.RequestID,
		&appt.AttendeeID,
		&appt.AgentID,
		&appt.Date,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Duration,
		&appt.Type,
		&appt.Status,
		&appt.Instructions,
		&appt.RescheduledTo,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// mapPgError переводит коды Postgres в таксономию ядра:
// 40001 serialization_failure, 40P01 deadlock_detected,
// 55P03 lock_not_available - транзиентные, ErrConcurrencyConflict;
// 23P01 exclusion_violation - сработал страховочный EXCLUDE-констрейнт
// непересечения, для вызывающего это занятое окно
func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%s: %w: %s", op, scheduling.ErrConcurrencyConflict, pgErr.Code)
		case "23P01":
			return fmt.Errorf("%s: %w: %s", op, scheduling.ErrSlotUnavailable, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func sortedKeys(keys []scheduling.LockKey) []scheduling.LockKey {
	if len(keys) < 2 {
		return keys
	}
	// Фиксированный порядок взятия блокировок исключает взаимные дедлоки
	out := make([]scheduling.LockKey, len(keys))
	copy(out, keys)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Day.Before(out[j-1].Day); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
