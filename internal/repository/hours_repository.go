package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
	"github.com/consulate-portal/scheduler/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HoursRepository — справочник рабочих часов в Postgres
type HoursRepository struct {
	pool *pgxpool.Pool
}

func NewHoursRepository(pool *pgxpool.Pool) *HoursRepository {
	return &HoursRepository{pool: pool}
}

// GetHours получает рабочие часы: сначала для конкретной услуги,
// затем общие часы организации. ErrNotFound если не настроено ни то, ни другое.
func (r *HoursRepository) GetHours(ctx context.Context, organizationID int64, serviceID *int64) (*model.OperatingHours, error) {
	if serviceID != nil {
		hours, err := r.getHours(ctx, organizationID, serviceID)
		if err != nil {
			return nil, err
		}
		if hours != nil {
			return hours, nil
		}
	}

	hours, err := r.getHours(ctx, organizationID, nil)
	if err != nil {
		return nil, err
	}
	if hours == nil {
		return nil, fmt.Errorf("%w: operating hours for organization %d", scheduling.ErrNotFound, organizationID)
	}

	return hours, nil
}

func (r *HoursRepository) getHours(ctx context.Context, organizationID int64, serviceID *int64) (*model.OperatingHours, error) {
	query := `
		SELECT id, organization_id, service_id, weekdays, start_hour, start_minute,
		       end_hour, end_minute, granularity
		FROM operating_hours
		WHERE organization_id = $1 AND service_id IS NOT DISTINCT FROM $2
	`

	var hours model.OperatingHours
	var weekdays []int32
	err := r.pool.QueryRow(ctx, query, organizationID, serviceID).Scan(
		&hours.ID,
		&hours.OrganizationID,
		&hours.ServiceID,
		&weekdays,
		&hours.StartHour,
		&hours.StartMinute,
		&hours.EndHour,
		&hours.EndMinute,
		&hours.Granularity,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get operating hours: %w", err)
	}

	hours.Weekdays = make([]time.Weekday, len(weekdays))
	for i, wd := range weekdays {
		hours.Weekdays[i] = time.Weekday(wd)
	}

	return &hours, nil
}
