package app

import (
	"context"
	"errors"
	"time"

	"github.com/consulate-portal/scheduler/internal/model"
	"github.com/consulate-portal/scheduler/internal/scheduling"
	"go.uber.org/zap"
)

// Sweeper периодически помечает неявки: подтверждённые записи,
// чьё окно закончилось дольше grace назад, переводятся в missed
type Sweeper struct {
	scheduler *scheduling.Service
	clock     scheduling.Clock
	interval  time.Duration
	grace     time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
}

// NewSweeper создаёт новый sweeper
func NewSweeper(scheduler *scheduling.Service, clock scheduling.Clock, interval, grace time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		scheduler: scheduler,
		clock:     clock,
		interval:  interval,
		grace:     grace,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start запускает фоновую задачу
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting no-show sweeper",
		zap.Duration("interval", s.interval),
		zap.Duration("grace", s.grace),
	)

	go s.run(ctx)
}

// Stop останавливает фоновую задачу
func (s *Sweeper) Stop() {
	s.logger.Info("Stopping no-show sweeper")
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	// Первый запуск сразу при старте
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.stopChan:
			s.logger.Info("No-show sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("No-show sweep task cancelled")
			return
		}
	}
}

// sweep переводит просроченные подтверждённые записи в missed
func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.grace)

	overdue, err := s.scheduler.ListAppointments(ctx, model.AppointmentFilter{
		Statuses:    []model.AppointmentStatus{model.AppointmentStatusConfirmed},
		EndedBefore: cutoff,
	})
	if err != nil {
		s.logger.Error("Failed to list overdue appointments", zap.Error(err))
		return
	}

	marked := 0
	for _, appt := range overdue {
		_, err := s.scheduler.Transition(ctx, appt.ID, model.ActionMiss)
		if err != nil {
			// Запись могла поменять статус между выборкой и переходом
			if errors.Is(err, scheduling.ErrInvalidTransition) {
				continue
			}
			s.logger.Error("Failed to mark appointment as missed",
				zap.Error(err),
				zap.Int64("appointment_id", appt.ID),
			)
			continue
		}
		marked++
	}

	if marked > 0 {
		s.logger.Info("No-show sweep completed",
			zap.Int("overdue", len(overdue)),
			zap.Int("marked_missed", marked),
		)
	}
}
