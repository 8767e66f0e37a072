package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/consulate-portal/scheduler/internal/app"
	"github.com/consulate-portal/scheduler/internal/config"
	"github.com/consulate-portal/scheduler/internal/controller/httpapi"
	"github.com/consulate-portal/scheduler/internal/notify"
	"github.com/consulate-portal/scheduler/internal/repository"
	"github.com/consulate-portal/scheduler/internal/scheduling"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	// Применяем миграции до старта сервиса
	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	if version, err := migrator.Version(ctx); err == nil {
		logger.Info("Database schema up to date", zap.Int64("version", version))
	}
	migrator.Close()

	appointmentRepo := repository.NewAppointmentRepository(pool)
	hoursRepo := repository.NewHoursRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)

	clock := scheduling.SystemClock()
	scheduler := scheduling.NewService(appointmentRepo, hoursRepo, agentRepo, clock, logger)

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, logger)
	if err != nil {
		logger.Fatal("Failed to create notifier", zap.Error(err))
	}

	// Фоновая разметка неявок: окно закончилось час назад - запись missed
	sweeper := app.NewSweeper(scheduler, clock, 15*time.Minute, time.Hour, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handler := httpapi.NewHandler(scheduler, notifier, cfg.OrgTimezone, logger)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Starting scheduler API",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("environment", cfg.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
