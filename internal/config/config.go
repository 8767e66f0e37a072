package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	HTTPAddr       string
	TelegramToken  string
	TelegramChatID int64
	MigrationsPath string
	OrgTimezone    *time.Location
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    os.Getenv("ENV"),
		HTTPAddr:       os.Getenv("HTTP_ADDR"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	// Канал для служебных уведомлений (опционально, вместе с токеном)
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		if _, err := fmt.Sscan(chatID, &cfg.TelegramChatID); err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID is not a number: %w", err)
		}
	}

	// Единственная таймзона организации: мульти-таймзонность вне охвата
	tz := os.Getenv("ORG_TIMEZONE")
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	cfg.OrgTimezone = loc

	log.Printf("Config loaded\n")

	return cfg, nil
}
