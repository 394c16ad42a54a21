package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/service/payment"
)

// StorageDriver определяет используемое хранилище.
type StorageDriver string

const (
	// StorageDriverMemory — потокобезопасные in-memory репозитории (dev/тесты).
	StorageDriverMemory StorageDriver = "memory"
	// StorageDriverPostgres — PostgreSQL-репозитории.
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска сервиса бронирования.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers string

	// Внешние сервисы. Пустой адрес означает локальную реализацию:
	// симулятор платежей, квоты поверх собственного EventRepository,
	// справочник пользователей поверх собственного UserRepository.
	PaymentServiceURL string
	EventsServiceURL  string
	UsersServiceURL   string

	JWTSecret          string
	PaymentSuccessRate float64

	MailerSendAPIKey string
	MailerFromName   string
	MailerFromEmail  string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":8080",
		MetricsAddr:                 ":9090",
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		JWTSecret:                   "dev-secret-change-me",
		PaymentSuccessRate:          payment.DefaultSuccessRate,
		MailerFromName:              "EventTix",
		MailerFromEmail:             "noreply@eventtix.local",
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           5,
		OutboxRetryDelay:            500 * time.Millisecond,
		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
	}
}

// ConfigFromEnv накладывает переменные окружения на DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("EVENTTIX_HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_METRICS_ADDR")); v != "" {
		cfg.MetricsAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_POSTGRES_DSN")); v != "" {
		cfg.PostgresDSN = v
		cfg.StorageDriver = StorageDriverPostgres
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_STORAGE_DRIVER")); v != "" {
		driver := StorageDriver(v)
		switch driver {
		case StorageDriverMemory, StorageDriverPostgres:
			cfg.StorageDriver = driver
		default:
			return Config{}, fmt.Errorf("unsupported storage driver %q", v)
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_POSTGRES_AUTO_MIGRATE")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse EVENTTIX_POSTGRES_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = enabled
	}

	cfg.KafkaBrokers = strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_PAYMENT_SERVICE_URL")); v != "" {
		cfg.PaymentServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_EVENTS_SERVICE_URL")); v != "" {
		cfg.EventsServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_USERS_SERVICE_URL")); v != "" {
		cfg.UsersServiceURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTTIX_PAYMENT_SUCCESS_RATE")); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parse EVENTTIX_PAYMENT_SUCCESS_RATE: %w", err)
		}
		cfg.PaymentSuccessRate = rate
	}

	cfg.MailerSendAPIKey = strings.TrimSpace(os.Getenv("MAILERSEND_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("MAILERSEND_FROM_NAME")); v != "" {
		cfg.MailerFromName = v
	}
	if v := strings.TrimSpace(os.Getenv("MAILERSEND_FROM_EMAIL")); v != "" {
		cfg.MailerFromEmail = v
	}

	if v := strings.TrimSpace(os.Getenv("EVENTTIX_OUTBOX_POLL_INTERVAL")); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse EVENTTIX_OUTBOX_POLL_INTERVAL: %w", err)
		}
		cfg.OutboxPollInterval = interval
	}

	return cfg, nil
}
