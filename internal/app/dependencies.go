package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
	"github.com/vladislavdragonenkov/eventtix/internal/service/inventory"
	"github.com/vladislavdragonenkov/eventtix/internal/service/notifier"
	"github.com/vladislavdragonenkov/eventtix/internal/service/payment"
	"github.com/vladislavdragonenkov/eventtix/internal/service/users"
	"github.com/vladislavdragonenkov/eventtix/internal/storage/memory"
	"github.com/vladislavdragonenkov/eventtix/internal/storage/postgres"
)

const externalCallTimeout = 10 * time.Second

// Dependencies содержит собранные зависимости сервиса бронирования.
type Dependencies struct {
	Events       domain.EventRepository
	Reservations domain.ReservationRepository
	Users        domain.UserRepository
	Outbox       domain.OutboxRepository
	Timeline     domain.TimelineRepository
	Idempotency  domain.IdempotencyRepository

	Inventory domain.InventoryService
	Payments  domain.PaymentGateway
	Directory domain.UserDirectory
	UsersSvc  *users.Service

	// BaseNotifier — транспорт доставки; оборачивается в Dispatcher при запуске.
	BaseNotifier domain.Notifier

	Store  *postgres.Store
	Logger *log.Entry
}

// NewDependencies собирает зависимости согласно конфигурации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.Store = store
		deps.Events = postgres.NewEventRepository(store)
		deps.Reservations = postgres.NewReservationRepository(store)
		deps.Users = postgres.NewUserRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Timeline = postgres.NewTimelineRepository(store)
		deps.Idempotency = postgres.NewIdempotencyRepository(store)
		logger.Info("postgres storage initialized")
	case StorageDriverMemory, "":
		deps.Events = memory.NewEventRepository()
		deps.Reservations = memory.NewReservationRepository()
		deps.Users = memory.NewUserRepository()
		deps.Outbox = memory.NewOutboxRepository()
		deps.Timeline = memory.NewTimelineRepository()
		deps.Idempotency = memory.NewIdempotencyRepository()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if cfg.EventsServiceURL != "" {
		deps.Inventory = inventory.NewClient(cfg.EventsServiceURL, externalCallTimeout, nil)
		logger.WithField("url", cfg.EventsServiceURL).Info("using remote events service for inventory")
	} else {
		deps.Inventory = inventory.NewLocal(deps.Events)
	}

	if cfg.PaymentServiceURL != "" {
		deps.Payments = payment.NewClient(cfg.PaymentServiceURL, externalCallTimeout, payment.DefaultRetryConfig())
		logger.WithField("url", cfg.PaymentServiceURL).Info("using remote payment gateway")
	} else {
		deps.Payments = payment.NewSimulatorWithConfig(cfg.PaymentSuccessRate, payment.DefaultProcessingDelay, time.Now().UnixNano())
		logger.WithField("success_rate", cfg.PaymentSuccessRate).Info("using payment simulator")
	}

	deps.UsersSvc = users.NewService(deps.Users, []byte(cfg.JWTSecret), users.DefaultTokenTTL)
	if cfg.UsersServiceURL != "" {
		deps.Directory = users.NewClient(cfg.UsersServiceURL, externalCallTimeout)
		logger.WithField("url", cfg.UsersServiceURL).Info("using remote user directory")
	} else {
		deps.Directory = deps.UsersSvc
	}

	if cfg.MailerSendAPIKey != "" {
		deps.BaseNotifier = notifier.NewMailer(cfg.MailerSendAPIKey, cfg.MailerFromName, cfg.MailerFromEmail)
		logger.Info("mailersend notifier initialized")
	} else {
		deps.BaseNotifier = notifier.NewLogNotifier()
		logger.Info("mailersend is not configured, notifications go to the log")
	}

	return deps, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
