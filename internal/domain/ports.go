package domain

import (
	"context"
	"time"
)

// InventoryService — узкий порт оркестратора к хранилищу квот мест.
// Реализуется локальным адаптером поверх EventRepository либо HTTP-клиентом
// удалённого events-сервиса.
type InventoryService interface {
	// GetEvent возвращает мероприятие или ErrEventNotFound.
	GetEvent(ctx context.Context, eventID string) (EventInventory, error)
	// DecrementAvailable атомарно списывает одно место и возвращает новый остаток.
	// Возвращает ErrSoldOut при нулевом остатке, ErrInventoryUnavailable при сбое.
	DecrementAvailable(ctx context.Context, eventID string) (int32, error)
}

// PaymentGateway описывает взаимодействие с внешним платёжным шлюзом.
type PaymentGateway interface {
	// Authorize синхронно запрашивает авторизацию платежа.
	// Отклонение — ErrPaymentDeclined; недоступность шлюза — ErrPaymentUnavailable.
	Authorize(ctx context.Context, payerID, eventID string, amountMinor int64) (PaymentAuthorization, error)
}

// UserDirectory отдаёт профиль пользователя для валидации запроса и нотификаций.
type UserDirectory interface {
	// GetProfile возвращает контактные данные или ErrUserNotFound.
	GetProfile(ctx context.Context, userID string) (Contact, error)
}

// Notifier доставляет подтверждение бронирования. Best-effort: вызывающая
// сторона логирует ошибку и никогда не пробрасывает её клиенту.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, recipient Contact, details ConfirmationDetails) error
}

// ConfirmationDetails — денормализованные данные для письма-подтверждения.
type ConfirmationDetails struct {
	ReservationID string
	EventTitle    string
	EventDate     string
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла бронирования.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(reservationID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// BookingStep задаёт константы шагов бронирования для метрик/логов.
type BookingStep string

const (
	BookingStepDuplicateGuard BookingStep = "duplicate_guard"
	BookingStepAvailability   BookingStep = "availability"
	BookingStepPayment        BookingStep = "payment"
	BookingStepCommit         BookingStep = "commit"
	BookingStepDecrement      BookingStep = "decrement"
	BookingStepNotify         BookingStep = "notify"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
