package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
	"github.com/vladislavdragonenkov/eventtix/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/eventtix/internal/metrics"
)

// BookingResult — результат успешного бронирования: созданная бронь плюс
// денормализованные данные мероприятия для ответа клиенту.
type BookingResult struct {
	Reservation domain.Reservation
	EventTitle  string
	EventDate   string
}

// Booker описывает публичный контракт оркестратора бронирования.
type Booker interface {
	// Book проводит бронирование места для пары (event, user).
	Book(ctx context.Context, eventID, userID string) (BookingResult, error)
}

// Orchestrator последовательно ведет бронирование через независимые
// ресурсы: проверка дубликата → проверка остатка → авторизация платежа →
// запись брони → списание места → асинхронное уведомление.
//
// Запись брони — точка невозврата: любая ошибка до нее оставляет систему
// без побочных эффектов, любая ошибка после — логируется и не меняет
// успешный исход для клиента.
type Orchestrator struct {
	reservations domain.ReservationRepository
	inventory    domain.InventoryService
	payments     domain.PaymentGateway
	users        domain.UserDirectory
	notifier     domain.Notifier
	outbox       domain.OutboxRepository
	timeline     domain.TimelineRepository

	amountMinor   int64
	logger        *log.Entry
	metrics       *metrics.BookingMetrics
	kafkaProducer *kafka.Producer // опциональный producer для event-driven архитектуры

	notifyWG sync.WaitGroup
}

// NewOrchestrator создаёт рабочий экземпляр оркестратора.
func NewOrchestrator(
	reservations domain.ReservationRepository,
	inventory domain.InventoryService,
	payments domain.PaymentGateway,
	users domain.UserDirectory,
	notifier domain.Notifier,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Orchestrator {
	if logger == nil {
		logger = log.New().WithField("component", "booking")
	}
	return &Orchestrator{
		reservations: reservations,
		inventory:    inventory,
		payments:     payments,
		users:        users,
		notifier:     notifier,
		outbox:       outbox,
		timeline:     timeline,
		amountMinor:  domain.DefaultTicketAmountMinor,
		logger:       logger,
		metrics:      metrics.NewBookingMetrics(),
	}
}

// NewOrchestratorWithKafka создаёт оркестратор с Kafka producer.
func NewOrchestratorWithKafka(
	reservations domain.ReservationRepository,
	inventory domain.InventoryService,
	payments domain.PaymentGateway,
	users domain.UserDirectory,
	notifier domain.Notifier,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	kafkaProducer *kafka.Producer,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(reservations, inventory, payments, users, notifier, outbox, timeline, logger)
	o.kafkaProducer = kafkaProducer
	return o
}

// NewOrchestratorWithoutMetrics создаёт оркестратор без метрик (для тестов).
func NewOrchestratorWithoutMetrics(
	reservations domain.ReservationRepository,
	inventory domain.InventoryService,
	payments domain.PaymentGateway,
	users domain.UserDirectory,
	notifier domain.Notifier,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Orchestrator {
	o := NewOrchestrator(reservations, inventory, payments, users, notifier, outbox, timeline, logger)
	o.metrics = nil
	return o
}

// Book проводит полный цикл бронирования.
func (o *Orchestrator) Book(ctx context.Context, eventID, userID string) (BookingResult, error) {
	start := time.Now()
	if o.metrics != nil {
		o.metrics.RecordBookingStarted()
	}
	defer func() {
		if o.metrics != nil {
			o.metrics.RecordBookingFinished()
			o.metrics.RecordBookingDuration(time.Since(start))
		}
	}()

	if eventID == "" || userID == "" {
		return BookingResult{}, o.reject(eventID, userID, fmt.Errorf("%w: event id and user id are required", domain.ErrInvalidRequest))
	}

	// Идентификаторы должны указывать на существующие записи.
	contact, err := o.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return BookingResult{}, o.reject(eventID, userID, fmt.Errorf("%w: unknown user %s", domain.ErrInvalidRequest, userID))
		}
		return BookingResult{}, o.fail(eventID, userID, fmt.Errorf("user lookup failed: %w", err))
	}

	o.publishBookingEvent(kafka.EventTypeBookingStarted, "", eventID, userID, nil)

	// Шаг 1: guard от повторного бронирования.
	stepStart := time.Now()
	if _, err := o.reservations.FindActiveByEventAndUser(eventID, userID); err == nil {
		return BookingResult{}, o.reject(eventID, userID, domain.ErrAlreadyReserved)
	} else if !errors.Is(err, domain.ErrReservationNotFound) {
		return BookingResult{}, o.fail(eventID, userID, fmt.Errorf("duplicate guard failed: %w", err))
	}
	o.recordStep(domain.BookingStepDuplicateGuard, stepStart)

	// Шаг 2: проверка остатка. Неактивные мероприятия неотличимы от
	// отсутствующих для клиента.
	stepStart = time.Now()
	event, err := o.inventory.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return BookingResult{}, o.reject(eventID, userID, domain.ErrEventNotFound)
		}
		return BookingResult{}, o.fail(eventID, userID, fmt.Errorf("availability check failed: %w", err))
	}
	if event.Status != domain.EventStatusActive {
		return BookingResult{}, o.reject(eventID, userID, domain.ErrEventNotFound)
	}
	if event.AvailableCapacity <= 0 {
		return BookingResult{}, o.reject(eventID, userID, domain.ErrSoldOut)
	}
	o.recordStep(domain.BookingStepAvailability, stepStart)

	// Шаг 3: синхронная авторизация платежа. Любой исход до записи брони
	// оставляет систему без побочных эффектов.
	stepStart = time.Now()
	auth, err := o.payments.Authorize(ctx, userID, eventID, o.amountMinor)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) {
			o.publishBookingEvent(kafka.EventTypeBookingRejected, "", eventID, userID, map[string]interface{}{
				"reason": "payment_declined",
			})
			return BookingResult{}, o.reject(eventID, userID, domain.ErrPaymentDeclined)
		}
		return BookingResult{}, o.fail(eventID, userID, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, err))
	}
	o.recordStep(domain.BookingStepPayment, stepStart)
	o.publishBookingEvent(kafka.EventTypeStepPaymentAuthorized, "", eventID, userID, map[string]interface{}{
		"transaction_id": auth.TransactionID,
		"amount_minor":   auth.AmountMinor,
	})

	// Шаг 4: запись брони — точка невозврата.
	stepStart = time.Now()
	reservation := domain.Reservation{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		Status:    domain.ReservationStatusConfirmed,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.reservations.Create(reservation); err != nil {
		if errors.Is(err, domain.ErrAlreadyReserved) {
			// Конкурент успел записаться между guard и commit. Платёж уже
			// авторизован и повиснет без брони — фиксируем для сверки.
			o.logger.WithFields(log.Fields{
				"event_id":       eventID,
				"user_id":        userID,
				"transaction_id": auth.TransactionID,
			}).Error("reservation conflict after payment, authorization is orphaned")
			o.emitEvent(reservation.ID, "payment.orphaned_authorization", map[string]interface{}{
				"event_id":       eventID,
				"user_id":        userID,
				"transaction_id": auth.TransactionID,
				"amount_minor":   auth.AmountMinor,
			})
			return BookingResult{}, o.reject(eventID, userID, domain.ErrAlreadyReserved)
		}
		return BookingResult{}, o.fail(eventID, userID, fmt.Errorf("reservation commit failed: %w", err))
	}
	o.recordStep(domain.BookingStepCommit, stepStart)

	resLogger := o.logger.WithFields(log.Fields{
		"reservation_id": reservation.ID,
		"event_id":       eventID,
		"user_id":        userID,
	})
	resLogger.Info("reservation confirmed")

	if o.metrics != nil {
		o.metrics.RecordBookingConfirmed()
	}
	o.emitEvent(reservation.ID, "reservation.confirmed", map[string]interface{}{
		"event_id":       eventID,
		"user_id":        userID,
		"transaction_id": auth.TransactionID,
	})
	o.publishBookingEvent(kafka.EventTypeBookingConfirmed, reservation.ID, eventID, userID, map[string]interface{}{
		"transaction_id": auth.TransactionID,
	})

	// Шаг 5: best-effort списание места. Бронь уже подтверждена, откат
	// невозможен: сбой здесь — расхождение учёта, а не отказ клиенту.
	stepStart = time.Now()
	remaining, err := o.inventory.DecrementAvailable(ctx, eventID)
	if err != nil {
		resLogger.WithError(err).Error("CRITICAL: inventory decrement failed after confirmed reservation, seat count is out of sync")
		if o.metrics != nil {
			o.metrics.RecordInventoryDrift()
		}
		o.emitEvent(reservation.ID, "inventory.decrement_failed", map[string]interface{}{
			"event_id": eventID,
			"reason":   err.Error(),
		})
		o.publishBookingEvent(kafka.EventTypeInventoryDriftDetected, reservation.ID, eventID, userID, map[string]interface{}{
			"reason": err.Error(),
		})
	} else {
		o.recordStep(domain.BookingStepDecrement, stepStart)
		o.publishBookingEvent(kafka.EventTypeStepInventoryDecrement, reservation.ID, eventID, userID, map[string]interface{}{
			"remaining": remaining,
		})
	}

	// Шаг 6: уведомление не задерживает ответ и не влияет на исход.
	o.notifyWG.Add(1)
	go o.notifyAsync(contact, domain.ConfirmationDetails{
		ReservationID: reservation.ID,
		EventTitle:    event.Title,
		EventDate:     event.Date,
	})

	return BookingResult{
		Reservation: reservation,
		EventTitle:  event.Title,
		EventDate:   event.Date,
	}, nil
}

// Wait дожидается завершения фоновых уведомлений. Используется при
// graceful shutdown и в тестах.
func (o *Orchestrator) Wait() {
	o.notifyWG.Wait()
}

func (o *Orchestrator) notifyAsync(contact domain.Contact, details domain.ConfirmationDetails) {
	defer o.notifyWG.Done()

	stepStart := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := o.notifier.NotifyConfirmation(ctx, contact, details); err != nil {
		o.logger.WithError(err).WithField("reservation_id", details.ReservationID).Warn("confirmation notification failed")
		if o.metrics != nil {
			o.metrics.RecordNotificationFailed()
		}
		o.publishBookingEvent(kafka.EventTypeNotificationFailed, details.ReservationID, "", "", map[string]interface{}{
			"reason": err.Error(),
		})
		return
	}

	o.recordStep(domain.BookingStepNotify, stepStart)
	if o.metrics != nil {
		o.metrics.RecordNotificationSent()
	}
	o.publishBookingEvent(kafka.EventTypeNotificationSent, details.ReservationID, "", "", nil)
}

// reject оформляет ожидаемый бизнес-отказ: клиентская ошибка, не сбой.
func (o *Orchestrator) reject(eventID, userID string, err error) error {
	o.logger.WithError(err).WithFields(log.Fields{
		"event_id": eventID,
		"user_id":  userID,
	}).Info("booking rejected")
	if o.metrics != nil {
		o.metrics.RecordBookingRejected(rejectionReason(err))
	}
	return err
}

// fail оформляет сбой системы: таких исходов быть не должно.
func (o *Orchestrator) fail(eventID, userID string, err error) error {
	o.logger.WithError(err).WithFields(log.Fields{
		"event_id": eventID,
		"user_id":  userID,
	}).Error("booking failed")
	if o.metrics != nil {
		o.metrics.RecordBookingFailed()
	}
	o.publishBookingEvent(kafka.EventTypeBookingFailed, "", eventID, userID, map[string]interface{}{
		"reason": err.Error(),
	})
	return err
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyReserved):
		return "already_reserved"
	case errors.Is(err, domain.ErrEventNotFound):
		return "event_not_found"
	case errors.Is(err, domain.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, domain.ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	default:
		return "other"
	}
}

func (o *Orchestrator) recordStep(step domain.BookingStep, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordStepDuration(string(step), time.Since(start))
	}
}

// emitEvent пишет событие в outbox и timeline. Ошибки записи логируются:
// аудит не должен ронять уже принятое решение по брони.
func (o *Orchestrator) emitEvent(reservationID, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["reservation_id"] = reservationID
	occurred := time.Now().UTC()
	payload["ts"] = occurred.Format(time.RFC3339Nano)

	data, err := json.Marshal(payload)
	if err != nil {
		o.logger.WithError(err).WithFields(log.Fields{
			"reservation_id": reservationID,
			"event":          eventType,
		}).Error("marshal event failed")
		return
	}

	if o.outbox != nil {
		msg := domain.OutboxMessage{
			AggregateType: "reservation",
			AggregateID:   reservationID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := o.outbox.Enqueue(msg); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"reservation_id": reservationID,
				"event":          eventType,
			}).Error("enqueue event failed")
		} else if o.metrics != nil {
			o.metrics.RecordOutboxEvent()
		}
	}

	if o.timeline != nil {
		var reason string
		if r, ok := payload["reason"].(string); ok {
			reason = r
		}
		timelineEvent := domain.TimelineEvent{
			ReservationID: reservationID,
			Type:          eventType,
			Reason:        reason,
			Occurred:      occurred,
		}
		if err := o.timeline.Append(timelineEvent); err != nil {
			o.logger.WithError(err).WithFields(log.Fields{
				"reservation_id": reservationID,
				"event":          eventType,
			}).Warn("append timeline event failed")
		} else if o.metrics != nil {
			o.metrics.RecordTimelineEvent()
		}
	}
}

// publishBookingEvent публикует событие бронирования в Kafka (если producer настроен)
func (o *Orchestrator) publishBookingEvent(eventType kafka.EventType, reservationID, eventID, userID string, metadata map[string]interface{}) {
	if o.kafkaProducer == nil {
		return
	}

	event := kafka.NewBookingEvent(eventType, reservationID, eventID, userID, metadata)
	if err := o.kafkaProducer.PublishBookingEvent(event); err != nil {
		// Логируем ошибку, но не прерываем бронирование - Kafka опциональный
		o.logger.WithError(err).WithFields(log.Fields{
			"event_type":     eventType,
			"reservation_id": reservationID,
			"event_id":       eventID,
		}).Warn("failed to publish booking event to kafka")
	}
}

var _ Booker = (*Orchestrator)(nil)
