package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Booking события
	EventTypeBookingStarted   EventType = "booking.started"
	EventTypeBookingConfirmed EventType = "booking.confirmed"
	EventTypeBookingRejected  EventType = "booking.rejected"
	EventTypeBookingFailed    EventType = "booking.failed"

	// Reservation события
	EventTypeReservationCreated   EventType = "reservation.created"
	EventTypeReservationConfirmed EventType = "reservation.confirmed"
	EventTypeReservationFailed    EventType = "reservation.failed"

	// Step события
	EventTypeStepPaymentAuthorized  EventType = "step.payment_authorized"
	EventTypeStepInventoryDecrement EventType = "step.inventory_decremented"
	EventTypeInventoryDriftDetected EventType = "inventory.decrement_failed"

	// Notification события
	EventTypeNotificationSent   EventType = "notification.sent"
	EventTypeNotificationFailed EventType = "notification.failed"
)

// Topics для Kafka
const (
	TopicBookingEvents     = "eventtix.booking.events"
	TopicReservationEvents = "eventtix.reservation.events"
	TopicDeadLetterQueue   = "eventtix.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// BookingEvent представляет событие процесса бронирования
type BookingEvent struct {
	EventType     EventType              `json:"event_type"`
	ReservationID string                 `json:"reservation_id"`
	EventID       string                 `json:"event_id"`
	UserID        string                 `json:"user_id"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// ReservationEvent представляет событие изменения статуса брони
type ReservationEvent struct {
	EventType     EventType              `json:"event_type"`
	ReservationID string                 `json:"reservation_id"`
	EventID       string                 `json:"event_id"`
	UserID        string                 `json:"user_id"`
	Status        string                 `json:"status"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewBookingEvent создает новое событие бронирования
func NewBookingEvent(eventType EventType, reservationID, eventID, userID string, metadata map[string]interface{}) *BookingEvent {
	return &BookingEvent{
		EventType:     eventType,
		ReservationID: reservationID,
		EventID:       eventID,
		UserID:        userID,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	}
}

// NewReservationEvent создает новое событие брони
func NewReservationEvent(eventType EventType, reservationID, eventID, userID, status string, metadata map[string]interface{}) *ReservationEvent {
	return &ReservationEvent{
		EventType:     eventType,
		ReservationID: reservationID,
		EventID:       eventID,
		UserID:        userID,
		Status:        status,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	}
}
