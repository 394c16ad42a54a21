package domain

import "time"

// EventStatus описывает жизненный цикл мероприятия.
type EventStatus string

const (
	// EventStatusActive — мероприятие открыто для бронирования.
	EventStatusActive EventStatus = "active"
	// EventStatusCancelled — мероприятие отменено организатором.
	EventStatusCancelled EventStatus = "cancelled"
	// EventStatusPostponed — мероприятие перенесено, продажи приостановлены.
	EventStatusPostponed EventStatus = "postponed"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusActive, EventStatusCancelled, EventStatusPostponed:
		return true
	default:
		return false
	}
}

// EventInventory агрегирует мероприятие и его квоту мест.
// TotalCapacity неизменяем после создания; AvailableCapacity мутируется
// только атомарным декрементом в хранилище.
type EventInventory struct {
	ID                string
	Title             string
	Date              string // дата мероприятия в формате YYYY-MM-DD, как отдаёт events-сервис
	TotalCapacity     int32
	AvailableCapacity int32
	Status            EventStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Bookable сообщает, можно ли принимать бронирования по мероприятию.
func (e *EventInventory) Bookable() bool {
	return e.Status == EventStatusActive && e.AvailableCapacity > 0
}

// ValidateInvariants проверяет базовые инварианты квоты мест.
func (e *EventInventory) ValidateInvariants() []error {
	var errs []error

	if e.Title == "" {
		errs = append(errs, ErrEventTitleRequired)
	}
	if e.Date == "" {
		errs = append(errs, ErrEventDateRequired)
	}
	if e.TotalCapacity < 0 {
		errs = append(errs, ErrCapacityNegative)
	}
	if e.AvailableCapacity < 0 || e.AvailableCapacity > e.TotalCapacity {
		errs = append(errs, ErrCapacityOutOfRange)
	}
	if !e.Status.Valid() {
		errs = append(errs, ErrEventStatusInvalid)
	}

	return errs
}
