package domain

import "time"

// ReservationStatus отражает состояние бронирования места.
type ReservationStatus string

const (
	// ReservationStatusPending — бронирование создано, но ещё не подтверждено.
	ReservationStatusPending ReservationStatus = "pending"
	// ReservationStatusConfirmed — оплата прошла, место закреплено за пользователем.
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	// ReservationStatusFailed — попытка бронирования завершилась неудачей.
	ReservationStatusFailed ReservationStatus = "failed"
)

// Active сообщает, удерживает ли бронирование место.
// Инвариант уникальности (event, user) распространяется только на активные записи.
func (s ReservationStatus) Active() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

// Reservation описывает бронирование одного места пользователем на мероприятие.
// После создания запись не мутируется: путь отмены подтверждённого бронирования
// в минимальном дизайне отсутствует.
type Reservation struct {
	ID        string
	EventID   string
	UserID    string
	Status    ReservationStatus
	CreatedAt time.Time
}

// Validate проверяет, корректно ли заполнены ключевые поля бронирования.
func (r *Reservation) Validate() []error {
	var errs []error

	if r.EventID == "" {
		errs = append(errs, ErrEventIDRequired)
	}
	if r.UserID == "" {
		errs = append(errs, ErrUserIDRequired)
	}

	return errs
}
