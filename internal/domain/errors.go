package domain

import "errors"

var (
	// Ошибка отсутствующего идентификатора мероприятия.
	ErrEventIDRequired = errors.New("event_id is required")
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserIDRequired = errors.New("user_id is required")
	// Ошибка отсутствующего названия мероприятия.
	ErrEventTitleRequired = errors.New("event title is required")
	// Ошибка отсутствующей даты мероприятия.
	ErrEventDateRequired = errors.New("event date is required")
	// Ошибка отрицательной общей квоты мест.
	ErrCapacityNegative = errors.New("total capacity must be non-negative")
	// Ошибка нарушения инварианта 0 <= available <= total.
	ErrCapacityOutOfRange = errors.New("available capacity out of range")
	// Ошибка неподдерживаемого статуса мероприятия.
	ErrEventStatusInvalid = errors.New("event status is invalid")
	// Ошибка отсутствующего имени пользователя.
	ErrUsernameRequired = errors.New("username is required")
	// Ошибка отсутствующего email.
	ErrEmailRequired = errors.New("email is required")

	// ErrInvalidRequest возвращается при отсутствующих или неразрешимых идентификаторах запроса.
	ErrInvalidRequest = errors.New("invalid booking request")
	// ErrAlreadyReserved — у пары (event, user) уже есть активное бронирование.
	ErrAlreadyReserved = errors.New("already reserved")
	// ErrEventNotFound — мероприятие не найдено или недоступно для бронирования.
	ErrEventNotFound = errors.New("event not found")
	// ErrSoldOut — свободных мест не осталось.
	ErrSoldOut = errors.New("sold out")
	// ErrPaymentDeclined — платёж отклонён шлюзом (бизнес-исход, не сбой).
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentUnavailable — платёжный шлюз недоступен или не ответил вовремя.
	ErrPaymentUnavailable = errors.New("payment service unavailable")
	// ErrInventoryUnavailable — сбой обращения к хранилищу квот.
	ErrInventoryUnavailable = errors.New("inventory service unavailable")

	// ErrReservationNotFound возвращается, если бронирование не найдено в репозитории.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrReservationExists — запись с таким ID уже существует.
	ErrReservationExists = errors.New("reservation already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists — пользователь с таким username или email уже зарегистрирован.
	ErrUserExists = errors.New("user already exists")
	// ErrEventExists — мероприятие с таким ID уже существует.
	ErrEventExists = errors.New("event already exists")
	// ErrInvalidCredentials — пара email/пароль не прошла проверку.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован (повтор запроса).
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key request hash mismatch")
)

// IsSoldOut проверяет, является ли ошибка исчерпанием квоты мест.
func IsSoldOut(err error) bool {
	return errors.Is(err, ErrSoldOut)
}

// IsBookingRejection сообщает, относится ли ошибка к ожидаемым отказам
// бронирования (ошибка клиента, а не сбой системы).
func IsBookingRejection(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrAlreadyReserved) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrSoldOut) ||
		errors.Is(err, ErrPaymentDeclined)
}
