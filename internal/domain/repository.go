package domain

// EventRepository описывает требования к хранилищу квот мест.
// Decrement обязан быть единственной атомарной read-modify-write операцией
// над AvailableCapacity: конкурентные списания не могут увести остаток ниже нуля.
type EventRepository interface {
	// Create сохраняет мероприятие, устанавливая available = total.
	Create(event EventInventory) error
	// Get возвращает мероприятие по идентификатору или ErrEventNotFound.
	Get(id string) (EventInventory, error)
	// List возвращает все мероприятия.
	List() ([]EventInventory, error)
	// DecrementAvailable атомарно списывает одно место и возвращает новый остаток.
	// При нулевом остатке возвращает ErrSoldOut, остаток не меняется.
	DecrementAvailable(id string) (int32, error)
	// SetStatus переводит мероприятие в новый статус (административная операция).
	SetStatus(id string, status EventStatus) error
}

// ReservationRepository описывает требования к хранилищу бронирований.
type ReservationRepository interface {
	// Create сохраняет бронирование. Уникальность активной пары (event, user)
	// проверяется атомарно на уровне хранилища: конфликт — ErrAlreadyReserved.
	Create(reservation Reservation) error
	// Get возвращает бронирование или ErrReservationNotFound.
	Get(id string) (Reservation, error)
	// FindActiveByEventAndUser ищет активное (не failed) бронирование пары.
	// Отсутствие — ErrReservationNotFound.
	FindActiveByEventAndUser(eventID, userID string) (Reservation, error)
	// ListByUser возвращает бронирования пользователя, новые первыми.
	ListByUser(userID string) ([]Reservation, error)
}

// UserRepository описывает требования к хранилищу учётных записей.
type UserRepository interface {
	// Create сохраняет пользователя; занятые username/email — ErrUserExists.
	Create(user User) error
	// Get возвращает пользователя или ErrUserNotFound.
	Get(id string) (User, error)
	// GetByEmail возвращает пользователя по email или ErrUserNotFound.
	GetByEmail(email string) (User, error)
}
