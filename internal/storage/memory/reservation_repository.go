package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// reservationRepositoryInMemory — in-memory реализация ReservationRepository.
// Уникальность активной пары (event, user) проверяется внутри Create под мьютексом,
// то есть атомарно относительно других записей — это и есть рекомендованная замена
// «check-then-create» гонки на уровень хранилища.
type reservationRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Reservation
}

// NewReservationRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewReservationRepository() domain.ReservationRepository {
	return &reservationRepositoryInMemory{
		items: make(map[string]domain.Reservation),
	}
}

// Create сохраняет бронирование; активный дубликат пары (event, user) — ErrAlreadyReserved.
func (r *reservationRepositoryInMemory) Create(reservation domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[reservation.ID]; exists {
		return domain.ErrReservationExists
	}
	for _, existing := range r.items {
		if existing.EventID == reservation.EventID &&
			existing.UserID == reservation.UserID &&
			existing.Status.Active() {
			return domain.ErrAlreadyReserved
		}
	}

	r.items[reservation.ID] = reservation
	return nil
}

// Get возвращает бронирование или ErrReservationNotFound.
func (r *reservationRepositoryInMemory) Get(id string) (domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, ok := r.items[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return reservation, nil
}

// FindActiveByEventAndUser ищет активное бронирование пары (event, user).
func (r *reservationRepositoryInMemory) FindActiveByEventAndUser(eventID, userID string) (domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reservation := range r.items {
		if reservation.EventID == eventID &&
			reservation.UserID == userID &&
			reservation.Status.Active() {
			return reservation, nil
		}
	}
	return domain.Reservation{}, domain.ErrReservationNotFound
}

// ListByUser возвращает бронирования пользователя, новые первыми.
func (r *reservationRepositoryInMemory) ListByUser(userID string) ([]domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Reservation, 0)
	for _, reservation := range r.items {
		if reservation.UserID != userID {
			continue
		}
		result = append(result, reservation)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

var _ domain.ReservationRepository = (*reservationRepositoryInMemory)(nil)
