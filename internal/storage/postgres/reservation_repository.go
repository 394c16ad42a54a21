package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

type reservationRepository struct {
	db *sql.DB
}

// NewReservationRepository создаёт PostgreSQL-реализацию ReservationRepository.
func NewReservationRepository(store *Store) domain.ReservationRepository {
	return &reservationRepository{db: store.DB()}
}

// Create вставляет бронирование. Частичный уникальный индекс по
// (event_id, user_id) для активных статусов закрывает гонку двух
// конкурентных запросов одной пары: проигравший получает ErrAlreadyReserved.
func (r *reservationRepository) Create(reservation domain.Reservation) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reservations (
			id, event_id, user_id, status, created_at
		) VALUES ($1,$2,$3,$4,$5)
	`,
		reservation.ID, reservation.EventID, reservation.UserID,
		string(reservation.Status), reservation.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Конфликт PK и конфликт активной пары различаем через повторное чтение.
			if _, getErr := r.Get(reservation.ID); getErr == nil {
				return domain.ErrReservationExists
			}
			return domain.ErrAlreadyReserved
		}
		return fmt.Errorf("insert reservation: %w", err)
	}

	return nil
}

func (r *reservationRepository) Get(id string) (domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		reservation domain.Reservation
		status      string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, user_id, status, created_at
		FROM reservations
		WHERE id = $1
	`, id).Scan(
		&reservation.ID, &reservation.EventID, &reservation.UserID,
		&status, &reservation.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("select reservation: %w", err)
	}
	reservation.Status = domain.ReservationStatus(status)

	return reservation, nil
}

func (r *reservationRepository) FindActiveByEventAndUser(eventID, userID string) (domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		reservation domain.Reservation
		status      string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, event_id, user_id, status, created_at
		FROM reservations
		WHERE event_id = $1 AND user_id = $2 AND status <> $3
		ORDER BY created_at DESC
		LIMIT 1
	`, eventID, userID, string(domain.ReservationStatusFailed)).Scan(
		&reservation.ID, &reservation.EventID, &reservation.UserID,
		&status, &reservation.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("select active reservation: %w", err)
	}
	reservation.Status = domain.ReservationStatus(status)

	return reservation, nil
}

func (r *reservationRepository) ListByUser(userID string) ([]domain.Reservation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, event_id, user_id, status, created_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations by user: %w", err)
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0)
	for rows.Next() {
		var (
			reservation domain.Reservation
			status      string
		)
		if err := rows.Scan(
			&reservation.ID, &reservation.EventID, &reservation.UserID,
			&status, &reservation.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservation.Status = domain.ReservationStatus(status)
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}

	return reservations, nil
}

var _ domain.ReservationRepository = (*reservationRepository)(nil)
