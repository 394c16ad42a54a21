package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository создаёт PostgreSQL-реализацию EventRepository.
func NewEventRepository(store *Store) domain.EventRepository {
	return &eventRepository{db: store.DB()}
}

func (r *eventRepository) Create(event domain.EventInventory) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO events (
			id, title, event_date, total_capacity, available_capacity, status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		event.ID, event.Title, event.Date, event.TotalCapacity,
		event.AvailableCapacity, string(event.Status), event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEventExists
		}
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

func (r *eventRepository) Get(id string) (domain.EventInventory, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.get(ctx, id)
}

func (r *eventRepository) get(ctx context.Context, id string) (domain.EventInventory, error) {
	var (
		event  domain.EventInventory
		status string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, event_date, total_capacity, available_capacity, status, created_at, updated_at
		FROM events
		WHERE id = $1
	`, id).Scan(
		&event.ID, &event.Title, &event.Date, &event.TotalCapacity,
		&event.AvailableCapacity, &status, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EventInventory{}, domain.ErrEventNotFound
		}
		return domain.EventInventory{}, fmt.Errorf("select event: %w", err)
	}
	event.Status = domain.EventStatus(status)

	return event, nil
}

func (r *eventRepository) List() ([]domain.EventInventory, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, event_date, total_capacity, available_capacity, status, created_at, updated_at
		FROM events
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.EventInventory, 0)
	for rows.Next() {
		var (
			event  domain.EventInventory
			status string
		)
		if err := rows.Scan(
			&event.ID, &event.Title, &event.Date, &event.TotalCapacity,
			&event.AvailableCapacity, &status, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Status = domain.EventStatus(status)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// DecrementAvailable — единственная мутация остатка. Условный UPDATE
// гарантирует, что конкурентные списания не уведут остаток ниже нуля.
func (r *eventRepository) DecrementAvailable(id string) (int32, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var remaining int32
	err := r.db.QueryRowContext(ctx, `
		UPDATE events
		SET available_capacity = available_capacity - 1,
		    updated_at = $2
		WHERE id = $1 AND available_capacity > 0
		RETURNING available_capacity
	`, id, time.Now().UTC()).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("decrement event capacity: %w", err)
	}

	// UPDATE не нашёл строку: либо мероприятия нет, либо остаток нулевой.
	if _, getErr := r.get(ctx, id); getErr != nil {
		return 0, getErr
	}
	return 0, domain.ErrSoldOut
}

func (r *eventRepository) SetStatus(id string, status domain.EventStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE events
		SET status = $2, updated_at = $3
		WHERE id = $1
	`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for event status: %w", err)
	}
	if affected == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

var _ domain.EventRepository = (*eventRepository)(nil)
