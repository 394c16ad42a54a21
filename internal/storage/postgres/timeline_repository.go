package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

const (
	insertTimelineEventQuery = `
		INSERT INTO reservation_timeline (reservation_id, type, reason, occurred)
		VALUES ($1, $2, $3, $4)`

	selectTimelineQuery = `
		SELECT reservation_id, type, reason, occurred
		FROM reservation_timeline
		WHERE reservation_id = $1
		ORDER BY occurred ASC, id ASC`
)

// timelineRepository хранит журнал переходов брони. Записи только
// добавляются, обновлений и удалений нет.
type timelineRepository struct {
	db *sql.DB
}

// NewTimelineRepository создаёт PostgreSQL-реализацию TimelineRepository.
func NewTimelineRepository(store *Store) domain.TimelineRepository {
	return &timelineRepository{db: store.DB()}
}

func (r *timelineRepository) Append(event domain.TimelineEvent) error {
	if event.ReservationID == "" {
		return fmt.Errorf("append timeline event: reservation id is empty")
	}

	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, insertTimelineEventQuery,
		event.ReservationID, event.Type, event.Reason, occurred)
	if err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}

	return nil
}

func (r *timelineRepository) List(reservationID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, selectTimelineQuery, reservationID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		event, err := scanTimelineEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline events: %w", err)
	}

	return events, nil
}

func scanTimelineEvent(rows *sql.Rows) (domain.TimelineEvent, error) {
	var event domain.TimelineEvent
	if err := rows.Scan(&event.ReservationID, &event.Type, &event.Reason, &event.Occurred); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("scan timeline event: %w", err)
	}
	return event, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
