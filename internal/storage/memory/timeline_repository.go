package memory

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// timelineRepositoryInMemory хранит журнал переходов брони в памяти.
// Порядок выдачи тот же, что у PostgreSQL-реализации: по времени события,
// при равенстве — по порядку добавления.
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[string][]domain.TimelineEvent)}
}

func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	if event.ReservationID == "" {
		return fmt.Errorf("append timeline event: reservation id is empty")
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := event.ReservationID
	r.events[id] = append(r.events[id], event)
	slices.SortStableFunc(r.events[id], func(a, b domain.TimelineEvent) int {
		return a.Occurred.Compare(b.Occurred)
	})

	return nil
}

func (r *timelineRepositoryInMemory) List(reservationID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[reservationID]
	result := make([]domain.TimelineEvent, 0, len(events))
	return append(result, events...), nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
