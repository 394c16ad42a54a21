package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// eventRepositoryInMemory — простая in-memory реализация EventRepository.
// Декремент выполняется под общим мьютексом, что даёт требуемую атомарность
// read-modify-write: конкурентные списания не уводят остаток ниже нуля.
type eventRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.EventInventory
}

// NewEventRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewEventRepository() domain.EventRepository {
	return &eventRepositoryInMemory{
		items: make(map[string]domain.EventInventory),
	}
}

// Create сохраняет мероприятие, если ID ещё не занят. available выравнивается по total.
func (r *eventRepositoryInMemory) Create(event domain.EventInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[event.ID]; exists {
		return domain.ErrEventExists
	}

	event.AvailableCapacity = event.TotalCapacity
	if event.Status == "" {
		event.Status = domain.EventStatusActive
	}
	r.items[event.ID] = event
	return nil
}

// Get возвращает мероприятие или ErrEventNotFound, если его нет.
func (r *eventRepositoryInMemory) Get(id string) (domain.EventInventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.items[id]
	if !ok {
		return domain.EventInventory{}, domain.ErrEventNotFound
	}
	return event, nil
}

// List возвращает все мероприятия, отсортированные по дате создания.
func (r *eventRepositoryInMemory) List() ([]domain.EventInventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.EventInventory, 0, len(r.items))
	for _, event := range r.items {
		result = append(result, event)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// DecrementAvailable атомарно списывает одно место.
// При нулевом остатке возвращает ErrSoldOut, не меняя запись.
func (r *eventRepositoryInMemory) DecrementAvailable(id string) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.items[id]
	if !ok {
		return 0, domain.ErrEventNotFound
	}
	if event.AvailableCapacity <= 0 {
		return 0, domain.ErrSoldOut
	}

	event.AvailableCapacity--
	event.UpdatedAt = time.Now().UTC()
	r.items[id] = event
	return event.AvailableCapacity, nil
}

// SetStatus переводит мероприятие в новый статус.
func (r *eventRepositoryInMemory) SetStatus(id string, status domain.EventStatus) error {
	if !status.Valid() {
		return domain.ErrEventStatusInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.items[id]
	if !ok {
		return domain.ErrEventNotFound
	}

	event.Status = status
	event.UpdatedAt = time.Now().UTC()
	r.items[id] = event
	return nil
}

var _ domain.EventRepository = (*eventRepositoryInMemory)(nil)
