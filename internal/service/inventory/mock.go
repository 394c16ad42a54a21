package inventory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// MockService — конфигурируемая заглушка InventoryService для тестов.
type MockService struct {
	mu sync.Mutex

	Event        domain.EventInventory
	GetErr       error
	DecrementErr error
	Remaining    int32

	GetCalls       int
	DecrementCalls int

	// GetFn и DecrementFn при ненулевом значении подменяют поведение.
	GetFn       func(ctx context.Context, eventID string) (domain.EventInventory, error)
	DecrementFn func(ctx context.Context, eventID string) (int32, error)
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService(event domain.EventInventory) *MockService {
	return &MockService{
		Event:     event,
		Remaining: event.AvailableCapacity,
	}
}

// GetEvent возвращает заранее настроенное событие и считает вызовы.
func (m *MockService) GetEvent(ctx context.Context, eventID string) (domain.EventInventory, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()
	if m.GetFn != nil {
		return m.GetFn(ctx, eventID)
	}
	return m.Event, m.GetErr
}

// DecrementAvailable возвращает настроенный результат и считает вызовы.
func (m *MockService) DecrementAvailable(ctx context.Context, eventID string) (int32, error) {
	m.mu.Lock()
	m.DecrementCalls++
	m.mu.Unlock()
	if m.DecrementFn != nil {
		return m.DecrementFn(ctx, eventID)
	}
	return m.Remaining, m.DecrementErr
}

var _ domain.InventoryService = (*MockService)(nil)
