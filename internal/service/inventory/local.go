package inventory

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// Local — адаптер InventoryService поверх собственного EventRepository.
// Используется в монолитной конфигурации, когда каталог событий живет
// в том же процессе.
type Local struct {
	events domain.EventRepository
	logger *log.Entry
}

// NewLocal создает локальный inventory-адаптер.
func NewLocal(events domain.EventRepository) *Local {
	return &Local{
		events: events,
		logger: log.WithField("component", "inventory-local"),
	}
}

// GetEvent возвращает событие с актуальным остатком мест.
func (l *Local) GetEvent(_ context.Context, eventID string) (domain.EventInventory, error) {
	return l.events.Get(eventID)
}

// DecrementAvailable атомарно уменьшает остаток на единицу.
func (l *Local) DecrementAvailable(_ context.Context, eventID string) (int32, error) {
	remaining, err := l.events.DecrementAvailable(eventID)
	if err != nil {
		return 0, err
	}

	l.logger.WithFields(log.Fields{
		"event_id":  eventID,
		"remaining": remaining,
	}).Debug("available capacity decremented")

	return remaining, nil
}

var _ domain.InventoryService = (*Local)(nil)
