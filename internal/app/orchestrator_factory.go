package app

import (
	"github.com/vladislavdragonenkov/eventtix/internal/domain"
	"github.com/vladislavdragonenkov/eventtix/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/eventtix/internal/service/booking"
)

// createOrchestrator создаёт оркестратор бронирования, с Kafka producer
// или без него.
func createOrchestrator(
	deps *Dependencies,
	dispatcher domain.Notifier,
	kafkaProducer *kafka.Producer,
) *booking.Orchestrator {
	if kafkaProducer != nil {
		return booking.NewOrchestratorWithKafka(
			deps.Reservations,
			deps.Inventory,
			deps.Payments,
			deps.Directory,
			dispatcher,
			deps.Outbox,
			deps.Timeline,
			kafkaProducer,
			deps.Logger.WithField("layer", "booking"),
		)
	}

	return booking.NewOrchestrator(
		deps.Reservations,
		deps.Inventory,
		deps.Payments,
		deps.Directory,
		dispatcher,
		deps.Outbox,
		deps.Timeline,
		deps.Logger.WithField("layer", "booking"),
	)
}
