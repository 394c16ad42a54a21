package notifier

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// LogNotifier пишет подтверждения в лог вместо отправки почты.
// Используется в dev-окружении и когда MailerSend не сконфигурирован.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создает лог-notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{
		logger: log.WithField("component", "notifier-log"),
	}
}

// NotifyConfirmation логирует подтверждение брони.
func (n *LogNotifier) NotifyConfirmation(_ context.Context, contact domain.Contact, details domain.ConfirmationDetails) error {
	n.logger.WithFields(log.Fields{
		"email":          contact.Email,
		"username":       contact.Username,
		"reservation_id": details.ReservationID,
		"event_title":    details.EventTitle,
		"event_date":     details.EventDate,
	}).Info("reservation confirmation notification")
	return nil
}

var _ domain.Notifier = (*LogNotifier)(nil)
