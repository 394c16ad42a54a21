package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

const sendTimeout = 5 * time.Second

// Mailer отправляет подтверждения брони через MailerSend.
type Mailer struct {
	client    *mailersend.Mailersend
	fromName  string
	fromEmail string
	logger    *log.Entry
}

// NewMailer создает почтовый notifier.
func NewMailer(apiKey, fromName, fromEmail string) *Mailer {
	return &Mailer{
		client:    mailersend.NewMailersend(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		logger:    log.WithField("component", "notifier-mailer"),
	}
}

// NotifyConfirmation отправляет письмо с подтверждением брони.
func (m *Mailer) NotifyConfirmation(ctx context.Context, contact domain.Contact, details domain.ConfirmationDetails) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	from := mailersend.From{
		Name:  m.fromName,
		Email: m.fromEmail,
	}

	recipients := []mailersend.Recipient{
		{
			Name:  contact.Username,
			Email: contact.Email,
		},
	}

	message := m.client.Email.NewMessage()
	message.SetFrom(from)
	message.SetRecipients(recipients)
	message.SetSubject("Your reservation is confirmed")
	message.SetText(fmt.Sprintf(
		"Hi %s,\n\nYour reservation %s for %q on %s is confirmed.\n\nSee you there!",
		contact.Username, details.ReservationID, details.EventTitle, details.EventDate,
	))

	res, err := m.client.Email.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.WithFields(log.Fields{
		"reservation_id": details.ReservationID,
		"message_id":     res.Header.Get("X-Message-Id"),
	}).Info("confirmation email sent")

	return nil
}

var _ domain.Notifier = (*Mailer)(nil)
