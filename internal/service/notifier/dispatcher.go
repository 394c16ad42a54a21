package notifier

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// Dispatcher — асинхронная обертка над Notifier: уведомления ставятся
// в очередь и отправляются пулом воркеров с ограниченным числом повторов.
// Сбой отправки никогда не возвращается вызывающему.
type Dispatcher struct {
	notifier domain.Notifier
	logger   *log.Entry

	queueSize   int
	workers     int
	maxAttempts int
	retryDelay  time.Duration

	queue  chan notification
	stopCh chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

type notification struct {
	contact domain.Contact
	details domain.ConfirmationDetails
}

// DispatcherConfig параметры очереди уведомлений.
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultDispatcherConfig возвращает конфигурацию по умолчанию.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:   100,
		Workers:     4,
		MaxAttempts: 3,
		RetryDelay:  200 * time.Millisecond,
	}
}

// NewDispatcher создает асинхронный dispatcher поверх notifier.
func NewDispatcher(notifier domain.Notifier, config DispatcherConfig) *Dispatcher {
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	return &Dispatcher{
		notifier:    notifier,
		logger:      log.WithField("component", "notifier-dispatcher"),
		queueSize:   config.QueueSize,
		workers:     config.Workers,
		maxAttempts: config.MaxAttempts,
		retryDelay:  config.RetryDelay,
		queue:       make(chan notification, config.QueueSize),
		stopCh:      make(chan struct{}),
	}
}

// Start запускает воркеры.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker(ctx)
		}
		d.logger.WithField("workers", d.workers).Info("notification dispatcher started")
	})
}

// Stop дорабатывает очередь и останавливает воркеры.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
		d.logger.Info("notification dispatcher stopped")
	})
}

// NotifyConfirmation ставит уведомление в очередь. При переполненной
// очереди отправляет синхронно, чтобы не потерять уведомление.
func (d *Dispatcher) NotifyConfirmation(ctx context.Context, contact domain.Contact, details domain.ConfirmationDetails) error {
	select {
	case d.queue <- notification{contact: contact, details: details}:
		return nil
	default:
		d.logger.WithField("reservation_id", details.ReservationID).Warn("notification queue full, sending synchronously")
		d.deliver(ctx, notification{contact: contact, details: details})
		return nil
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			d.deliver(ctx, n)
		case <-d.stopCh:
			// Дорабатываем то, что уже в очереди.
			for {
				select {
				case n := <-d.queue:
					d.deliver(ctx, n)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n notification) {
	var lastErr error

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := d.notifier.NotifyConfirmation(ctx, n.contact, n.details); err == nil {
			if attempt > 1 {
				d.logger.WithFields(log.Fields{
					"reservation_id": n.details.ReservationID,
					"attempt":        attempt,
				}).Info("notification delivered after retry")
			}
			return
		} else {
			lastErr = err
		}

		if attempt < d.maxAttempts {
			select {
			case <-time.After(d.retryDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	d.logger.WithError(lastErr).WithFields(log.Fields{
		"reservation_id": n.details.ReservationID,
		"email":          n.contact.Email,
		"max_attempts":   d.maxAttempts,
	}).Error("notification delivery failed after all attempts")
}

var _ domain.Notifier = (*Dispatcher)(nil)
