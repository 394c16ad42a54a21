package payment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

const (
	// DefaultSuccessRate — доля успешных авторизаций симулятора.
	DefaultSuccessRate = 0.80
	// DefaultProcessingDelay имитирует сетевую задержку платёжного провайдера.
	DefaultProcessingDelay = 500 * time.Millisecond
)

// Simulator — платёжный шлюз-симулятор: задержка и вероятностный исход.
// Используется как gateway по умолчанию, когда внешний провайдер не настроен.
type Simulator struct {
	successRate float64
	delay       time.Duration

	mu  sync.Mutex
	rnd *rand.Rand

	logger *log.Entry
}

// NewSimulator создает симулятор с параметрами по умолчанию.
func NewSimulator() *Simulator {
	return NewSimulatorWithConfig(DefaultSuccessRate, DefaultProcessingDelay, time.Now().UnixNano())
}

// NewSimulatorWithConfig создает симулятор с заданным success rate, задержкой и seed.
// Детерминированный seed нужен в тестах.
func NewSimulatorWithConfig(successRate float64, delay time.Duration, seed int64) *Simulator {
	if successRate < 0 {
		successRate = 0
	}
	if successRate > 1 {
		successRate = 1
	}
	return &Simulator{
		successRate: successRate,
		delay:       delay,
		rnd:         rand.New(rand.NewSource(seed)),
		logger:      log.WithField("component", "payment-simulator"),
	}
}

// Authorize имитирует авторизацию платежа: ждет delay, затем подтверждает
// или отклоняет платеж согласно success rate. Отмена контекста во время
// ожидания трактуется как недоступность провайдера.
func (s *Simulator) Authorize(ctx context.Context, payerID, eventID string, amountMinor int64) (domain.PaymentAuthorization, error) {
	auth := domain.PaymentAuthorization{
		PayerID:     payerID,
		EventID:     eventID,
		AmountMinor: amountMinor,
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return auth, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, ctx.Err())
		}
	}

	s.mu.Lock()
	roll := s.rnd.Float64()
	s.mu.Unlock()

	if roll >= s.successRate {
		auth.Status = domain.PaymentStatusDeclined
		s.logger.WithFields(log.Fields{
			"payer_id":     payerID,
			"event_id":     eventID,
			"amount_minor": amountMinor,
		}).Info("payment declined by simulator")
		return auth, domain.ErrPaymentDeclined
	}

	auth.Status = domain.PaymentStatusConfirmed
	auth.TransactionID = "TX_" + uuid.NewString()

	s.logger.WithFields(log.Fields{
		"payer_id":       payerID,
		"event_id":       eventID,
		"amount_minor":   amountMinor,
		"transaction_id": auth.TransactionID,
	}).Info("payment authorized")

	return auth, nil
}

var _ domain.PaymentGateway = (*Simulator)(nil)
