package payment

import (
	"context"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов.
type MockGateway struct {
	Status        domain.PaymentStatus
	TransactionID string
	Err           error

	AuthorizeCalls int

	// AuthorizeFn при ненулевом значении полностью подменяет поведение.
	AuthorizeFn func(ctx context.Context, payerID, eventID string, amountMinor int64) (domain.PaymentAuthorization, error)
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Status:        domain.PaymentStatusConfirmed,
		TransactionID: "TX_mock",
	}
}

// Authorize возвращает заранее настроенный результат и считает вызовы.
func (m *MockGateway) Authorize(ctx context.Context, payerID, eventID string, amountMinor int64) (domain.PaymentAuthorization, error) {
	m.AuthorizeCalls++
	if m.AuthorizeFn != nil {
		return m.AuthorizeFn(ctx, payerID, eventID, amountMinor)
	}
	return domain.PaymentAuthorization{
		PayerID:       payerID,
		EventID:       eventID,
		AmountMinor:   amountMinor,
		Status:        m.Status,
		TransactionID: m.TransactionID,
	}, m.Err
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
