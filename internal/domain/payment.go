package domain

// PaymentStatus описывает исход запроса авторизации у платёжного шлюза.
type PaymentStatus string

const (
	// PaymentStatusConfirmed — шлюз подтвердил списание.
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	// PaymentStatusDeclined — шлюз отклонил платёж.
	PaymentStatusDeclined PaymentStatus = "declined"
)

// DefaultTicketAmountMinor — фиксированная номинальная цена билета
// в минимальных денежных единицах. Оркестратор не считает цены сам.
const DefaultTicketAmountMinor int64 = 10000

// PaymentAuthorization — эфемерный результат одной авторизации.
// Не персистится: живёт ровно столько, сколько длится бронирование,
// повторных попыток оркестратор не делает.
type PaymentAuthorization struct {
	PayerID       string
	EventID       string
	AmountMinor   int64
	Status        PaymentStatus
	TransactionID string // заполняется только при подтверждении
}
