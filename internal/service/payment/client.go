package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// RetryConfig конфигурация повторных попыток для внешнего шлюза.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Client — HTTP-клиент внешнего платёжного шлюза.
// Отказ шлюза (decline) не ретраится; сетевые сбои и 5xx — ретраятся
// с экспоненциальной задержкой.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	logger     *log.Entry
}

// NewClient создает клиент платёжного шлюза.
func NewClient(baseURL string, timeout time.Duration, retry RetryConfig) *Client {
	if retry.MaxAttempts < 1 {
		retry = DefaultRetryConfig()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		logger:     log.WithField("component", "payment-client"),
	}
}

type authorizeRequest struct {
	PayerID     string `json:"payer_id"`
	EventID     string `json:"event_id"`
	AmountMinor int64  `json:"amount_minor"`
}

type authorizeResponse struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// Authorize выполняет POST /pay на внешнем шлюзе.
func (c *Client) Authorize(ctx context.Context, payerID, eventID string, amountMinor int64) (domain.PaymentAuthorization, error) {
	auth := domain.PaymentAuthorization{
		PayerID:     payerID,
		EventID:     eventID,
		AmountMinor: amountMinor,
	}

	body, err := json.Marshal(authorizeRequest{
		PayerID:     payerID,
		EventID:     eventID,
		AmountMinor: amountMinor,
	})
	if err != nil {
		return auth, fmt.Errorf("failed to marshal authorize request: %w", err)
	}

	var lastErr error
	delay := c.retry.InitialDelay

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		result, err := c.doAuthorize(ctx, body)
		if err == nil {
			if result.Status == string(domain.PaymentStatusDeclined) {
				auth.Status = domain.PaymentStatusDeclined
				return auth, domain.ErrPaymentDeclined
			}
			auth.Status = domain.PaymentStatusConfirmed
			auth.TransactionID = result.TransactionID
			return auth, nil
		}

		// Decline — бизнес-исход, не ретраим.
		if errors.Is(err, domain.ErrPaymentDeclined) {
			auth.Status = domain.PaymentStatusDeclined
			return auth, domain.ErrPaymentDeclined
		}

		lastErr = err
		if attempt < c.retry.MaxAttempts {
			c.logger.WithFields(log.Fields{
				"payer_id": payerID,
				"event_id": eventID,
				"attempt":  attempt,
				"delay":    delay,
				"error":    err,
			}).Warn("payment gateway call failed, retrying")

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return auth, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, ctx.Err())
			}

			delay = time.Duration(float64(delay) * c.retry.BackoffFactor)
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}
	}

	c.logger.WithFields(log.Fields{
		"payer_id":     payerID,
		"event_id":     eventID,
		"max_attempts": c.retry.MaxAttempts,
		"error":        lastErr,
	}).Error("payment gateway unavailable after all retry attempts")

	return auth, fmt.Errorf("%w: %v", domain.ErrPaymentUnavailable, lastErr)
}

func (c *Client) doAuthorize(ctx context.Context, body []byte) (*authorizeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pay", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build authorize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var result authorizeResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode authorize response: %w", err)
		}
		return &result, nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, domain.ErrPaymentDeclined
	default:
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}
}

var _ domain.PaymentGateway = (*Client)(nil)
