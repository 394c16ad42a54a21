package inventory

import (
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

// Client — HTTP-клиент внешнего inventory-сервиса. Все вызовы проходят
// через circuit breaker: при серии сбоев breaker размыкается и клиент
// сразу возвращает ErrInventoryUnavailable, не нагружая упавший сервис.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *CircuitBreaker
	logger     *log.Entry
}

// NewClient создает inventory-клиент с circuit breaker.
func NewClient(baseURL string, timeout time.Duration, breaker *CircuitBreaker) *Client {
	if breaker == nil {
		breaker = NewCircuitBreaker(5, 30*time.Second, nil)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		logger:     log.WithField("component", "inventory-client"),
	}
}

type eventResponse struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Date              string `json:"date"`
	TotalCapacity     int32  `json:"total_capacity"`
	AvailableCapacity int32  `json:"available_capacity"`
	Status            string `json:"status"`
}

type decrementResponse struct {
	AvailableCapacity int32 `json:"available_capacity"`
}

// GetEvent выполняет GET /events/{id} на внешнем сервисе.
func (c *Client) GetEvent(ctx context.Context, eventID string) (domain.EventInventory, error) {
	var event domain.EventInventory

	err := c.breaker.Execute("GetEvent", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/"+eventID, nil)
		if err != nil {
			return fmt.Errorf("failed to build inventory request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("inventory request failed: %w", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			var body eventResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("failed to decode inventory response: %w", err)
			}
			event = domain.EventInventory{
				ID:                body.ID,
				Title:             body.Title,
				Date:              body.Date,
				TotalCapacity:     body.TotalCapacity,
				AvailableCapacity: body.AvailableCapacity,
				Status:            domain.EventStatus(body.Status),
			}
			return nil
		case http.StatusNotFound:
			return domain.ErrEventNotFound
		default:
			return fmt.Errorf("inventory service returned status %d", resp.StatusCode)
		}
	})

	if err != nil {
		return domain.EventInventory{}, c.mapError(eventID, err)
	}
	return event, nil
}

// DecrementAvailable выполняет POST /events/{id}/decrement.
func (c *Client) DecrementAvailable(ctx context.Context, eventID string) (int32, error) {
	var remaining int32

	err := c.breaker.Execute("DecrementAvailable", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events/"+eventID+"/decrement", nil)
		if err != nil {
			return fmt.Errorf("failed to build decrement request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("decrement request failed: %w", err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			var body decrementResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return fmt.Errorf("failed to decode decrement response: %w", err)
			}
			remaining = body.AvailableCapacity
			return nil
		case http.StatusNotFound:
			return domain.ErrEventNotFound
		case http.StatusConflict:
			return domain.ErrSoldOut
		default:
			return fmt.Errorf("inventory service returned status %d", resp.StatusCode)
		}
	})

	if err != nil {
		return 0, c.mapError(eventID, err)
	}
	return remaining, nil
}

// mapError переводит транспортные сбои в ErrInventoryUnavailable,
// сохраняя бизнес-ошибки как есть.
func (c *Client) mapError(eventID string, err error) error {
	if errors.Is(err, domain.ErrEventNotFound) || errors.Is(err, domain.ErrSoldOut) {
		return err
	}

	c.logger.WithError(err).WithField("event_id", eventID).Warn("inventory service call failed")
	return fmt.Errorf("%w: %v", domain.ErrInventoryUnavailable, err)
}

var _ domain.InventoryService = (*Client)(nil)
