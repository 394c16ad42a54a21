package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// Client — HTTP-клиент внешнего сервиса пользователей.
// Используется, когда каталог пользователей вынесен в отдельный процесс.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewClient создает клиент каталога пользователей.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithField("component", "users-client"),
	}
}

type profileResponse struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// GetProfile выполняет GET /users/{id}/profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (domain.Contact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userID+"/profile", nil)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("failed to build profile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("user_id", userID).Warn("user profile request failed")
		return domain.Contact{}, fmt.Errorf("user service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body profileResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return domain.Contact{}, fmt.Errorf("failed to decode profile response: %w", err)
		}
		return domain.Contact{Email: body.Email, Username: body.Username}, nil
	case http.StatusNotFound:
		return domain.Contact{}, domain.ErrUserNotFound
	default:
		return domain.Contact{}, fmt.Errorf("user service returned status %d", resp.StatusCode)
	}
}

var _ domain.UserDirectory = (*Client)(nil)
