package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusForError переводит доменную ошибку в HTTP-статус.
// Любая нераспознанная ошибка — 500 без деталей наружу.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyReserved),
		errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrEventExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentUnavailable),
		errors.Is(err, domain.ErrInventoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		message = "internal error"
	}
	c.JSON(status, errorResponse{Error: message})
}
