package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

type payRequest struct {
	PayerID     string `json:"payer_id"`
	EventID     string `json:"event_id"`
	AmountMinor int64  `json:"amount_minor"`
}

// pay — фасад платёжного шлюза. Контракт зеркален payment.Client:
// 200 {status, transaction_id} при подтверждении, 402 при отклонении.
func (s *Server) pay(c *gin.Context) {
	var req payRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.PayerID == "" || req.EventID == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "payer_id and event_id are required"})
		return
	}

	auth, err := s.gateway.Authorize(c.Request.Context(), req.PayerID, req.EventID, req.AmountMinor)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"status":  string(domain.PaymentStatusDeclined),
				"message": err.Error(),
			})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         string(auth.Status),
		"transaction_id": auth.TransactionID,
	})
}
