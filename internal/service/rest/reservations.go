package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

type createReservationRequest struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

type reservationPayload struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type createReservationResponse struct {
	Message     string             `json:"message"`
	Reservation reservationPayload `json:"reservation"`
	EventTitle  string             `json:"event_title"`
	EventDate   string             `json:"event_date"`
}

func toReservationPayload(r domain.Reservation) reservationPayload {
	return reservationPayload{
		ID:        r.ID,
		EventID:   r.EventID,
		UserID:    r.UserID,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func (s *Server) createReservation(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := s.booker.Book(c.Request.Context(), req.EventID, req.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createReservationResponse{
		Message:     "reservation confirmed",
		Reservation: toReservationPayload(result.Reservation),
		EventTitle:  result.EventTitle,
		EventDate:   result.EventDate,
	})
}

func (s *Server) getReservation(c *gin.Context) {
	reservation, err := s.reservations.Get(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationPayload(reservation))
}

func (s *Server) listUserReservations(c *gin.Context) {
	reservations, err := s.reservations.ListByUser(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	payload := make([]reservationPayload, 0, len(reservations))
	for _, r := range reservations {
		payload = append(payload, toReservationPayload(r))
	}
	c.JSON(http.StatusOK, gin.H{"reservations": payload})
}

type timelineEventPayload struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func (s *Server) getReservationTimeline(c *gin.Context) {
	reservationID := c.Param("id")

	if _, err := s.reservations.Get(reservationID); err != nil {
		s.respondError(c, err)
		return
	}

	events, err := s.timeline.List(reservationID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	payload := make([]timelineEventPayload, 0, len(events))
	for _, ev := range events {
		payload = append(payload, timelineEventPayload{
			Type:     ev.Type,
			Reason:   ev.Reason,
			Occurred: ev.Occurred,
		})
	}
	c.JSON(http.StatusOK, gin.H{"reservation_id": reservationID, "events": payload})
}
