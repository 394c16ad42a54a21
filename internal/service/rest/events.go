package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

type createEventRequest struct {
	Title         string `json:"title"`
	Date          string `json:"date"`
	TotalCapacity int32  `json:"total_capacity"`
}

type eventPayload struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Date              string `json:"date"`
	TotalCapacity     int32  `json:"total_capacity"`
	AvailableCapacity int32  `json:"available_capacity"`
	Status            string `json:"status"`
}

func toEventPayload(e domain.EventInventory) eventPayload {
	return eventPayload{
		ID:                e.ID,
		Title:             e.Title,
		Date:              e.Date,
		TotalCapacity:     e.TotalCapacity,
		AvailableCapacity: e.AvailableCapacity,
		Status:            string(e.Status),
	}
}

func (s *Server) createEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	now := time.Now().UTC()
	event := domain.EventInventory{
		ID:                uuid.NewString(),
		Title:             req.Title,
		Date:              req.Date,
		TotalCapacity:     req.TotalCapacity,
		AvailableCapacity: req.TotalCapacity,
		Status:            domain.EventStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if errs := event.ValidateInvariants(); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: errors.Join(errs...).Error()})
		return
	}

	if err := s.events.Create(event); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEventPayload(event))
}

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.events.List()
	if err != nil {
		s.respondError(c, err)
		return
	}

	payload := make([]eventPayload, 0, len(events))
	for _, e := range events {
		payload = append(payload, toEventPayload(e))
	}
	c.JSON(http.StatusOK, gin.H{"events": payload})
}

func (s *Server) getEvent(c *gin.Context) {
	event, err := s.events.Get(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEventPayload(event))
}

// decrementEvent — ручка атомарного списания места. Её же использует
// inventory.Client, когда квоты живут в отдельном процессе.
func (s *Server) decrementEvent(c *gin.Context) {
	remaining, err := s.events.DecrementAvailable(c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "available_capacity": remaining})
}

type setEventStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) setEventStatus(c *gin.Context) {
	var req setEventStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	status := domain.EventStatus(req.Status)
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: domain.ErrEventStatusInvalid.Error()})
		return
	}

	if err := s.events.SetStatus(c.Param("id"), status); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(status)})
}
