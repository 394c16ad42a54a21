package rest

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
	"github.com/vladislavdragonenkov/eventtix/internal/service/booking"
	"github.com/vladislavdragonenkov/eventtix/internal/service/users"
)

// Server — HTTP-слой сервиса бронирования поверх gin.
// Сам бизнес-логики не содержит: транслирует запросы в вызовы
// оркестратора, сервисов и репозиториев и обратно в JSON-ответы.
type Server struct {
	booker       booking.Booker
	users        *users.Service
	events       domain.EventRepository
	reservations domain.ReservationRepository
	timeline     domain.TimelineRepository
	gateway      domain.PaymentGateway
	idemRepo     domain.IdempotencyRepository
	logger       *log.Entry
}

// Option настраивает опциональные зависимости сервера.
type Option func(*Server)

// WithIdempotency подключает хранилище idempotency-ключей: POST /reservations
// с заголовком Idempotency-Key становится безопасным для повторов.
func WithIdempotency(repo domain.IdempotencyRepository) Option {
	return func(s *Server) { s.idemRepo = repo }
}

// WithPaymentEndpoint монтирует POST /pay поверх переданного шлюза.
// Используется, когда процесс выступает и платёжным сервисом (dev-режим,
// локальный симулятор).
func WithPaymentEndpoint(gateway domain.PaymentGateway) Option {
	return func(s *Server) { s.gateway = gateway }
}

// WithLogger переопределяет логгер (для тестов).
func WithLogger(logger *log.Entry) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer создаёт HTTP-слой поверх собранных зависимостей.
func NewServer(
	booker booking.Booker,
	usersSvc *users.Service,
	events domain.EventRepository,
	reservations domain.ReservationRepository,
	timeline domain.TimelineRepository,
	opts ...Option,
) *Server {
	s := &Server{
		booker:       booker,
		users:        usersSvc,
		events:       events,
		reservations: reservations,
		timeline:     timeline,
		logger:       log.WithField("component", "rest-server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router собирает маршруты API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/reservations", s.idempotent(s.createReservation))
	router.GET("/reservations/:id", s.getReservation)
	router.GET("/reservations/:id/timeline", s.getReservationTimeline)

	router.POST("/events", s.createEvent)
	router.GET("/events", s.listEvents)
	router.GET("/events/:id", s.getEvent)
	router.POST("/events/:id/decrement", s.decrementEvent)
	router.PATCH("/events/:id/status", s.setEventStatus)

	router.POST("/register", s.register)
	router.POST("/login", s.login)
	router.GET("/users/:id/profile", s.getProfile)
	router.GET("/users/:id/reservations", s.listUserReservations)

	if s.gateway != nil {
		router.POST("/pay", s.pay)
	}

	return router
}
