package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
	"github.com/vladislavdragonenkov/eventtix/internal/service/booking"
	"github.com/vladislavdragonenkov/eventtix/internal/service/inventory"
	"github.com/vladislavdragonenkov/eventtix/internal/service/payment"
	"github.com/vladislavdragonenkov/eventtix/internal/service/rest"
	"github.com/vladislavdragonenkov/eventtix/internal/service/users"
	"github.com/vladislavdragonenkov/eventtix/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// countingNotifier считает доставленные подтверждения.
type countingNotifier struct {
	mu    sync.Mutex
	calls []domain.ConfirmationDetails
}

func (n *countingNotifier) NotifyConfirmation(_ context.Context, _ domain.Contact, details domain.ConfirmationDetails) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, details)
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

// BookingLifecycleTestSuite проверяет полный жизненный цикл бронирования
// через HTTP API с in-memory хранилищем.
type BookingLifecycleTestSuite struct {
	suite.Suite

	router       http.Handler
	orchestrator *booking.Orchestrator
	gateway      *payment.MockGateway
	notifier     *countingNotifier
	events       domain.EventRepository
	reservations domain.ReservationRepository
	outbox       domain.OutboxRepository
	users        *users.Service
}

func (s *BookingLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	s.events = memory.NewEventRepository()
	s.reservations = memory.NewReservationRepository()
	s.outbox = memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	userRepo := memory.NewUserRepository()
	idemRepo := memory.NewIdempotencyRepository()

	s.users = users.NewService(userRepo, []byte("integration-secret"), time.Hour)
	s.gateway = payment.NewMockGateway()
	s.notifier = &countingNotifier{}

	s.orchestrator = booking.NewOrchestratorWithoutMetrics(
		s.reservations,
		inventory.NewLocal(s.events),
		s.gateway,
		s.users,
		s.notifier,
		s.outbox,
		timeline,
		logger,
	)

	server := rest.NewServer(
		s.orchestrator,
		s.users,
		s.events,
		s.reservations,
		timeline,
		rest.WithIdempotency(idemRepo),
		rest.WithPaymentEndpoint(s.gateway),
		rest.WithLogger(logger),
	)
	s.router = server.Router()
}

func (s *BookingLifecycleTestSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	s.T().Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *BookingLifecycleTestSuite) createEvent(title string, capacity int32) string {
	rec := s.do(http.MethodPost, "/events", map[string]any{
		"title":          title,
		"date":           "2026-09-12",
		"total_capacity": capacity,
	}, nil)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(s.T(), resp.ID)
	return resp.ID
}

func (s *BookingLifecycleTestSuite) registerUser(username string) string {
	rec := s.do(http.MethodPost, "/register", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret-password",
	}, nil)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(s.T(), resp.ID)
	return resp.ID
}

func (s *BookingLifecycleTestSuite) reserve(eventID, userID string, headers map[string]string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/reservations", map[string]any{
		"event_id": eventID,
		"user_id":  userID,
	}, headers)
}

func (s *BookingLifecycleTestSuite) availableCapacity(eventID string) int32 {
	rec := s.do(http.MethodGet, "/events/"+eventID, nil, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp struct {
		AvailableCapacity int32 `json:"available_capacity"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AvailableCapacity
}

func (s *BookingLifecycleTestSuite) TestSuccessfulBookingLifecycle() {
	eventID := s.createEvent("GoConf 2026", 2)
	userID := s.registerUser("alice")

	// 1. Бронируем место
	rec := s.reserve(eventID, userID, nil)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Reservation struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"reservation"`
		EventTitle string `json:"event_title"`
		EventDate  string `json:"event_date"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(s.T(), created.Reservation.ID)
	require.Equal(s.T(), string(domain.ReservationStatusConfirmed), created.Reservation.Status)
	require.Equal(s.T(), "GoConf 2026", created.EventTitle)
	require.Equal(s.T(), "2026-09-12", created.EventDate)

	// 2. Квота уменьшилась ровно на одно место
	require.Equal(s.T(), int32(1), s.availableCapacity(eventID))

	// 3. Бронь читается обратно
	getRec := s.do(http.MethodGet, "/reservations/"+created.Reservation.ID, nil, nil)
	require.Equal(s.T(), http.StatusOK, getRec.Code)

	// 4. Timeline содержит события жизненного цикла
	tlRec := s.do(http.MethodGet, "/reservations/"+created.Reservation.ID+"/timeline", nil, nil)
	require.Equal(s.T(), http.StatusOK, tlRec.Code)
	var tl struct {
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	require.NoError(s.T(), json.Unmarshal(tlRec.Body.Bytes(), &tl))
	require.NotEmpty(s.T(), tl.Events)

	// 5. Платёж авторизован ровно один раз, подтверждение отправлено
	require.Equal(s.T(), 1, s.gateway.AuthorizeCalls)
	s.orchestrator.Wait()
	require.Equal(s.T(), 1, s.notifier.count())

	// 6. Событие подтверждения лежит в outbox
	stats, err := s.outbox.Stats()
	require.NoError(s.T(), err)
	require.Greater(s.T(), stats.PendingCount, 0)
}

func (s *BookingLifecycleTestSuite) TestDuplicateBookingRejected() {
	eventID := s.createEvent("GopherFest", 5)
	userID := s.registerUser("bob")

	first := s.reserve(eventID, userID, nil)
	require.Equal(s.T(), http.StatusCreated, first.Code)

	second := s.reserve(eventID, userID, nil)
	require.Equal(s.T(), http.StatusConflict, second.Code, second.Body.String())

	// Повторная попытка не трогает ни платёж, ни квоту
	require.Equal(s.T(), 1, s.gateway.AuthorizeCalls)
	require.Equal(s.T(), int32(4), s.availableCapacity(eventID))
}

func (s *BookingLifecycleTestSuite) TestSoldOutRace() {
	eventID := s.createEvent("Tiny Meetup", 1)
	winner := s.registerUser("winner")
	loser := s.registerUser("loser")

	first := s.reserve(eventID, winner, nil)
	require.Equal(s.T(), http.StatusCreated, first.Code)

	second := s.reserve(eventID, loser, nil)
	require.Equal(s.T(), http.StatusConflict, second.Code, second.Body.String())

	require.Equal(s.T(), int32(0), s.availableCapacity(eventID))
	// Проигравший не должен был дойти до платежа
	require.Equal(s.T(), 1, s.gateway.AuthorizeCalls)
}

func (s *BookingLifecycleTestSuite) TestPaymentDeclineLeavesNoSideEffects() {
	eventID := s.createEvent("Jazz Night", 3)
	userID := s.registerUser("carol")

	s.gateway.Err = domain.ErrPaymentDeclined

	rec := s.reserve(eventID, userID, nil)
	require.Equal(s.T(), http.StatusPaymentRequired, rec.Code, rec.Body.String())

	// Квота не изменилась, подтверждение не отправлялось
	require.Equal(s.T(), int32(3), s.availableCapacity(eventID))
	s.orchestrator.Wait()
	require.Equal(s.T(), 0, s.notifier.count())

	// После восстановления платежей пользователь может бронировать снова
	s.gateway.Err = nil
	retry := s.reserve(eventID, userID, nil)
	require.Equal(s.T(), http.StatusCreated, retry.Code, retry.Body.String())
	require.Equal(s.T(), int32(2), s.availableCapacity(eventID))
}

func (s *BookingLifecycleTestSuite) TestIdempotentReplay() {
	eventID := s.createEvent("Replay Expo", 5)
	userID := s.registerUser("dave")

	headers := map[string]string{"Idempotency-Key": "integration-key-1"}

	first := s.reserve(eventID, userID, headers)
	require.Equal(s.T(), http.StatusCreated, first.Code)

	second := s.reserve(eventID, userID, headers)
	require.Equal(s.T(), http.StatusCreated, second.Code)
	require.JSONEq(s.T(), first.Body.String(), second.Body.String())

	// Повтор обслужен из кеша: одна авторизация, одно списание квоты
	require.Equal(s.T(), 1, s.gateway.AuthorizeCalls)
	require.Equal(s.T(), int32(4), s.availableCapacity(eventID))
}

func (s *BookingLifecycleTestSuite) TestCancelledEventRejectsBooking() {
	eventID := s.createEvent("Doomed Show", 10)
	userID := s.registerUser("erin")

	patch := s.do(http.MethodPatch, "/events/"+eventID+"/status", map[string]any{
		"status": string(domain.EventStatusCancelled),
	}, nil)
	require.Equal(s.T(), http.StatusOK, patch.Code, patch.Body.String())

	// Неактивное мероприятие неотличимо от отсутствующего
	rec := s.reserve(eventID, userID, nil)
	require.Equal(s.T(), http.StatusNotFound, rec.Code, rec.Body.String())
	require.Equal(s.T(), 0, s.gateway.AuthorizeCalls)
}

func (s *BookingLifecycleTestSuite) TestUserReservationHistory() {
	firstEvent := s.createEvent("History A", 5)
	secondEvent := s.createEvent("History B", 5)
	userID := s.registerUser("frank")

	require.Equal(s.T(), http.StatusCreated, s.reserve(firstEvent, userID, nil).Code)
	require.Equal(s.T(), http.StatusCreated, s.reserve(secondEvent, userID, nil).Code)

	rec := s.do(http.MethodGet, "/users/"+userID+"/reservations", nil, nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp struct {
		Reservations []struct {
			EventID string `json:"event_id"`
		} `json:"reservations"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Reservations, 2)
}

func TestBookingLifecycleTestSuite(t *testing.T) {
	suite.Run(t, new(BookingLifecycleTestSuite))
}
