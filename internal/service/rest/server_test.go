package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
	"github.com/vladislavdragonenkov/eventtix/internal/service/booking"
	"github.com/vladislavdragonenkov/eventtix/internal/service/inventory"
	"github.com/vladislavdragonenkov/eventtix/internal/service/payment"
	"github.com/vladislavdragonenkov/eventtix/internal/service/users"
	"github.com/vladislavdragonenkov/eventtix/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noopNotifier struct{}

func (noopNotifier) NotifyConfirmation(context.Context, domain.Contact, domain.ConfirmationDetails) error {
	return nil
}

type fixture struct {
	router       *gin.Engine
	orchestrator *booking.Orchestrator
	gateway      *payment.MockGateway
	events       domain.EventRepository
	reservations domain.ReservationRepository
	idemRepo     domain.IdempotencyRepository
	users        *users.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	entry := logger.WithField("test", t.Name())

	events := memory.NewEventRepository()
	reservations := memory.NewReservationRepository()
	userRepo := memory.NewUserRepository()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	idemRepo := memory.NewIdempotencyRepository()

	usersSvc := users.NewService(userRepo, []byte("test-secret"), time.Hour)
	gateway := payment.NewMockGateway()

	orchestrator := booking.NewOrchestratorWithoutMetrics(
		reservations,
		inventory.NewLocal(events),
		gateway,
		usersSvc,
		noopNotifier{},
		outbox,
		timeline,
		entry,
	)

	server := NewServer(
		orchestrator,
		usersSvc,
		events,
		reservations,
		timeline,
		WithIdempotency(idemRepo),
		WithPaymentEndpoint(gateway),
		WithLogger(entry),
	)

	return &fixture{
		router:       server.Router(),
		orchestrator: orchestrator,
		gateway:      gateway,
		events:       events,
		reservations: reservations,
		idemRepo:     idemRepo,
		users:        usersSvc,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createEvent(t *testing.T, title string, capacity int32) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/events", map[string]interface{}{
		"title":          title,
		"date":           "2026-10-01",
		"total_capacity": capacity,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode event response: %v", err)
	}
	return resp.ID
}

func (f *fixture) registerUser(t *testing.T, username string) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	return resp.ID
}

func TestCreateReservation_Success(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Go Meetup", 2)
	userID := f.registerUser(t, "alice")

	rec := f.do(t, http.MethodPost, "/reservations", map[string]string{
		"event_id": eventID,
		"user_id":  userID,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var resp createReservationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Reservation.ID == "" || resp.Reservation.Status != string(domain.ReservationStatusConfirmed) {
		t.Fatalf("unexpected reservation payload: %+v", resp.Reservation)
	}
	if resp.EventTitle != "Go Meetup" || resp.EventDate != "2026-10-01" {
		t.Fatalf("expected denormalized event data, got %+v", resp)
	}

	event, err := f.events.Get(eventID)
	if err != nil {
		t.Fatalf("event lookup failed: %v", err)
	}
	if event.AvailableCapacity != 1 {
		t.Fatalf("expected available=1 after booking, got %d", event.AvailableCapacity)
	}

	getRec := f.do(t, http.MethodGet, "/reservations/"+resp.Reservation.ID, nil, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get reservation: unexpected status %d", getRec.Code)
	}

	f.orchestrator.Wait()
}

func TestCreateReservation_ErrorMapping(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Concert", 1)
	soldOutID := f.createEvent(t, "Empty Hall", 0)
	userID := f.registerUser(t, "bob")
	otherID := f.registerUser(t, "carol")

	first := f.do(t, http.MethodPost, "/reservations", map[string]string{
		"event_id": eventID, "user_id": userID,
	}, nil)
	if first.Code != http.StatusCreated {
		t.Fatalf("seed booking failed: %d %s", first.Code, first.Body.String())
	}

	cases := []struct {
		name       string
		eventID    string
		userID     string
		wantStatus int
	}{
		{"duplicate pair", eventID, userID, http.StatusConflict},
		{"sold out", soldOutID, otherID, http.StatusConflict},
		{"unknown event", "no-such-event", otherID, http.StatusNotFound},
		{"unknown user", eventID, "no-such-user", http.StatusBadRequest},
		{"missing event id", "", userID, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/reservations", map[string]string{
				"event_id": tc.eventID, "user_id": tc.userID,
			}, nil)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}

	f.orchestrator.Wait()
}

func TestCreateReservation_PaymentDeclined(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Festival", 5)
	userID := f.registerUser(t, "dave")

	f.gateway.Status = domain.PaymentStatusDeclined
	f.gateway.Err = domain.ErrPaymentDeclined

	rec := f.do(t, http.MethodPost, "/reservations", map[string]string{
		"event_id": eventID, "user_id": userID,
	}, nil)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body.String())
	}

	event, err := f.events.Get(eventID)
	if err != nil {
		t.Fatalf("event lookup failed: %v", err)
	}
	if event.AvailableCapacity != 5 {
		t.Fatalf("declined payment must not change capacity, got %d", event.AvailableCapacity)
	}
}

func TestCreateReservation_IdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Workshop", 3)
	userID := f.registerUser(t, "erin")

	body := map[string]string{"event_id": eventID, "user_id": userID}
	headers := map[string]string{"Idempotency-Key": "key-replay"}

	first := f.do(t, http.MethodPost, "/reservations", body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first request failed: %d %s", first.Code, first.Body.String())
	}

	second := f.do(t, http.MethodPost, "/reservations", body, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay should return cached 201, got %d: %s", second.Code, second.Body.String())
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay body differs:\nfirst:  %s\nsecond: %s", first.Body.String(), second.Body.String())
	}

	if f.gateway.AuthorizeCalls != 1 {
		t.Fatalf("gateway must be called once, got %d", f.gateway.AuthorizeCalls)
	}

	event, err := f.events.Get(eventID)
	if err != nil {
		t.Fatalf("event lookup failed: %v", err)
	}
	if event.AvailableCapacity != 2 {
		t.Fatalf("replay must not decrement again, available=%d", event.AvailableCapacity)
	}

	f.orchestrator.Wait()
}

func TestCreateReservation_IdempotencyHashMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Lecture", 3)
	userID := f.registerUser(t, "frank")
	otherID := f.registerUser(t, "grace")

	headers := map[string]string{"Idempotency-Key": "key-mismatch"}

	first := f.do(t, http.MethodPost, "/reservations", map[string]string{
		"event_id": eventID, "user_id": userID,
	}, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first request failed: %d %s", first.Code, first.Body.String())
	}

	second := f.do(t, http.MethodPost, "/reservations", map[string]string{
		"event_id": eventID, "user_id": otherID,
	}, headers)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 on reused key with different body, got %d", second.Code)
	}

	f.orchestrator.Wait()
}

func TestCreateReservation_IdempotencyProcessing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Seminar", 3)
	userID := f.registerUser(t, "heidi")

	body := map[string]string{"event_id": eventID, "user_id": userID}
	data, _ := json.Marshal(body)
	hash := requestHash(http.MethodPost, "/reservations", data)
	if _, err := f.idemRepo.CreateProcessing("key-inflight", hash, time.Now().UTC().Add(time.Hour)); err != nil {
		t.Fatalf("failed to seed processing record: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/reservations", body, map[string]string{"Idempotency-Key": "key-inflight"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while first request is processing, got %d", rec.Code)
	}
	if f.gateway.AuthorizeCalls != 0 {
		t.Fatalf("in-flight key must not reach the gateway, calls=%d", f.gateway.AuthorizeCalls)
	}
}

func TestCreateReservation_IdempotentFailureReplay(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Opera", 3)
	userID := f.registerUser(t, "ivan")

	f.gateway.Status = domain.PaymentStatusDeclined
	f.gateway.Err = domain.ErrPaymentDeclined

	body := map[string]string{"event_id": eventID, "user_id": userID}
	headers := map[string]string{"Idempotency-Key": "key-declined"}

	first := f.do(t, http.MethodPost, "/reservations", body, headers)
	if first.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", first.Code)
	}

	second := f.do(t, http.MethodPost, "/reservations", body, headers)
	if second.Code != http.StatusPaymentRequired {
		t.Fatalf("failure replay should return cached 402, got %d", second.Code)
	}
	if f.gateway.AuthorizeCalls != 1 {
		t.Fatalf("gateway must be called once, got %d", f.gateway.AuthorizeCalls)
	}
}

func TestEvents_Lifecycle(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Expo", 2)

	listRec := f.do(t, http.MethodGet, "/events", nil, nil)
	if listRec.Code != http.StatusOK {
		t.Fatalf("list events: unexpected status %d", listRec.Code)
	}

	getRec := f.do(t, http.MethodGet, "/events/"+eventID, nil, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get event: unexpected status %d", getRec.Code)
	}
	var event eventPayload
	if err := json.Unmarshal(getRec.Body.Bytes(), &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.AvailableCapacity != 2 || event.Status != string(domain.EventStatusActive) {
		t.Fatalf("unexpected event payload: %+v", event)
	}

	for i := 0; i < 2; i++ {
		decRec := f.do(t, http.MethodPost, fmt.Sprintf("/events/%s/decrement", eventID), nil, nil)
		if decRec.Code != http.StatusOK {
			t.Fatalf("decrement %d: unexpected status %d", i, decRec.Code)
		}
	}

	exhausted := f.do(t, http.MethodPost, fmt.Sprintf("/events/%s/decrement", eventID), nil, nil)
	if exhausted.Code != http.StatusConflict {
		t.Fatalf("decrement at zero must be 409, got %d", exhausted.Code)
	}

	statusRec := f.do(t, http.MethodPatch, "/events/"+eventID+"/status", map[string]string{"status": "cancelled"}, nil)
	if statusRec.Code != http.StatusOK {
		t.Fatalf("set status: unexpected status %d: %s", statusRec.Code, statusRec.Body.String())
	}

	badStatus := f.do(t, http.MethodPatch, "/events/"+eventID+"/status", map[string]string{"status": "bogus"}, nil)
	if badStatus.Code != http.StatusBadRequest {
		t.Fatalf("invalid status must be 400, got %d", badStatus.Code)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/events", map[string]interface{}{
		"title":          "",
		"date":           "",
		"total_capacity": -5,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid event, got %d", rec.Code)
	}
}

func TestUsers_LoginAndProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	userID := f.registerUser(t, "judy")

	loginRec := f.do(t, http.MethodPost, "/login", map[string]string{
		"email": "judy@example.com", "password": "password123",
	}, nil)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login: unexpected status %d: %s", loginRec.Code, loginRec.Body.String())
	}
	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(loginRec.Body.Bytes(), &loginResp); err != nil || loginResp.Token == "" {
		t.Fatalf("expected token in login response, err=%v body=%s", err, loginRec.Body.String())
	}

	badLogin := f.do(t, http.MethodPost, "/login", map[string]string{
		"email": "judy@example.com", "password": "wrong-password",
	}, nil)
	if badLogin.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials must be 401, got %d", badLogin.Code)
	}

	profileRec := f.do(t, http.MethodGet, "/users/"+userID+"/profile", nil, nil)
	if profileRec.Code != http.StatusOK {
		t.Fatalf("profile: unexpected status %d", profileRec.Code)
	}
	var profile struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(profileRec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if profile.Username != "judy" || profile.Email != "judy@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	missing := f.do(t, http.MethodGet, "/users/no-such-user/profile", nil, nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("unknown user profile must be 404, got %d", missing.Code)
	}
}

func TestUserReservations_List(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	firstEvent := f.createEvent(t, "Event A", 2)
	secondEvent := f.createEvent(t, "Event B", 2)
	userID := f.registerUser(t, "kate")

	for _, eventID := range []string{firstEvent, secondEvent} {
		rec := f.do(t, http.MethodPost, "/reservations", map[string]string{
			"event_id": eventID, "user_id": userID,
		}, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("booking failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := f.do(t, http.MethodGet, "/users/"+userID+"/reservations", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list reservations: unexpected status %d", rec.Code)
	}
	var resp struct {
		Reservations []reservationPayload `json:"reservations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(resp.Reservations) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(resp.Reservations))
	}

	f.orchestrator.Wait()
}

func TestReservationTimeline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	eventID := f.createEvent(t, "Gala", 2)
	userID := f.registerUser(t, "leo")

	rec := f.do(t, http.MethodPost, "/reservations", map[string]string{
		"event_id": eventID, "user_id": userID,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("booking failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp createReservationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode booking response: %v", err)
	}

	tlRec := f.do(t, http.MethodGet, "/reservations/"+resp.Reservation.ID+"/timeline", nil, nil)
	if tlRec.Code != http.StatusOK {
		t.Fatalf("timeline: unexpected status %d", tlRec.Code)
	}
	var tl struct {
		Events []timelineEventPayload `json:"events"`
	}
	if err := json.Unmarshal(tlRec.Body.Bytes(), &tl); err != nil {
		t.Fatalf("failed to decode timeline: %v", err)
	}
	if len(tl.Events) == 0 {
		t.Fatal("expected at least one timeline event for confirmed reservation")
	}

	missing := f.do(t, http.MethodGet, "/reservations/no-such-id/timeline", nil, nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("timeline for unknown reservation must be 404, got %d", missing.Code)
	}

	f.orchestrator.Wait()
}

func TestPayEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	okRec := f.do(t, http.MethodPost, "/pay", map[string]interface{}{
		"payer_id": "user-1", "event_id": "event-1", "amount_minor": 10000,
	}, nil)
	if okRec.Code != http.StatusOK {
		t.Fatalf("pay: unexpected status %d: %s", okRec.Code, okRec.Body.String())
	}
	var payResp struct {
		Status        string `json:"status"`
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(okRec.Body.Bytes(), &payResp); err != nil {
		t.Fatalf("failed to decode pay response: %v", err)
	}
	if payResp.Status != string(domain.PaymentStatusConfirmed) || payResp.TransactionID == "" {
		t.Fatalf("unexpected pay response: %+v", payResp)
	}

	f.gateway.Status = domain.PaymentStatusDeclined
	f.gateway.Err = domain.ErrPaymentDeclined
	declined := f.do(t, http.MethodPost, "/pay", map[string]interface{}{
		"payer_id": "user-1", "event_id": "event-1", "amount_minor": 10000,
	}, nil)
	if declined.Code != http.StatusPaymentRequired {
		t.Fatalf("declined pay must be 402, got %d", declined.Code)
	}

	invalid := f.do(t, http.MethodPost, "/pay", map[string]string{"payer_id": ""}, nil)
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("missing identifiers must be 400, got %d", invalid.Code)
	}
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrPaymentDeclined, http.StatusPaymentRequired},
		{domain.ErrEventNotFound, http.StatusNotFound},
		{domain.ErrReservationNotFound, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrAlreadyReserved, http.StatusConflict},
		{domain.ErrSoldOut, http.StatusConflict},
		{domain.ErrUserExists, http.StatusConflict},
		{domain.ErrPaymentUnavailable, http.StatusServiceUnavailable},
		{domain.ErrInventoryUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForError(tc.err); got != tc.want {
			t.Fatalf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
