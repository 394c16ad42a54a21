package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

func newReservation(id, eventID, userID string, status domain.ReservationStatus) domain.Reservation {
	return domain.Reservation{
		ID:        id,
		EventID:   eventID,
		UserID:    userID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

func TestReservationRepository_CreateAndGet(t *testing.T) {
	repo := NewReservationRepository()

	if err := repo.Create(newReservation("res-1", "event-1", "user-1", domain.ReservationStatusConfirmed)); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get("res-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EventID != "event-1" || got.UserID != "user-1" {
		t.Fatalf("unexpected reservation: %+v", got)
	}

	if _, err := repo.Get("missing"); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("err=%v, want ErrReservationNotFound", err)
	}
}

// Активная пара (event, user) уникальна на уровне хранилища:
// повторный Create отвергается как ErrAlreadyReserved.
func TestReservationRepository_ActiveUniqueness(t *testing.T) {
	repo := NewReservationRepository()

	if err := repo.Create(newReservation("res-1", "event-1", "user-1", domain.ReservationStatusConfirmed)); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := repo.Create(newReservation("res-2", "event-1", "user-1", domain.ReservationStatusConfirmed))
	if !errors.Is(err, domain.ErrAlreadyReserved) {
		t.Fatalf("err=%v, want ErrAlreadyReserved", err)
	}

	// Другое мероприятие или другой пользователь конфликта не создают.
	if err := repo.Create(newReservation("res-3", "event-2", "user-1", domain.ReservationStatusConfirmed)); err != nil {
		t.Fatalf("other event: %v", err)
	}
	if err := repo.Create(newReservation("res-4", "event-1", "user-2", domain.ReservationStatusConfirmed)); err != nil {
		t.Fatalf("other user: %v", err)
	}
}

// failed-запись не удерживает место: после неё пара может бронировать снова.
func TestReservationRepository_FailedDoesNotBlock(t *testing.T) {
	repo := NewReservationRepository()

	if err := repo.Create(newReservation("res-1", "event-1", "user-1", domain.ReservationStatusFailed)); err != nil {
		t.Fatalf("create failed reservation: %v", err)
	}
	if err := repo.Create(newReservation("res-2", "event-1", "user-1", domain.ReservationStatusConfirmed)); err != nil {
		t.Fatalf("create after failed: %v", err)
	}
}

func TestReservationRepository_FindActiveByEventAndUser(t *testing.T) {
	repo := NewReservationRepository()

	if _, err := repo.FindActiveByEventAndUser("event-1", "user-1"); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("err=%v, want ErrReservationNotFound", err)
	}

	if err := repo.Create(newReservation("res-1", "event-1", "user-1", domain.ReservationStatusFailed)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.FindActiveByEventAndUser("event-1", "user-1"); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("failed reservation must not be found as active, got err=%v", err)
	}

	if err := repo.Create(newReservation("res-2", "event-1", "user-1", domain.ReservationStatusConfirmed)); err != nil {
		t.Fatalf("create: %v", err)
	}
	found, err := repo.FindActiveByEventAndUser("event-1", "user-1")
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if found.ID != "res-2" {
		t.Fatalf("found %q, want res-2", found.ID)
	}
}

func TestReservationRepository_ListByUser(t *testing.T) {
	repo := NewReservationRepository()

	first := newReservation("res-1", "event-1", "user-1", domain.ReservationStatusConfirmed)
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	second := newReservation("res-2", "event-2", "user-1", domain.ReservationStatusConfirmed)

	if err := repo.Create(first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(second); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(newReservation("res-3", "event-1", "user-2", domain.ReservationStatusConfirmed)); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := repo.ListByUser("user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len=%d, want 2", len(list))
	}
	if list[0].ID != "res-2" || list[1].ID != "res-1" {
		t.Fatalf("unexpected order: %q, %q", list[0].ID, list[1].ID)
	}
}
