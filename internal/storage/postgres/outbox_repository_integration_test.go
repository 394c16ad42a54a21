package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

func enqueueReservationEvent(t *testing.T, repo domain.OutboxRepository, id, reservationID, eventType string) domain.OutboxMessage {
	t.Helper()

	stored, err := repo.Enqueue(domain.OutboxMessage{
		ID:            id,
		AggregateType: "reservation",
		AggregateID:   reservationID,
		EventType:     eventType,
		Payload:       []byte(fmt.Sprintf(`{"reservation_id":%q}`, reservationID)),
	})
	if err != nil {
		t.Fatalf("enqueue outbox message for %s: %v", reservationID, err)
	}
	return stored
}

func TestOutboxRepository_PostgresPendingLifecycle(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	generated := enqueueReservationEvent(t, repo, "", "res-1", "reservation.confirmed")
	if generated.ID == "" {
		t.Fatal("expected generated id for outbox message")
	}

	time.Sleep(2 * time.Millisecond)
	fixed := enqueueReservationEvent(t, repo, "outbox-fixed-id", "res-2", "reservation.failed")
	if fixed.ID != "outbox-fixed-id" {
		t.Fatalf("expected caller-supplied id to survive, got %q", fixed.ID)
	}

	// Нулевой limit читает дефолтную пачку, порядок — по времени создания.
	pending, err := repo.PullPending(0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}
	if pending[0].ID != generated.ID || pending[1].ID != fixed.ID {
		t.Fatalf("expected creation order [%s %s], got [%s %s]",
			generated.ID, fixed.ID, pending[0].ID, pending[1].ID)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats before marks: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Fatalf("expected pending=2 before marks, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("expected oldest pending timestamp")
	}

	if err := repo.MarkSent(generated.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(fixed.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	after, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending after marks: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("expected no pending after marks, got %d", len(after))
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats after marks: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected pending=0 after marks, got %d", stats.PendingCount)
	}
	if !stats.OldestPendingAt.IsZero() {
		t.Fatalf("expected zero oldest timestamp for empty backlog, got %v", stats.OldestPendingAt)
	}
}

func TestOutboxRepository_PostgresPullRespectsLimit(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	ids := make([]string, 0, 3)
	for i := range 3 {
		msg := enqueueReservationEvent(t, repo, "", fmt.Sprintf("res-limit-%d", i), "reservation.confirmed")
		ids = append(ids, msg.ID)
		time.Sleep(2 * time.Millisecond)
	}

	batch, err := repo.PullPending(2)
	if err != nil {
		t.Fatalf("pull pending with limit: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected batch of 2, got %d", len(batch))
	}
	if batch[0].ID != ids[0] || batch[1].ID != ids[1] {
		t.Fatalf("expected two oldest records %v, got [%s %s]", ids[:2], batch[0].ID, batch[1].ID)
	}
}

func TestOutboxRepository_PostgresMissingRows(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	if err := repo.MarkSent("missing-outbox"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish on mark sent missing id, got %v", err)
	}
	if err := repo.MarkFailed("missing-outbox"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish on mark failed missing id, got %v", err)
	}
}
