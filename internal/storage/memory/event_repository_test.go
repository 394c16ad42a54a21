package memory

import (
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

func seedEvent(t *testing.T, repo domain.EventRepository, id string, total int32) {
	t.Helper()

	err := repo.Create(domain.EventInventory{
		ID:            id,
		Title:         "Go Conference",
		Date:          "2026-10-01",
		TotalCapacity: total,
		Status:        domain.EventStatusActive,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
}

func TestEventRepository_CreateSetsAvailableToTotal(t *testing.T) {
	repo := NewEventRepository()
	seedEvent(t, repo, "event-1", 42)

	event, err := repo.Get("event-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event.AvailableCapacity != 42 {
		t.Fatalf("available=%d, want 42", event.AvailableCapacity)
	}
	if event.Status != domain.EventStatusActive {
		t.Fatalf("status=%q, want active", event.Status)
	}
}

func TestEventRepository_CreateDuplicate(t *testing.T) {
	repo := NewEventRepository()
	seedEvent(t, repo, "event-1", 10)

	err := repo.Create(domain.EventInventory{ID: "event-1", Title: "Other", Date: "2026-11-01", TotalCapacity: 5})
	if !errors.Is(err, domain.ErrEventExists) {
		t.Fatalf("err=%v, want ErrEventExists", err)
	}
}

func TestEventRepository_GetMissing(t *testing.T) {
	repo := NewEventRepository()

	if _, err := repo.Get("nope"); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("err=%v, want ErrEventNotFound", err)
	}
}

func TestEventRepository_DecrementAvailable(t *testing.T) {
	repo := NewEventRepository()
	seedEvent(t, repo, "event-1", 2)

	left, err := repo.DecrementAvailable("event-1")
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if left != 1 {
		t.Fatalf("left=%d, want 1", left)
	}

	if _, err := repo.DecrementAvailable("event-1"); err != nil {
		t.Fatalf("second decrement: %v", err)
	}

	_, err = repo.DecrementAvailable("event-1")
	if !errors.Is(err, domain.ErrSoldOut) {
		t.Fatalf("err=%v, want ErrSoldOut", err)
	}
}

// Конкурентные декременты: при N > C ровно C успехов, N-C отказов SoldOut,
// остаток ровно ноль и никогда не уходит в минус.
func TestEventRepository_DecrementAtomicity(t *testing.T) {
	const (
		capacity = 7
		workers  = 25
	)

	repo := NewEventRepository()
	seedEvent(t, repo, "event-1", capacity)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCnt    int
		soldCnt  int
		otherErr error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.DecrementAvailable("event-1")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCnt++
			case errors.Is(err, domain.ErrSoldOut):
				soldCnt++
			default:
				otherErr = err
			}
		}()
	}
	wg.Wait()

	if otherErr != nil {
		t.Fatalf("unexpected error: %v", otherErr)
	}
	if okCnt != capacity {
		t.Fatalf("successes=%d, want %d", okCnt, capacity)
	}
	if soldCnt != workers-capacity {
		t.Fatalf("sold-out failures=%d, want %d", soldCnt, workers-capacity)
	}

	event, err := repo.Get("event-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if event.AvailableCapacity != 0 {
		t.Fatalf("final available=%d, want 0", event.AvailableCapacity)
	}
}

func TestEventRepository_SetStatus(t *testing.T) {
	repo := NewEventRepository()
	seedEvent(t, repo, "event-1", 10)

	if err := repo.SetStatus("event-1", domain.EventStatusPostponed); err != nil {
		t.Fatalf("set status: %v", err)
	}

	event, _ := repo.Get("event-1")
	if event.Status != domain.EventStatusPostponed {
		t.Fatalf("status=%q, want postponed", event.Status)
	}

	if err := repo.SetStatus("event-1", domain.EventStatus("bogus")); !errors.Is(err, domain.ErrEventStatusInvalid) {
		t.Fatalf("err=%v, want ErrEventStatusInvalid", err)
	}
	if err := repo.SetStatus("missing", domain.EventStatusCancelled); !errors.Is(err, domain.ErrEventNotFound) {
		t.Fatalf("err=%v, want ErrEventNotFound", err)
	}
}
