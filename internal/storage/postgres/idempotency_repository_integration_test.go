package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

func idempotencyTestRepo(t *testing.T) domain.IdempotencyRepository {
	t.Helper()

	store := openPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := store.DB().ExecContext(ctx, `TRUNCATE TABLE idempotency_keys`)
	require.NoError(t, err)

	return NewIdempotencyRepository(store)
}

func TestIdempotencyRepository_PostgresReplayLifecycle(t *testing.T) {
	repo := idempotencyTestRepo(t)

	key := "reserve-evt-1-user-1"
	hash := "sha256-of-reserve-body"
	ttl := time.Now().UTC().Add(2 * time.Hour).Round(time.Second)

	created, err := repo.CreateProcessing(key, hash, ttl)
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusProcessing, created.Status)

	require.NoError(t, repo.MarkDone(key, []byte(`{"message":"Reservation confirmed"}`), 201))

	stored, err := repo.Get(key)
	require.NoError(t, err)
	require.Equal(t, hash, stored.RequestHash)
	require.Equal(t, domain.IdempotencyStatusDone, stored.Status)
	require.Equal(t, 201, stored.HTTPStatus)
	require.JSONEq(t, `{"message":"Reservation confirmed"}`, string(stored.ResponseBody))
	require.True(t, stored.TTLAt.Equal(ttl), "ttl mismatch: expected %s, got %s", ttl, stored.TTLAt)
}

func TestIdempotencyRepository_PostgresMarkFailedKeepsResponse(t *testing.T) {
	repo := idempotencyTestRepo(t)

	_, err := repo.CreateProcessing("reserve-evt-1-user-2", "hash-declined", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	require.NoError(t, repo.MarkFailed("reserve-evt-1-user-2", []byte(`{"error":"payment was declined"}`), 402))

	stored, err := repo.Get("reserve-evt-1-user-2")
	require.NoError(t, err)
	require.Equal(t, domain.IdempotencyStatusFailed, stored.Status)
	require.Equal(t, 402, stored.HTTPStatus)
}

func TestIdempotencyRepository_PostgresDuplicateKeyOutcomes(t *testing.T) {
	repo := idempotencyTestRepo(t)

	ttl := time.Now().UTC().Add(time.Hour)
	_, err := repo.CreateProcessing("reserve-evt-2-user-1", "hash-original", ttl)
	require.NoError(t, err)

	// Тот же ключ с тем же hash — реплей.
	existing, err := repo.CreateProcessing("reserve-evt-2-user-1", "hash-original", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyKeyAlreadyExists)
	require.Equal(t, "hash-original", existing.RequestHash)

	// Тот же ключ с другим телом запроса — конфликт.
	_, err = repo.CreateProcessing("reserve-evt-2-user-1", "hash-tampered", ttl)
	require.ErrorIs(t, err, domain.ErrIdempotencyHashMismatch)
}

func TestIdempotencyRepository_PostgresDeleteExpiredOldestFirst(t *testing.T) {
	repo := idempotencyTestRepo(t)

	now := time.Now().UTC()
	for key, ttl := range map[string]time.Time{
		"expired-oldest": now.Add(-5 * time.Minute),
		"expired-mid":    now.Add(-4 * time.Minute),
		"expired-newest": now.Add(-3 * time.Minute),
		"still-active":   now.Add(time.Hour),
	} {
		_, err := repo.CreateProcessing(key, "hash-"+key, ttl)
		require.NoError(t, err)
	}

	removed, err := repo.DeleteExpired(now, 2)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	// Лимит срезал две старейшие, третья уходит следующим проходом.
	_, err = repo.Get("expired-newest")
	require.NoError(t, err)

	removed, err = repo.DeleteExpired(now, 10)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Get("still-active")
	require.NoError(t, err)
}
