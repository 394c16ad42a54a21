package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

func TestUserRepository_PostgresCreateAndLookup(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewUserRepository(store)

	seeded := seedUser(t, store, "user-crud", "alice")

	byID, err := repo.Get(seeded.ID)
	if err != nil {
		t.Fatalf("get user by id: %v", err)
	}
	if byID.Username != "alice" || byID.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", byID)
	}
	if byID.PasswordHash == "" {
		t.Fatal("password hash must survive round trip")
	}

	byEmail, err := repo.GetByEmail("alice@example.com")
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if byEmail.ID != seeded.ID {
		t.Fatalf("expected same user, got %+v", byEmail)
	}

	if _, err := repo.Get("missing-user"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound by id, got %v", err)
	}
	if _, err := repo.GetByEmail("nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound by email, got %v", err)
	}
}

func TestUserRepository_PostgresUniqueConstraints(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewUserRepository(store)

	seedUser(t, store, "user-uniq", "bob")

	err := repo.Create(domain.User{
		ID:           "user-uniq-2",
		Username:     "bob",
		Email:        "other@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate username must return ErrUserExists, got %v", err)
	}

	err = repo.Create(domain.User{
		ID:           "user-uniq-3",
		Username:     "someone",
		Email:        "bob@example.com",
		PasswordHash: "hash",
	})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate email must return ErrUserExists, got %v", err)
	}
}
