package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
	"github.com/vladislavdragonenkov/eventtix/internal/storage/memory"
)

func newTestService() (*Service, domain.UserRepository) {
	repo := memory.NewUserRepository()
	return NewService(repo, []byte("test-secret"), time.Hour), repo
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "Alice@Example.com", "password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email should be lowercased, got %q", user.Email)
	}
	if user.PasswordHash == "password123" || user.PasswordHash == "" {
		t.Fatal("password must be stored as hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()

	cases := map[string]struct {
		username, email, password string
	}{
		"empty username": {"", "a@b.c", "password123"},
		"empty email":    {"alice", "", "password123"},
		"short password": {"alice", "a@b.c", "short"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Register(ctx, tc.username, tc.email, tc.password); !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestService_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "a@b.c", "password123"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "a@b.c", "password123"); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestService_LoginAndParseToken(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "bob", "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, err := svc.Login(ctx, "BOB@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected JWT with three segments, got %q", token)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != "bob" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) > time.Hour {
		t.Fatalf("token TTL should not exceed an hour: %+v", claims.ExpiresAt)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "carol", "carol@example.com", "password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Login(ctx, "carol@example.com", "wrong-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password should give ErrInvalidCredentials, got %v", err)
	}
	// Несуществующий email неотличим от неверного пароля.
	if _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email should give ErrInvalidCredentials, got %v", err)
	}
}

func TestService_ParseTokenRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	other := NewService(memory.NewUserRepository(), []byte("other-secret"), time.Hour)

	ctx := context.Background()
	if _, err := other.Register(ctx, "dave", "dave@example.com", "password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	token, err := other.Login(ctx, "dave@example.com", "password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := svc.ParseToken(token); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("token signed with another secret must be rejected, got %v", err)
	}
}

func TestService_GetProfile(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "erin", "erin@example.com", "password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	contact, err := svc.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("get profile failed: %v", err)
	}
	if contact.Email != "erin@example.com" || contact.Username != "erin" {
		t.Fatalf("unexpected contact: %+v", contact)
	}

	if _, err := svc.GetProfile(ctx, "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
