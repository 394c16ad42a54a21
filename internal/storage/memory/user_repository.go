package memory

import (
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/eventtix/internal/domain"
)

// userRepositoryInMemory — in-memory реализация UserRepository.
type userRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.User
	byEmail map[string]string // email (lowercase) -> user id
}

// NewUserRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{
		items:   make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

// Create сохраняет пользователя; занятый email или ID — ErrUserExists.
func (r *userRepositoryInMemory) Create(user domain.User) error {
	email := strings.ToLower(strings.TrimSpace(user.Email))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[user.ID]; exists {
		return domain.ErrUserExists
	}
	if _, exists := r.byEmail[email]; exists {
		return domain.ErrUserExists
	}
	for _, existing := range r.items {
		if existing.Username == user.Username {
			return domain.ErrUserExists
		}
	}

	r.items[user.ID] = user
	r.byEmail[email] = user.ID
	return nil
}

// Get возвращает пользователя или ErrUserNotFound.
func (r *userRepositoryInMemory) Get(id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// GetByEmail возвращает пользователя по email (без учёта регистра).
func (r *userRepositoryInMemory) GetByEmail(email string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return r.items[id], nil
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
