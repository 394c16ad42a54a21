package domain

import "time"

// User описывает учётную запись пользователя.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // bcrypt-хэш, наружу не отдаётся
	CreatedAt    time.Time
}

// Contact — контактные данные для уведомлений, без чувствительных полей.
type Contact struct {
	Email    string
	Username string
}

// Contact возвращает проекцию пользователя для нотификаций.
func (u *User) Contact() Contact {
	return Contact{Email: u.Email, Username: u.Username}
}

// Validate проверяет обязательные поля учётной записи.
func (u *User) Validate() []error {
	var errs []error

	if u.Username == "" {
		errs = append(errs, ErrUsernameRequired)
	}
	if u.Email == "" {
		errs = append(errs, ErrEmailRequired)
	}

	return errs
}
