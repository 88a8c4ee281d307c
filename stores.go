package noteauth

import (
	"context"
	"strings"
	"time"
)

// DOB recorded for accounts created through federated login, where the
// provider gives us no date of birth.
var UnknownDateOfBirth = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// User is a unified user account. Email is globally unique
// (case-insensitive) and every record carries at least one proof of
// identity: a password hash, a Google subject id, or both.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"google_id,omitempty"`
	DateOfBirth  time.Time `json:"date_of_birth"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasPassword reports whether local password login is available for the user.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserStore manages durable user accounts. Implementations must enforce
// email uniqueness and surface a duplicate insert as ErrEmailExists; the
// flows treat that signal as authoritative for the one-email-one-identity
// rule.
type UserStore interface {
	// FindByEmail returns the user for a normalized email, or ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Insert persists a new user. Returns ErrEmailExists if the email is taken.
	Insert(ctx context.Context, user *User) (*User, error)
}

// NormalizeEmail trims whitespace and lowercases an email address. Every
// store key and lookup in this package goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
