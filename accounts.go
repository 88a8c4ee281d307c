package noteauth

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

// Accounts resolves verified credentials to durable user records. It is the
// single source of truth for the one-email-one-identity rule: uniqueness
// violations reported by the store surface here as ErrEmailExists, never as
// a generic error.
type Accounts struct {
	Users UserStore
}

// ResolveForPasswordSignup hashes the password and creates a new user.
// Fails with ErrEmailExists if a record with this email already exists.
func (a *Accounts) ResolveForPasswordSignup(ctx context.Context, name, email, password string, dateOfBirth time.Time) (*User, error) {
	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		DateOfBirth:  dateOfBirth,
		CreatedAt:    time.Now(),
	}
	return a.Users.Insert(ctx, user)
}

// ResolveForOtpSignin returns the existing user for the email, or
// ErrUserNotFound. OTP signin never creates accounts.
func (a *Accounts) ResolveForOtpSignin(ctx context.Context, email string) (*User, error) {
	return a.Users.FindByEmail(ctx, NormalizeEmail(email))
}

// ResolveForFederatedLogin finds or creates the user for a verified
// federated claim. An email match is treated as proof of ownership, so a
// claim for a known email returns the existing record; an unknown email
// always results in creation, with the date of birth left at the sentinel
// since the provider does not supply one.
func (a *Accounts) ResolveForFederatedLogin(ctx context.Context, claim *FederatedClaim) (*User, error) {
	email := NormalizeEmail(claim.Email)

	user, err := a.Users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user = &User{
		ID:          uuid.NewString(),
		Name:        claim.Name,
		Email:       email,
		GoogleID:    claim.SubjectID,
		DateOfBirth: UnknownDateOfBirth,
		CreatedAt:   time.Now(),
	}
	created, err := a.Users.Insert(ctx, user)
	if errors.Is(err, ErrEmailExists) {
		// Lost a create race for the same email; the winner is the account.
		return a.Users.FindByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("created user %s for federated identity", created.ID)
	return created, nil
}
