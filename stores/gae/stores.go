package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"

	oa "github.com/notably/noteauth"
)

// Kind constants for Datastore entities
const (
	KindUser      = "User"
	KindUserEmail = "UserEmail"
)

// userEntity is the stored user shape.
type userEntity struct {
	ID           string    `datastore:"id"`
	Name         string    `datastore:"name"`
	Email        string    `datastore:"email"`
	PasswordHash string    `datastore:"password_hash,noindex"`
	GoogleID     string    `datastore:"google_id"`
	DateOfBirth  time.Time `datastore:"date_of_birth,noindex"`
	CreatedAt    time.Time `datastore:"created_at"`
}

// emailReservation reserves a normalized email for a user id.
type emailReservation struct {
	UserID string `datastore:"user_id"`
}

// UserStore implements oa.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{client: client, namespace: namespace}
}

func (s *UserStore) userKey(userId string) *datastore.Key {
	key := datastore.NameKey(KindUser, userId, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) emailKey(email string) *datastore.Key {
	key := datastore.NameKey(KindUserEmail, oa.NormalizeEmail(email), nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*oa.User, error) {
	var reservation emailReservation
	if err := s.client.Get(ctx, s.emailKey(email), &reservation); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, oa.ErrUserNotFound
		}
		return nil, err
	}

	var entity userEntity
	if err := s.client.Get(ctx, s.userKey(reservation.UserID), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, oa.ErrUserNotFound
		}
		return nil, err
	}
	return entity.toUser(), nil
}

func (s *UserStore) Insert(ctx context.Context, user *oa.User) (*oa.User, error) {
	entity := fromUser(user)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		emailKey := s.emailKey(user.Email)
		var existing emailReservation
		err := tx.Get(emailKey, &existing)
		if err == nil {
			return oa.ErrEmailExists
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}

		if _, err := tx.Put(emailKey, &emailReservation{UserID: user.ID}); err != nil {
			return err
		}
		_, err = tx.Put(s.userKey(user.ID), entity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity.toUser(), nil
}

func (e *userEntity) toUser() *oa.User {
	return &oa.User{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		GoogleID:     e.GoogleID,
		DateOfBirth:  e.DateOfBirth,
		CreatedAt:    e.CreatedAt,
	}
}

func fromUser(user *oa.User) *userEntity {
	return &userEntity{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		GoogleID:     user.GoogleID,
		DateOfBirth:  user.DateOfBirth,
		CreatedAt:    user.CreatedAt,
	}
}
