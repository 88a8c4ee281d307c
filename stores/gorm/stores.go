package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	oa "github.com/notably/noteauth"
)

// AutoMigrate runs database migrations for the noteauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements oa.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*oa.User, error) {
	var model UserModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", oa.NormalizeEmail(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, oa.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) Insert(ctx context.Context, user *oa.User) (*oa.User, error) {
	model := fromUser(user)
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		// The unique index on email is authoritative for duplicates.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, oa.ErrEmailExists
		}
		return nil, err
	}
	return model.ToUser(), nil
}
