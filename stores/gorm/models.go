package gorm

import (
	"time"

	oa "github.com/notably/noteauth"
)

// UserModel is the users table row.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string
	GoogleID     string
	DateOfBirth  time.Time
	CreatedAt    time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// ToUser converts the row to a noteauth.User
func (m *UserModel) ToUser() *oa.User {
	return &oa.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		GoogleID:     m.GoogleID,
		DateOfBirth:  m.DateOfBirth,
		CreatedAt:    m.CreatedAt,
	}
}

func fromUser(user *oa.User) *UserModel {
	return &UserModel{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		GoogleID:     user.GoogleID,
		DateOfBirth:  user.DateOfBirth,
		CreatedAt:    user.CreatedAt,
	}
}
