package user

import (
	"time"

	"formcraft/internal/domain"
)

type UserModel struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)"`
	Email        string          `gorm:"uniqueIndex;size:255;not null"`
	Name         string          `gorm:"size:64;not null"`
	PasswordHash string          `gorm:"size:100;not null"`
	Role         string          `gorm:"size:16;not null;default:user"`
	Company      *domain.Company `gorm:"serializer:json"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (UserModel) TableName() string { return "users" }

func FromDomain(u *domain.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Company:      u.Company,
		CreatedAt:    u.CreatedAt,
	}
}

func (m *UserModel) ToDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		Company:      m.Company,
		CreatedAt:    m.CreatedAt,
	}
}
