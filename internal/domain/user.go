package domain

import (
	"context"
	"time"
)

const DefaultRole = "user"

type Company struct {
	ID      string `json:"id,omitempty"      bson:"id,omitempty"`
	Name    string `json:"name,omitempty"    bson:"name,omitempty"`
	Website string `json:"website,omitempty" bson:"website,omitempty"`
	Logo    string `json:"logo,omitempty"    bson:"logo,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"` // "user"/"admin"
	Company      *Company  `json:"company,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// UserRepository 用户只会被创建和读取，没有更新/删除入口
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]User, int64, error)
}
