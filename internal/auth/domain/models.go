package domain

import (
	"context"
	"time"
)

// User is a back-office account. Role decides what the permission gate
// lets the account do; drivers get accounts too so they can move their
// own orders.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterInput struct {
	Email    string
	Password string
	Role     string
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int, error)
}
