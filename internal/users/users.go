// Package users persists registered accounts.
//
// Accounts are append-only in this service: created at registration, looked
// up at login and on every authenticated request, never mutated. Email and
// username are unique; the store enforces the constraint so two racing
// registrations cannot both win.
package users

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrDuplicateUser = errors.New("user already exists")
	ErrUserNotFound  = errors.New("user not found")
)

// User represents a registered account
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // bcrypt hash, never serialized
	CreatedAt      time.Time `json:"createdAt"`
}

// Store persists users
type Store interface {
	// Create inserts the user and fills in ID and CreatedAt.
	// Returns ErrDuplicateUser when username or email is already taken.
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
