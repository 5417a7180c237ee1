// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"strings"
)

// User is a registered account. PasswordHash is never plaintext.
type User struct {
	UserID       string
	Email        string
	PasswordHash string
	IsActive     bool
}

// CreateUserCmd requests registration of a new user.
type CreateUserCmd struct {
	Email    string
	Password string
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. It must be atomic with respect to the
	// normalized email: when another user already holds the email it
	// returns an error wrapping ErrUserAlreadyExists.
	Create(ctx context.Context, user User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, userID string) (User, error)

	// GetByEmail retrieves a user by normalized email. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (User, error)
}
