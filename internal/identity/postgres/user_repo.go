// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/identity"
)

// usersEmailKey is the unique constraint on users.email.
const usersEmailKey = "users_email_key"

// UserRepository implements identity.UserRepository using PostgreSQL.
type UserRepository struct {
	pool Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user. The unique constraint on email makes this an atomic
// create-if-absent; a violation maps to identity.ErrUserAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user identity.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
	`, user.UserID, user.Email, user.PasswordHash, user.IsActive)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == usersEmailKey {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Wrap(identity.ErrUserAlreadyExists)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("user_id", user.UserID).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (identity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, is_active
		FROM users
		WHERE id = $1
	`, userID)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.User{}, oops.Code("USER_NOT_FOUND").
			With("user_id", userID).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return identity.User{}, oops.Code("USER_GET_FAILED").
			With("operation", "get user by id").
			With("user_id", userID).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (identity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, is_active
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.User{}, oops.Code("USER_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return identity.User{}, oops.Code("USER_GET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (identity.User, error) {
	var user identity.User
	err := row.Scan(&user.UserID, &user.Email, &user.PasswordHash, &user.IsActive)
	return user, err
}

var _ identity.UserRepository = (*UserRepository)(nil)
