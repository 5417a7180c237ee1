// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/identity"
)

// SessionStore implements identity.SessionStore using PostgreSQL.
// Rows are keyed by the SHA-256 digest of the token; the token itself is
// never written to the database.
type SessionStore struct {
	pool Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, session identity.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`,
		identity.HashSessionToken(session.SessionID),
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// Get retrieves a session by token.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (identity.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, identity.HashSessionToken(sessionID))

	session := identity.Session{SessionID: sessionID}
	err := row.Scan(&session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return identity.Session{}, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	return session, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`,
		identity.HashSessionToken(sessionID))
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteExpired removes every session with expires_at at or before now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return tag.RowsAffected(), nil
}

var (
	_ identity.SessionStore         = (*SessionStore)(nil)
	_ identity.ExpiredSessionPurger = (*SessionStore)(nil)
)
