// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultSessionTTL is how long a session stays usable when no TTL is configured.
const DefaultSessionTTL = 12 * time.Hour

// Session is an authenticated session identified by an opaque token.
type Session struct {
	SessionID string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpiredAt reports whether the session is unusable at t.
// A session is usable strictly before ExpiresAt.
func (s Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// LoginCmd requests a new session for the given credentials.
type LoginCmd struct {
	Email    string
	Password string
}

// LogoutCmd requests deletion of a session.
type LogoutCmd struct {
	SessionID string
}

// AuthResult is returned by a successful login.
type AuthResult struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// SessionStore manages session persistence, keyed by session token.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session Session) error

	// Get retrieves a session by token. Returns ErrNotFound if absent.
	Get(ctx context.Context, sessionID string) (Session, error)

	// Delete removes a session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, sessionID string) error
}

// ExpiredSessionPurger is implemented by stores that can bulk-remove
// sessions whose expiry is at or before now.
type ExpiredSessionPurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// HashSessionToken computes the SHA-256 hex digest of a session token.
// Durable stores key on the digest so a leaked table does not leak live tokens.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// tokenPrefix returns a short, log-safe prefix of a session token.
func tokenPrefix(token string) string {
	const n = 6
	if len(token) <= n {
		return token
	}
	return token[:n]
}
