// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package redis implements identity.SessionStore on Redis.
// Keys carry a TTL matching the session lifetime, so Redis evicts expired
// sessions on its own and no sweep is needed.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/identity"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "identityd:session:"

// Client is the subset of *goredis.Client used by SessionStore.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// record is the JSON value stored per session.
type record struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore implements identity.SessionStore using Redis.
type SessionStore struct {
	client Client
	prefix string
}

// NewSessionStore creates a SessionStore. An empty prefix means DefaultPrefix.
func NewSessionStore(client Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + identity.HashSessionToken(sessionID)
}

// Create stores a session with a TTL of ExpiresAt - CreatedAt.
// An existing key is never overwritten.
func (s *SessionStore) Create(ctx context.Context, session identity.Session) error {
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return oops.Code("SESSION_CREATE_FAILED").
			With("user_id", session.UserID).
			Errorf("session expires before it is created")
	}

	payload, err := json.Marshal(record{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("operation", "encode session").Wrap(err)
	}

	created, err := s.client.SetNX(ctx, s.key(session.SessionID), payload, ttl).Result()
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "set session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	if !created {
		return oops.Code("SESSION_CREATE_FAILED").
			With("user_id", session.UserID).
			Errorf("session token already in use")
	}
	return nil
}

// Get retrieves a session by token.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (identity.Session, error) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return identity.Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return identity.Session{}, oops.Code("SESSION_GET_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return identity.Session{}, oops.Code("SESSION_GET_FAILED").
			With("operation", "decode session").
			Wrap(err)
	}
	return identity.Session{
		SessionID: sessionID,
		UserID:    rec.UserID,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Delete removes a session. Deleting an absent key is not an error.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

var (
	_ identity.SessionStore = (*SessionStore)(nil)
	_ Client                = (*goredis.Client)(nil)
)
