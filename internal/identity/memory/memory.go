// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides mutex-guarded in-memory identity adapters.
// Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/identity"
)

// UserRepository implements identity.UserRepository in memory.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]identity.User
	byEmail map[string]string
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]identity.User),
		byEmail: make(map[string]string),
	}
}

// Create stores a new user. The email check and insert happen under one lock.
func (r *UserRepository) Create(_ context.Context, user identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return oops.Code("USER_EMAIL_TAKEN").
			With("email", user.Email).
			Wrap(identity.ErrUserAlreadyExists)
	}
	if _, taken := r.byID[user.UserID]; taken {
		return oops.Code("USER_ID_TAKEN").
			With("user_id", user.UserID).
			Errorf("user id already in use")
	}

	r.byID[user.UserID] = user
	r.byEmail[user.Email] = user.UserID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, userID string) (identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[userID]
	if !ok {
		return identity.User{}, oops.Code("USER_NOT_FOUND").
			With("user_id", userID).
			Wrap(identity.ErrNotFound)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (identity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byEmail[email]
	if !ok {
		return identity.User{}, oops.Code("USER_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	return r.byID[userID], nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// SessionStore implements identity.SessionStore and
// identity.ExpiredSessionPurger in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]identity.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]identity.Session)}
}

// Create stores a new session. Token collisions are rejected rather than
// overwriting a live session.
func (s *SessionStore) Create(_ context.Context, session identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionID]; exists {
		return oops.Code("SESSION_CREATE_FAILED").Errorf("session token already in use")
	}
	s.sessions[session.SessionID] = session
	return nil
}

// Get retrieves a session by token.
func (s *SessionStore) Get(_ context.Context, sessionID string) (identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return identity.Session{}, oops.Code("SESSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	return session, nil
}

// Delete removes a session. Absent sessions are ignored.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// DeleteExpired removes every session expired at now.
func (s *SessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, session := range s.sessions {
		if session.IsExpiredAt(now) {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var (
	_ identity.UserRepository       = (*UserRepository)(nil)
	_ identity.SessionStore         = (*SessionStore)(nil)
	_ identity.ExpiredSessionPurger = (*SessionStore)(nil)
)
