// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/identityd/pkg/errutil"
)

// dummyPasswordHash is verified against when an email is unknown so that the
// response time does not reveal whether the account exists. It never matches.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Config holds service settings.
type Config struct {
	// SessionTTL is the lifetime of a new session. Zero means DefaultSessionTTL.
	SessionTTL time.Duration
}

// Deps are the ports the service is composed from. All are required.
type Deps struct {
	Users    UserRepository
	Sessions SessionStore
	Hasher   PasswordHasher
	IDs      IDGenerator
	Clock    Clock
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables outcome counters.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Service orchestrates the identity use cases over its ports.
// It holds no mutable state of its own and is safe for concurrent use
// as long as its ports are.
type Service struct {
	ttl      time.Duration
	users    UserRepository
	sessions SessionStore
	hasher   PasswordHasher
	ids      IDGenerator
	clock    Clock
	logger   *slog.Logger
	metrics  *Metrics
}

// NewService creates a new Service.
func NewService(cfg Config, deps Deps, opts ...Option) (*Service, error) {
	switch {
	case deps.Users == nil:
		return nil, oops.Code("IDENTITY_SERVICE_INVALID").Errorf("users repository is required")
	case deps.Sessions == nil:
		return nil, oops.Code("IDENTITY_SERVICE_INVALID").Errorf("session store is required")
	case deps.Hasher == nil:
		return nil, oops.Code("IDENTITY_SERVICE_INVALID").Errorf("password hasher is required")
	case deps.IDs == nil:
		return nil, oops.Code("IDENTITY_SERVICE_INVALID").Errorf("id generator is required")
	case deps.Clock == nil:
		return nil, oops.Code("IDENTITY_SERVICE_INVALID").Errorf("clock is required")
	}

	ttl := cfg.SessionTTL
	if ttl < 0 {
		return nil, oops.Code("IDENTITY_SERVICE_INVALID").
			With("session_ttl", ttl.String()).
			Errorf("session TTL must be positive")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}

	s := &Service{
		ttl:      ttl,
		users:    deps.Users,
		sessions: deps.Sessions,
		hasher:   deps.Hasher,
		ids:      deps.IDs,
		clock:    deps.Clock,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionTTL returns the lifetime given to new sessions.
func (s *Service) SessionTTL() time.Duration {
	return s.ttl
}

// CreateUser registers a new active user under the normalized email.
func (s *Service) CreateUser(ctx context.Context, cmd CreateUserCmd) (User, error) {
	email := NormalizeEmail(cmd.Email)
	if email == "" {
		s.metrics.registration(resultInvalidInput)
		return User{}, invalidInput("email must not be empty")
	}
	if cmd.Password == "" {
		s.metrics.registration(resultInvalidInput)
		return User{}, invalidInput("password must not be empty")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.metrics.registration(resultExists)
		return User{}, userAlreadyExists(email)
	case !errors.Is(err, ErrNotFound):
		s.metrics.registration(resultError)
		return User{}, s.portFailure(ctx, "get user by email", err)
	}

	userID, err := s.ids.NewID()
	if err != nil {
		s.metrics.registration(resultError)
		return User{}, s.portFailure(ctx, "generate user id", err)
	}

	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			s.metrics.registration(resultInvalidInput)
			return User{}, invalidInput("password exceeds the hasher length limit")
		}
		s.metrics.registration(resultError)
		return User{}, s.portFailure(ctx, "hash password", err)
	}

	user := User{
		UserID:       userID,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			// Lost a concurrent registration race for the same email.
			s.metrics.registration(resultExists)
			return User{}, userAlreadyExists(email)
		}
		s.metrics.registration(resultError)
		return User{}, s.portFailure(ctx, "create user", err)
	}

	s.metrics.registration(resultSuccess)
	s.logger.InfoContext(ctx, "user registered", "user_id", user.UserID)
	return user, nil
}

// Login verifies credentials and creates a new session.
// An unknown email and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, cmd LoginCmd) (AuthResult, error) {
	email := NormalizeEmail(cmd.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.metrics.login(resultError)
			return AuthResult{}, s.portFailure(ctx, "get user by email", err)
		}
		// Burn the same verification cost as a real account.
		_, _ = s.hasher.Verify(cmd.Password, dummyPasswordHash) //nolint:errcheck // result is irrelevant
		s.metrics.login(resultInvalidCredentials)
		s.logger.WarnContext(ctx, "login rejected", "email", email, "reason", "unknown email")
		return AuthResult{}, invalidCredentials()
	}

	if !user.IsActive {
		// Same verification cost as an enabled account; the outcome is ignored.
		_, _ = s.hasher.Verify(cmd.Password, user.PasswordHash) //nolint:errcheck // result is irrelevant
		s.metrics.login(resultDisabled)
		s.logger.WarnContext(ctx, "login rejected", "user_id", user.UserID, "reason", "user disabled")
		return AuthResult{}, oops.Code(CodeUserDisabled).
			With("user_id", user.UserID).
			Wrap(ErrUserDisabled)
	}

	valid, err := s.hasher.Verify(cmd.Password, user.PasswordHash)
	if err != nil {
		s.metrics.login(resultError)
		return AuthResult{}, s.portFailure(ctx, "verify password", err, "user_id", user.UserID)
	}
	if !valid {
		s.metrics.login(resultInvalidCredentials)
		s.logger.WarnContext(ctx, "login rejected", "user_id", user.UserID, "reason", "wrong password")
		return AuthResult{}, invalidCredentials()
	}

	now := s.clock.Now()
	sessionID, err := s.ids.NewID()
	if err != nil {
		s.metrics.login(resultError)
		return AuthResult{}, s.portFailure(ctx, "generate session id", err)
	}

	session := Session{
		SessionID: sessionID,
		UserID:    user.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		s.metrics.login(resultError)
		return AuthResult{}, s.portFailure(ctx, "create session", err, "user_id", user.UserID)
	}

	s.metrics.login(resultSuccess)
	s.logger.InfoContext(ctx, "user logged in",
		"user_id", user.UserID,
		"session", tokenPrefix(sessionID),
		"expires_at", session.ExpiresAt,
	)
	return AuthResult{
		UserID:    user.UserID,
		SessionID: sessionID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Logout deletes a session. Returns ErrSessionNotFound if it does not exist;
// transports are expected to treat that as success.
func (s *Service) Logout(ctx context.Context, cmd LogoutCmd) error {
	if cmd.SessionID == "" {
		s.metrics.logout(resultMissing)
		return sessionNotFound()
	}

	session, err := s.sessions.Get(ctx, cmd.SessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.logout(resultMissing)
			return sessionNotFound()
		}
		s.metrics.logout(resultError)
		return s.portFailure(ctx, "get session", err)
	}

	if err := s.sessions.Delete(ctx, cmd.SessionID); err != nil {
		s.metrics.logout(resultError)
		return s.portFailure(ctx, "delete session", err, "user_id", session.UserID)
	}

	s.metrics.logout(resultSuccess)
	s.logger.InfoContext(ctx, "user logged out",
		"user_id", session.UserID,
		"session", tokenPrefix(cmd.SessionID),
	)
	return nil
}

// AuthenticateSession resolves a session token to its user ID.
// Expired sessions are deleted on access and reported exactly like absent ones.
func (s *Service) AuthenticateSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		s.metrics.auth(resultMissing)
		return "", sessionNotFound()
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.auth(resultMissing)
			return "", sessionNotFound()
		}
		s.metrics.auth(resultError)
		return "", s.portFailure(ctx, "get session", err)
	}

	now := s.clock.Now()
	if session.IsExpiredAt(now) {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			// The session is unusable either way; the next access retries the delete.
			errutil.LogError(ctx, s.logger, "failed to evict expired session", err,
				"session", tokenPrefix(sessionID))
		}
		s.metrics.auth(resultExpired)
		return "", sessionNotFound()
	}

	s.metrics.auth(resultSuccess)
	return session.UserID, nil
}

// GetUser looks up a user by ID.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, userNotFound(userID)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, userNotFound(userID)
		}
		return User{}, s.portFailure(ctx, "get user by id", err, "user_id", userID)
	}
	return user, nil
}

// portFailure logs and wraps an adapter failure.
func (s *Service) portFailure(ctx context.Context, operation string, err error, attrs ...any) error {
	errutil.LogError(ctx, s.logger, "identity port failure", err, append([]any{"operation", operation}, attrs...)...)
	return oops.Code(CodePortFailed).
		With("operation", operation).
		Wrap(err)
}

func invalidInput(msg string) error {
	return oops.Code(CodeInvalidInput).Wrapf(ErrInvalidInput, "%s", msg)
}

func userAlreadyExists(email string) error {
	return oops.Code(CodeUserAlreadyExists).
		With("email", email).
		Wrap(ErrUserAlreadyExists)
}

func userNotFound(userID string) error {
	return oops.Code(CodeUserNotFound).
		With("user_id", userID).
		Wrap(ErrUserNotFound)
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func sessionNotFound() error {
	return oops.Code(CodeSessionNotFound).Wrap(ErrSessionNotFound)
}
