// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the identity service over JSON/HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/holomush/identityd/internal/identity"
	"github.com/holomush/identityd/internal/observability"
	"github.com/holomush/identityd/internal/query"
)

// IdentityService is the subset of identity.Service the API calls.
type IdentityService interface {
	CreateUser(ctx context.Context, cmd identity.CreateUserCmd) (identity.User, error)
	Login(ctx context.Context, cmd identity.LoginCmd) (identity.AuthResult, error)
	Logout(ctx context.Context, cmd identity.LogoutCmd) error
	AuthenticateSession(ctx context.Context, sessionID string) (string, error)
	GetUser(ctx context.Context, userID string) (identity.User, error)
}

// QueryAnswerer answers authenticated queries.
type QueryAnswerer interface {
	Answer(text string) (query.Answer, error)
}

// Deps are the collaborators of the router. Identity and Queries are required.
type Deps struct {
	Identity IdentityService
	Queries  QueryAnswerer
	Metrics  *observability.HTTPMetrics
	Logger   *slog.Logger

	// SecureCookie marks the session cookie Secure; enable behind TLS.
	SecureCookie bool
}

// NewRouter builds the API handler.
//
// Middleware order: instrument, recoverer, then per-route session checks.
// recoverer sits inside instrument so recovered panics are counted as 500s.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{
		identity:     deps.Identity,
		queries:      deps.Queries,
		logger:       logger,
		secureCookie: deps.SecureCookie,
	}

	r := chi.NewRouter()
	r.Use(instrument(logger, deps.Metrics))
	r.Use(recoverer(logger))

	r.Post("/users", h.createUser)
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(requireSession(deps.Identity, logger))
		r.Get("/me", h.me)
		r.Post("/query", h.query)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}
