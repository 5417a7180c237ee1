// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/holomush/identityd/internal/identity"
	"github.com/holomush/identityd/internal/query"
	"github.com/holomush/identityd/pkg/errutil"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type loginResponse struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

type queryRequest struct {
	Text string `json:"text"`
}

type queryResponse struct {
	Answer    string `json:"answer"`
	CreatedAt string `json:"created_at"`
}

type handlers struct {
	identity     IdentityService
	queries      QueryAnswerer
	logger       *slog.Logger
	secureCookie bool
}

// decode reads a JSON body into v, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "malformed JSON body")
		return false
	}
	return true
}

// POST /users
func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.identity.CreateUser(r.Context(), identity.CreateUserCmd{
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, userResponse{UserID: user.UserID, Email: user.Email})
	case errors.Is(err, identity.ErrUserAlreadyExists):
		writeError(w, http.StatusConflict, CodeUserExists, "user already exists")
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "email and password must be non-empty and the password within length limits")
	default:
		errutil.LogError(r.Context(), h.logger, "create user failed", err)
		writeInternalError(w)
	}
}

// POST /login
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.identity.Login(r.Context(), identity.LoginCmd{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		// Disabled accounts are indistinguishable from bad credentials.
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrUserDisabled) {
			writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials")
			return
		}
		errutil.LogError(r.Context(), h.logger, "login failed", err)
		writeInternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    result.SessionID,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		UserID:    result.UserID,
		SessionID: result.SessionID,
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// POST /logout
func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	token := SessionToken(r)
	if token == "" {
		writeUnauthorized(w, "missing session token")
		return
	}

	err := h.identity.Logout(r.Context(), identity.LogoutCmd{SessionID: token})
	if err != nil && !errors.Is(err, identity.ErrSessionNotFound) {
		errutil.LogError(r.Context(), h.logger, "logout failed", err)
		writeInternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// GET /me
func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	user, err := h.identity.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			// Session outlived its user.
			writeUnauthorized(w, "invalid session")
			return
		}
		errutil.LogError(r.Context(), h.logger, "get user failed", err,
			"user_id", userID)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{UserID: user.UserID, Email: user.Email})
}

// POST /query
func (h *handlers) query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decode(w, r, &req) {
		return
	}

	answer, err := h.queries.Answer(req.Text)
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, CodeInvalidRequest, "query text cannot be empty")
			return
		}
		userID, _ := UserIDFromContext(r.Context())
		errutil.LogError(r.Context(), h.logger, "query failed", err, "user_id", userID)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer.Text,
		CreatedAt: answer.CreatedAt.Format(time.RFC3339Nano),
	})
}
