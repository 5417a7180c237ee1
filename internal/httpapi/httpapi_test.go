// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/identityd/internal/clock"
	"github.com/holomush/identityd/internal/httpapi"
	"github.com/holomush/identityd/internal/identity"
	"github.com/holomush/identityd/internal/identity/memory"
	"github.com/holomush/identityd/internal/idgen"
	"github.com/holomush/identityd/internal/observability"
	"github.com/holomush/identityd/internal/password"
	"github.com/holomush/identityd/internal/query"
)

var fixedNow = time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)

type apiEnv struct {
	handler http.Handler
	users   *memory.UserRepository
	clock   *clock.Manual
	metrics *observability.HTTPMetrics
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	hasher, err := password.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	env := &apiEnv{
		users:   memory.NewUserRepository(),
		clock:   clock.NewManual(fixedNow),
		metrics: observability.NewHTTPMetrics(prometheus.NewRegistry()),
	}
	svc, err := identity.NewService(identity.Config{SessionTTL: time.Hour}, identity.Deps{
		Users:    env.users,
		Sessions: memory.NewSessionStore(),
		Hasher:   hasher,
		IDs:      idgen.NewToken(),
		Clock:    env.clock,
	})
	require.NoError(t, err)

	env.handler = httpapi.NewRouter(httpapi.Deps{
		Identity: svc,
		Queries:  query.NewAnswerer(env.clock),
		Metrics:  env.metrics,
	})
	return env
}

type call struct {
	method  string
	path    string
	body    any
	token   string
	cookies []*http.Cookie
}

func (e *apiEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	switch v := c.body.(type) {
	case nil:
	case string:
		body.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&body).Encode(v))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set(httpapi.SessionHeader, c.token)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type loginBody struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	ExpiresAt string `json:"expires_at"`
}

func (e *apiEnv) register(t *testing.T, email, pw string) string {
	t.Helper()
	rec := e.do(t, call{method: http.MethodPost, path: "/users", body: map[string]string{"email": email, "password": pw}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[map[string]string](t, rec)["user_id"]
}

func (e *apiEnv) login(t *testing.T, email, pw string) loginBody {
	t.Helper()
	rec := e.do(t, call{method: http.MethodPost, path: "/login", body: map[string]string{"email": email, "password": pw}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[loginBody](t, rec)
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody[httpapi.ErrorBody](t, rec)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestCreateUser(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, call{method: http.MethodPost, path: "/users",
		body: map[string]string{"email": "  Alice@Example.COM ", "password": "pw"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.NotEmpty(t, body["user_id"])
	assert.Equal(t, "alice@example.com", body["email"])

	t.Run("duplicate is a conflict", func(t *testing.T) {
		rec := env.do(t, call{method: http.MethodPost, path: "/users",
			body: map[string]string{"email": "alice@example.com", "password": "other"}})
		assertError(t, rec, http.StatusConflict, httpapi.CodeUserExists)
	})

	t.Run("empty fields are rejected", func(t *testing.T) {
		rec := env.do(t, call{method: http.MethodPost, path: "/users",
			body: map[string]string{"email": "", "password": "pw"}})
		assertError(t, rec, http.StatusBadRequest, httpapi.CodeInvalidRequest)
	})

	t.Run("password longer than bcrypt accepts is rejected", func(t *testing.T) {
		rec := env.do(t, call{method: http.MethodPost, path: "/users",
			body: map[string]string{"email": "long@example.com", "password": strings.Repeat("p", 80)}})
		assertError(t, rec, http.StatusBadRequest, httpapi.CodeInvalidRequest)
		_, err := env.users.GetByEmail(context.Background(), "long@example.com")
		assert.ErrorIs(t, err, identity.ErrNotFound)
	})

	t.Run("malformed JSON is rejected", func(t *testing.T) {
		rec := env.do(t, call{method: http.MethodPost, path: "/users", body: "{not json"})
		assertError(t, rec, http.StatusBadRequest, httpapi.CodeInvalidRequest)
	})
}

func TestLogin(t *testing.T) {
	env := newAPIEnv(t)
	userID := env.register(t, "bob@example.com", "secret")

	rec := env.do(t, call{method: http.MethodPost, path: "/login",
		body: map[string]string{"email": "BOB@example.com", "password": "secret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[loginBody](t, rec)
	assert.Equal(t, userID, body.UserID)
	assert.Len(t, body.SessionID, 43)
	assert.Equal(t, "2026-02-08T13:00:00Z", body.ExpiresAt)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, httpapi.SessionCookie, cookies[0].Name)
	assert.Equal(t, body.SessionID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := env.do(t, call{method: http.MethodPost, path: "/login",
			body: map[string]string{"email": "bob@example.com", "password": "nope"}})
		unknown := env.do(t, call{method: http.MethodPost, path: "/login",
			body: map[string]string{"email": "nobody@example.com", "password": "secret"}})

		assertError(t, wrong, http.StatusUnauthorized, httpapi.CodeInvalidCredentials)
		assertError(t, unknown, http.StatusUnauthorized, httpapi.CodeInvalidCredentials)
		assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	})

	t.Run("disabled user gets invalid credentials", func(t *testing.T) {
		require.NoError(t, env.users.Create(context.Background(), identity.User{
			UserID:       "disabled-1",
			Email:        "carol@example.com",
			PasswordHash: "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinv",
			IsActive:     false,
		}))
		rec := env.do(t, call{method: http.MethodPost, path: "/login",
			body: map[string]string{"email": "carol@example.com", "password": "whatever"}})
		assertError(t, rec, http.StatusUnauthorized, httpapi.CodeInvalidCredentials)
	})
}

func TestSessionLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	userID := env.register(t, "dave@example.com", "pw")
	session := env.login(t, "dave@example.com", "pw")

	rec := env.do(t, call{method: http.MethodGet, path: "/me", token: session.SessionID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"user_id": userID, "email": "dave@example.com"},
		decodeBody[map[string]string](t, rec))

	rec = env.do(t, call{method: http.MethodPost, path: "/logout", token: session.SessionID})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = env.do(t, call{method: http.MethodGet, path: "/me", token: session.SessionID})
	assertError(t, rec, http.StatusUnauthorized, httpapi.CodeUnauthorized)

	t.Run("logout of unknown session succeeds", func(t *testing.T) {
		rec := env.do(t, call{method: http.MethodPost, path: "/logout", token: session.SessionID})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestCookieCarrier(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "erin@example.com", "pw")
	rec := env.do(t, call{method: http.MethodPost, path: "/login",
		body: map[string]string{"email": "erin@example.com", "password": "pw"}})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	rec = env.do(t, call{method: http.MethodGet, path: "/me", cookies: cookies})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, call{method: http.MethodPost, path: "/logout", cookies: cookies})
	require.Equal(t, http.StatusNoContent, rec.Code)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, httpapi.SessionCookie, cleared[0].Name)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestHeaderTakesPrecedenceOverCookie(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "fay@example.com", "pw")
	session := env.login(t, "fay@example.com", "pw")

	rec := env.do(t, call{
		method:  http.MethodGet,
		path:    "/me",
		token:   session.SessionID,
		cookies: []*http.Cookie{{Name: httpapi.SessionCookie, Value: "stale"}},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthorizedRequests(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name string
		c    call
	}{
		{"me without token", call{method: http.MethodGet, path: "/me"}},
		{"me with unknown token", call{method: http.MethodGet, path: "/me", token: "bogus"}},
		{"logout without token", call{method: http.MethodPost, path: "/logout"}},
		{"query without token", call{method: http.MethodPost, path: "/query", body: map[string]string{"text": "hi"}}},
		{"query with unknown token", call{method: http.MethodPost, path: "/query", token: "bogus", body: map[string]string{"text": "hi"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertError(t, env.do(t, tt.c), http.StatusUnauthorized, httpapi.CodeUnauthorized)
		})
	}
}

func TestExpiredSessionIsUnauthorized(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "gus@example.com", "pw")
	session := env.login(t, "gus@example.com", "pw")

	env.clock.Advance(time.Hour)

	rec := env.do(t, call{method: http.MethodGet, path: "/me", token: session.SessionID})
	assertError(t, rec, http.StatusUnauthorized, httpapi.CodeUnauthorized)
}

func TestQuery(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "hal@example.com", "pw")
	session := env.login(t, "hal@example.com", "pw")

	rec := env.do(t, call{method: http.MethodPost, path: "/query", token: session.SessionID,
		body: map[string]string{"text": " what time is it "}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "Echo: what time is it", body["answer"])
	createdAt, err := time.Parse(time.RFC3339Nano, body["created_at"])
	require.NoError(t, err)
	assert.True(t, createdAt.Equal(fixedNow))

	t.Run("blank text is rejected", func(t *testing.T) {
		rec := env.do(t, call{method: http.MethodPost, path: "/query", token: session.SessionID,
			body: map[string]string{"text": "   "}})
		assertError(t, rec, http.StatusBadRequest, httpapi.CodeInvalidRequest)
	})
}

func TestRequestMetrics(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "ivy@example.com", "pw")
	env.do(t, call{method: http.MethodGet, path: "/me"})
	env.do(t, call{method: http.MethodGet, path: "/no-such-route"})

	counter := env.metrics.RequestsTotal
	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues("POST", "/users", "201")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues("GET", "/me", "401")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues("GET", "unmatched", "404")), 0)
}

// failingIdentity reports a storage outage on every call.
type failingIdentity struct{ err error }

func (f failingIdentity) CreateUser(context.Context, identity.CreateUserCmd) (identity.User, error) {
	return identity.User{}, f.err
}

func (f failingIdentity) Login(context.Context, identity.LoginCmd) (identity.AuthResult, error) {
	return identity.AuthResult{}, f.err
}

func (f failingIdentity) Logout(context.Context, identity.LogoutCmd) error { return f.err }

func (f failingIdentity) AuthenticateSession(context.Context, string) (string, error) {
	return "", f.err
}

func (f failingIdentity) GetUser(context.Context, string) (identity.User, error) {
	return identity.User{}, f.err
}

func TestPortFailuresAreInternalErrors(t *testing.T) {
	outage := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	env := &apiEnv{handler: httpapi.NewRouter(httpapi.Deps{
		Identity: failingIdentity{err: outage},
		Queries:  query.NewAnswerer(clock.NewManual(fixedNow)),
	})}
	creds := map[string]string{"email": "x@example.com", "password": "pw"}

	tests := []struct {
		name string
		c    call
	}{
		{"create user", call{method: http.MethodPost, path: "/users", body: creds}},
		{"login", call{method: http.MethodPost, path: "/login", body: creds}},
		{"logout", call{method: http.MethodPost, path: "/logout", token: "t"}},
		{"me", call{method: http.MethodGet, path: "/me", token: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.c)
			assertError(t, rec, http.StatusInternalServerError, httpapi.CodeInternal)
			assert.False(t, strings.Contains(rec.Body.String(), "10.0.0.5"), "details must not leak")
		})
	}
}
