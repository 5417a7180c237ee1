// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestServer_Metrics(t *testing.T) {
	registry := NewRegistry()
	metrics := NewHTTPMetrics(registry)
	metrics.RequestsTotal.WithLabelValues("POST", "/login", "200").Inc()
	metrics.RequestDuration.WithLabelValues("POST", "/login").Observe(0.01)

	code, body := get(t, NewServer("", registry, nil, nil).Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")
	assert.Contains(t, body, `identityd_http_requests_total{method="POST",route="/login",status="200"} 1`)
	assert.Contains(t, body, "identityd_http_request_duration_seconds")
}

func TestServer_Liveness(t *testing.T) {
	code, body := get(t, NewServer("", NewRegistry(), nil, nil).Handler(), "/healthz/liveness")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checks   map[string]ReadinessChecker
		wantCode int
		wantBody string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"all pass", map[string]ReadinessChecker{"postgres": ok, "redis": ok}, http.StatusOK, "ok"},
		{"one fails", map[string]ReadinessChecker{"postgres": ok, "redis": down}, http.StatusServiceUnavailable, "not ready: redis"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, NewServer("", NewRegistry(), tt.checks, nil).Handler(), "/healthz/readiness")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(body))
		})
	}
}

func TestServer_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := NewServer("127.0.0.1:0", NewRegistry(), nil, nil)
	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	_, err = server.Start()
	require.Error(t, err, "second start must fail")

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + server.Addr() + "/healthz/liveness")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
	require.NoError(t, server.Stop(ctx), "stop is idempotent")

	_, open := <-errCh
	assert.False(t, open, "error channel closes on graceful stop")
}

func TestServer_StartInvalidAddr(t *testing.T) {
	_, err := NewServer("256.0.0.1:bad", NewRegistry(), nil, nil).Start()
	require.Error(t, err)
}
