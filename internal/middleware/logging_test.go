package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// loggedOutput runs one request through the logging middleware and returns
// what was written to the log.
func loggedOutput(t *testing.T, target string, status int, headers map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))
	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest("GET", target, nil)
	req.RemoteAddr = "192.168.1.1:12345"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	return buf.String()
}

func TestRequestLoggingIncludesRequestDetails(t *testing.T) {
	out := loggedOutput(t, "/dashboard", http.StatusOK, map[string]string{
		"User-Agent": "Mozilla/5.0 TestBrowser",
	})

	for _, want := range []string{"GET", "/dashboard", "200", "duration", "TestBrowser"} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
}

func TestRequestLoggingUsesForwardedClientIP(t *testing.T) {
	out := loggedOutput(t, "/api/data", http.StatusOK, map[string]string{
		"X-Forwarded-For": "203.0.113.195",
	})

	if !strings.Contains(out, "203.0.113.195") {
		t.Errorf("log should use the forwarded client IP, got: %s", out)
	}
}

func TestRequestLoggingWarnsOnServerErrors(t *testing.T) {
	out := loggedOutput(t, "/api/action", http.StatusInternalServerError, nil)

	if !strings.Contains(out, "500") {
		t.Errorf("log should contain the status, got: %s", out)
	}
	if !strings.Contains(out, "level=WARN") {
		t.Errorf("5xx responses should log at WARN, got: %s", out)
	}
}

func TestRequestLoggingCapturesWrittenStatus(t *testing.T) {
	out := loggedOutput(t, "/missing", http.StatusNotFound, nil)

	if !strings.Contains(out, "404") {
		t.Errorf("log should contain the handler's status, got: %s", out)
	}
}

func TestRequestLoggingRedactsTokens(t *testing.T) {
	// Verification and reset links put single-use tokens in the query
	// string; they must never land in the logs.
	tests := []struct {
		target string
		secret string
	}{
		{"/verify-email?token=secrettoken123", "secrettoken123"},
		{"/reset-password?token=abc123secret", "abc123secret"},
	}

	for _, tt := range tests {
		out := loggedOutput(t, tt.target, http.StatusOK, nil)
		if strings.Contains(out, tt.secret) {
			t.Errorf("log leaked token from %s: %s", tt.target, out)
		}
		if path := strings.SplitN(tt.target, "?", 2)[0]; !strings.Contains(out, path) {
			t.Errorf("log should still contain the path %s, got: %s", path, out)
		}
	}
}

func TestRequestLoggingSkipsNoisyEndpoints(t *testing.T) {
	for _, target := range []string{"/health", "/metrics", "/static/app.css"} {
		if out := loggedOutput(t, target, http.StatusOK, nil); out != "" {
			t.Errorf("%s should not be logged, got: %s", target, out)
		}
	}
}

func TestRequestLoggingPassesResponseThrough(t *testing.T) {
	var buf bytes.Buffer
	mw := NewRequestLoggingMiddleware(slog.New(slog.NewTextHandler(&buf, nil)))

	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("response body"))
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("POST", "/create", nil))

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if rec.Header().Get("X-Custom") != "value" {
		t.Error("response headers should pass through unchanged")
	}
	if rec.Body.String() != "response body" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "response body")
	}
}
