package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, testLogger())

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request past the limit should be denied")
	}

	// Other keys have their own budget.
	if !rl.Allow("5.6.7.8") {
		t.Error("a different key should not be limited")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	rl := NewRateLimiter(1, 50*time.Millisecond, testLogger())

	rl.Allow("1.2.3.4")
	if rl.Allow("1.2.3.4") {
		t.Fatal("should be limited inside the window")
	}

	time.Sleep(60 * time.Millisecond)

	if !rl.Allow("1.2.3.4") {
		t.Error("should be allowed again after the window expires")
	}
}

func TestRateLimiterRecordFailure(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, testLogger())

	// Failures burn quota without denying anything.
	for i := 0; i < 3; i++ {
		rl.RecordFailure("1.2.3.4")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("failures should count against the limit")
	}
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, testLogger())

	rl.Allow("1.2.3.4")
	if rl.Allow("1.2.3.4") {
		t.Fatal("should be limited")
	}

	rl.Reset("1.2.3.4")
	if !rl.Allow("1.2.3.4") {
		t.Error("reset should clear the counter")
	}
}

func TestRateLimiterTimeUntilReset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, testLogger())

	if d := rl.TimeUntilReset("unknown"); d != 0 {
		t.Errorf("unknown key: TimeUntilReset = %v, want 0", d)
	}

	rl.Allow("1.2.3.4")
	if d := rl.TimeUntilReset("1.2.3.4"); d <= 0 || d > time.Minute {
		t.Errorf("TimeUntilReset = %v, want within (0, 1m]", d)
	}
}

func limitedRequest(t *testing.T, wrapped http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, testLogger())
	wrapped := NewRateLimitMiddleware(rl, testLogger()).Limit(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)

	for i := 0; i < 2; i++ {
		if rec := limitedRequest(t, wrapped, "9.9.9.9:1234", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}

	rec := limitedRequest(t, wrapped, "9.9.9.9:1234", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestRateLimitMiddlewareKeysByForwardedIP(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, testLogger())
	wrapped := NewRateLimitMiddleware(rl, testLogger()).Limit(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)

	// Same proxy address, different forwarded clients: separate budgets.
	xffA := map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}
	xffB := map[string]string{"X-Forwarded-For": "203.0.113.2, 10.0.0.1"}

	if rec := limitedRequest(t, wrapped, "10.0.0.1:1234", xffA); rec.Code != http.StatusOK {
		t.Fatalf("client A first request: status = %d", rec.Code)
	}
	if rec := limitedRequest(t, wrapped, "10.0.0.1:1234", xffB); rec.Code != http.StatusOK {
		t.Fatalf("client B should have its own budget: status = %d", rec.Code)
	}
	if rec := limitedRequest(t, wrapped, "10.0.0.1:1234", xffA); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("client A second request: status = %d, want 429", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr only", "192.0.2.7:5555", nil, "192.0.2.7"},
		{"remote addr without port", "192.0.2.7", nil, "192.0.2.7"},
		{"x-forwarded-for single", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "203.0.113.9"},
		{"x-forwarded-for chain", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.9, 70.41.3.18"}, "203.0.113.9"},
		{"x-real-ip", "10.0.0.1:80", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAuthRateLimiterFailedLogins(t *testing.T) {
	arl := NewAuthRateLimiter(testLogger())
	wrapped := arl.LimitLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < loginMaxAttempts; i++ {
		arl.RecordFailedLogin("192.0.2.1")
	}
	if rec := limitedRequest(t, wrapped, "192.0.2.1:1234", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after recorded failures", rec.Code)
	}

	// A successful login clears the slate.
	arl.ResetLogin("192.0.2.1")
	if rec := limitedRequest(t, wrapped, "192.0.2.1:1234", nil); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 after reset", rec.Code)
	}
}

func TestAuthRateLimiterRegister(t *testing.T) {
	arl := NewAuthRateLimiter(testLogger())
	wrapped := arl.LimitRegister(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < registerMaxAttempts; i++ {
		if rec := limitedRequest(t, wrapped, "192.0.2.2:1234", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	if rec := limitedRequest(t, wrapped, "192.0.2.2:1234", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestAuthRateLimiterPasswordReset(t *testing.T) {
	arl := NewAuthRateLimiter(testLogger())
	wrapped := arl.LimitPasswordReset(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < resetMaxAttempts; i++ {
		if rec := limitedRequest(t, wrapped, "192.0.2.3:1234", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	if rec := limitedRequest(t, wrapped, "192.0.2.3:1234", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}
