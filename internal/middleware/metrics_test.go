package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func callMetricsAuth(mw *MetricsAuthMiddleware, setAuth func(*http.Request)) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics data"))
	})

	req := httptest.NewRequest("GET", "/metrics", nil)
	if setAuth != nil {
		setAuth(req)
	}
	rec := httptest.NewRecorder()
	mw.Handler(next).ServeHTTP(rec, req)
	return rec
}

func TestMetricsAuth(t *testing.T) {
	mw := NewMetricsAuthMiddleware("admin", "secret123")

	tests := []struct {
		name     string
		setAuth  func(*http.Request)
		wantCode int
	}{
		{"valid credentials", func(r *http.Request) { r.SetBasicAuth("admin", "secret123") }, http.StatusOK},
		{"no credentials", nil, http.StatusUnauthorized},
		{"wrong username", func(r *http.Request) { r.SetBasicAuth("other", "secret123") }, http.StatusUnauthorized},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("admin", "nope") }, http.StatusUnauthorized},
		{"empty credentials", func(r *http.Request) { r.SetBasicAuth("", "") }, http.StatusUnauthorized},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Basic !!!") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := callMetricsAuth(mw, tt.setAuth)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="metrics"` {
					t.Errorf("WWW-Authenticate = %q", got)
				}
			}
		})
	}
}

func TestMetricsAuthDisabledWithoutCredentials(t *testing.T) {
	mw := NewMetricsAuthMiddleware("", "")

	rec := callMetricsAuth(mw, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", rec.Code)
	}
	if rec.Body.String() != "metrics data" {
		t.Errorf("body = %q, handler should have run", rec.Body.String())
	}
}
