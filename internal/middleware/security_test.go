package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithSecurityHeaders(isSecure bool) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	NewSecurityHeadersMiddleware(isSecure).Handler(next).ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeadersSetOnEveryResponse(t *testing.T) {
	rec := serveWithSecurityHeaders(true)

	want := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"X-XSS-Protection":       "1; mode=block",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}

	// The handler must still run normally underneath.
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("response = %d %q, middleware should be transparent", rec.Code, rec.Body.String())
	}
}

func TestSecurityHeadersHSTS(t *testing.T) {
	hsts := serveWithSecurityHeaders(true).Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=") || !strings.Contains(hsts, "includeSubDomains") {
		t.Errorf("production HSTS = %q", hsts)
	}

	// Plain-HTTP development must not advertise HSTS.
	if hsts := serveWithSecurityHeaders(false).Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("development HSTS = %q, want unset", hsts)
	}
}

func TestSecurityHeadersCSP(t *testing.T) {
	csp := serveWithSecurityHeaders(true).Header().Get("Content-Security-Policy")

	for _, directive := range []string{
		"default-src 'none'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		// Photo URLs in API responses point at R2 or data URIs.
		"img-src 'self' data: https:",
	} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP missing %q: %s", directive, csp)
		}
	}
}
