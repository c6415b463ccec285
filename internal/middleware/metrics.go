package middleware

import (
	"crypto/subtle"
	"net/http"
)

// MetricsAuthMiddleware puts HTTP basic auth in front of /metrics. Leaving
// both credentials empty disables the check, which is the development
// default.
type MetricsAuthMiddleware struct {
	username string
	password string
}

func NewMetricsAuthMiddleware(username, password string) *MetricsAuthMiddleware {
	return &MetricsAuthMiddleware{username: username, password: password}
}

// Handler enforces basic auth when credentials are configured.
func (m *MetricsAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.username == "" && m.password == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || !m.credentialsMatch(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// credentialsMatch compares both fields in constant time, and always
// compares both so a wrong username costs the same as a wrong password.
func (m *MetricsAuthMiddleware) credentialsMatch(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(m.username))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(m.password))
	return userOK&passOK == 1
}
