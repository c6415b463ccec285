// Package middleware holds the HTTP middleware the API composes around its
// handlers: session resolution, rate limiting, security headers, request
// logging and metrics auth.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/service"
)

const (
	// SessionCookieName carries the session token for browser clients.
	// API clients send the token as a Bearer Authorization header instead.
	SessionCookieName = "previsk_session"

	SessionCookiePath = "/"

	// SessionCookieMaxAge matches DefaultSessionDuration in the user
	// service: seven days, in seconds.
	SessionCookieMaxAge = 7 * 24 * 60 * 60
)

// AuthMiddleware resolves session tokens into users.
type AuthMiddleware struct {
	users    service.UserService
	logger   *slog.Logger
	isSecure bool // Secure flag on cookies, true outside development
}

func NewAuthMiddleware(users service.UserService, logger *slog.Logger, isSecure bool) *AuthMiddleware {
	return &AuthMiddleware{users: users, logger: logger, isSecure: isSecure}
}

// WithUser loads the user behind the request's session token, if any, into
// the context. The request always continues; RequireUser is what rejects
// the unauthenticated case.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetBySessionToken(r.Context(), token)
		if err != nil {
			// Stale token. Drop the cookie so the browser stops
			// sending it.
			if fromCookie {
				clearSessionCookie(w, m.isSecure)
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser rejects unauthenticated requests with 401. It belongs after
// WithUser in the chain.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return m.requireFunc(next, func(*domain.User) (int, string, string) {
		return 0, "", ""
	})
}

// RequireVerifiedEmail additionally insists the user has confirmed their
// address.
func (m *AuthMiddleware) RequireVerifiedEmail(next http.Handler) http.Handler {
	return m.requireFunc(next, func(u *domain.User) (int, string, string) {
		if !u.EmailVerified {
			return http.StatusForbidden, "forbidden", "email verification required"
		}
		return 0, "", ""
	})
}

// RequireAdmin additionally insists the user is an owner or admin.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.requireFunc(next, func(u *domain.User) (int, string, string) {
		if !u.IsAdmin() {
			return http.StatusForbidden, "forbidden", "administrator access required"
		}
		return 0, "", ""
	})
}

// requireFunc rejects missing users with 401, then applies check to decide
// whether the authenticated user gets through.
func (m *AuthMiddleware) requireFunc(next http.Handler, check func(*domain.User) (int, string, string)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		if status, code, msg := check(user); status != 0 {
			writeAuthError(w, status, code, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken pulls the token from the Authorization header or, failing
// that, the session cookie. fromCookie tells WithUser which source to clear
// on a stale token.
func sessionToken(r *http.Request) (token string, fromCookie bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(rest), false
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value, true
	}
	return "", false
}

// writeAuthError emits a minimal JSON error. The handler package's error
// envelope lives elsewhere; importing it here would cycle.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}

// SetSessionCookie installs the session cookie: HttpOnly always, Secure
// outside development, SameSite Lax so normal navigation keeps the session.
func SetSessionCookie(w http.ResponseWriter, token string, isSecure bool) {
	http.SetCookie(w, sessionCookie(token, SessionCookieMaxAge, isSecure))
}

// ClearSessionCookie expires the session cookie, used on logout.
func ClearSessionCookie(w http.ResponseWriter, isSecure bool) {
	clearSessionCookie(w, isSecure)
}

func clearSessionCookie(w http.ResponseWriter, isSecure bool) {
	http.SetCookie(w, sessionCookie("", -1, isSecure))
}

func sessionCookie(value string, maxAge int, isSecure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     SessionCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Stack composes middlewares into one, applied outermost-first:
//
//	stack := Stack(authMw.WithUser, authMw.RequireUser)
//	mux.Handle("GET /api/evaluations", stack(listHandler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
