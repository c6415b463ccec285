package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
)

var errMockNotImplemented = errors.New("not implemented")

// mockUserService satisfies service.UserService; only GetBySessionToken is
// configurable since that is all the auth middleware calls.
type mockUserService struct {
	GetBySessionTokenFunc func(ctx context.Context, token string) (*domain.User, error)
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errMockNotImplemented
}

func (m *mockUserService) Register(context.Context, domain.RegisterParams) (*domain.User, error) {
	return nil, errMockNotImplemented
}

func (m *mockUserService) Login(context.Context, string, string) (*domain.LoginResult, error) {
	return nil, errMockNotImplemented
}

func (m *mockUserService) Logout(context.Context, string) error { return nil }

func (m *mockUserService) GetByID(context.Context, uuid.UUID) (*domain.User, error) {
	return nil, errMockNotImplemented
}

func (m *mockUserService) InviteUser(context.Context, *domain.User, domain.CreateUserParams) (*domain.User, error) {
	return nil, errMockNotImplemented
}

func (m *mockUserService) ListMembers(context.Context, *domain.User) ([]*domain.User, error) {
	return nil, errMockNotImplemented
}

func (m *mockUserService) ChangePassword(context.Context, uuid.UUID, string, string) error {
	return errMockNotImplemented
}

func (m *mockUserService) CreateEmailVerificationToken(context.Context, uuid.UUID) (string, error) {
	return "", errMockNotImplemented
}

func (m *mockUserService) VerifyEmail(context.Context, string) error { return errMockNotImplemented }

func (m *mockUserService) CreatePasswordResetToken(context.Context, string) (string, *domain.User, error) {
	return "", nil, errMockNotImplemented
}

func (m *mockUserService) ResetPassword(context.Context, string, string) error {
	return errMockNotImplemented
}

func (m *mockUserService) DeleteExpiredSessions(context.Context) error { return nil }

func newTestAuthMiddleware(mock *mockUserService) *AuthMiddleware {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthMiddleware(mock, logger, false)
}

// sessionFor builds a mock that accepts exactly one token.
func sessionFor(token string, user *domain.User) *mockUserService {
	return &mockUserService{
		GetBySessionTokenFunc: func(ctx context.Context, got string) (*domain.User, error) {
			if got != token {
				return nil, domain.Unauthorized("user.get_by_session_token", "invalid session")
			}
			return user, nil
		},
	}
}

func TestWithUserNoToken(t *testing.T) {
	mw := newTestAuthMiddleware(&mockUserService{})

	var sawUser *domain.User
	called := false
	wrapped := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		sawUser = auth.GetUser(r.Context())
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	if !called {
		t.Fatal("handler was not called")
	}
	if sawUser != nil {
		t.Errorf("expected nil user, got %+v", sawUser)
	}
}

func TestWithUserBearerToken(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "test@example.com"}
	mw := newTestAuthMiddleware(sessionFor("valid-token-123", user))

	var sawUser *domain.User
	wrapped := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUser = auth.GetUser(r.Context())
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer valid-token-123")
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	if sawUser == nil || sawUser.ID != user.ID {
		t.Errorf("expected user %v in context, got %+v", user.ID, sawUser)
	}
}

func TestWithUserSessionCookie(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "cookie@example.com"}
	mw := newTestAuthMiddleware(sessionFor("cookie-token", user))

	var sawUser *domain.User
	wrapped := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawUser = auth.GetUser(r.Context())
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	if sawUser == nil || sawUser.ID != user.ID {
		t.Errorf("expected user %v in context, got %+v", user.ID, sawUser)
	}
}

func TestWithUserStaleCookieIsCleared(t *testing.T) {
	mw := newTestAuthMiddleware(sessionFor("something-else", nil))

	called := false
	wrapped := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if user := auth.GetUser(r.Context()); user != nil {
			t.Errorf("expected nil user, got %+v", user)
		}
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "expired-token"})
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler was not called")
	}

	cleared := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected the stale session cookie to be cleared")
	}
}

func TestWithUserBadBearerTokenLeavesCookieAlone(t *testing.T) {
	mw := newTestAuthMiddleware(sessionFor("something-else", nil))
	wrapped := mw.WithUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName {
			t.Error("cookie should not be touched for header-based auth")
		}
	}
}

// guardStatus runs a guard middleware for the given context user and returns
// the resulting status.
func guardStatus(t *testing.T, guard func(http.Handler) http.Handler, user *domain.User) int {
	t.Helper()
	wrapped := guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/evaluations", nil)
	if user != nil {
		req = req.WithContext(auth.SetUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireUser(t *testing.T) {
	mw := newTestAuthMiddleware(&mockUserService{})

	if got := guardStatus(t, mw.RequireUser, nil); got != http.StatusUnauthorized {
		t.Errorf("unauthenticated: status = %d, want 401", got)
	}
	user := &domain.User{ID: uuid.New(), Email: "test@example.com"}
	if got := guardStatus(t, mw.RequireUser, user); got != http.StatusOK {
		t.Errorf("authenticated: status = %d, want 200", got)
	}
}

func TestRequireVerifiedEmail(t *testing.T) {
	mw := newTestAuthMiddleware(&mockUserService{})

	unverified := &domain.User{ID: uuid.New(), EmailVerified: false}
	if got := guardStatus(t, mw.RequireVerifiedEmail, unverified); got != http.StatusForbidden {
		t.Errorf("unverified: status = %d, want 403", got)
	}
	verified := &domain.User{ID: uuid.New(), EmailVerified: true}
	if got := guardStatus(t, mw.RequireVerifiedEmail, verified); got != http.StatusOK {
		t.Errorf("verified: status = %d, want 200", got)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		user       *domain.User
		wantStatus int
	}{
		{"owner passes", &domain.User{ID: uuid.New(), IsOwner: true}, http.StatusOK},
		{"admin role passes", &domain.User{ID: uuid.New(), Roles: []domain.Role{domain.RoleAdmin}}, http.StatusOK},
		{"legacy admin alias passes", &domain.User{ID: uuid.New(), Roles: []domain.Role{"admin_tenant"}}, http.StatusOK},
		{"observer is rejected", &domain.User{ID: uuid.New(), Roles: []domain.Role{domain.RoleObserver}}, http.StatusForbidden},
		{"no user is rejected", nil, http.StatusUnauthorized},
	}

	mw := newTestAuthMiddleware(&mockUserService{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guardStatus(t, mw.RequireAdmin, tt.user); got != tt.wantStatus {
				t.Errorf("status = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestStackAppliesMiddlewareInOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	stack := Stack(mw("first"), mw("second"))
	stack(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"first", "second", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}
