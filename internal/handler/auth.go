// This file implements authentication and account endpoints:
//
//	POST   /api/auth/register             -> Register (rate limited)
//	POST   /api/auth/login                -> Login (rate limited)
//	POST   /api/auth/logout               -> Logout
//	GET    /api/auth/me                   -> Me
//	POST   /api/auth/verify-email         -> VerifyEmail
//	POST   /api/auth/resend-verification  -> ResendVerification
//	POST   /api/auth/password             -> ChangePassword
//	POST   /api/auth/forgot-password      -> ForgotPassword (rate limited)
//	POST   /api/auth/reset-password       -> ResetPassword
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/auth"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/email"
	"github.com/jbaudry/previsk/internal/invite"
	"github.com/jbaudry/previsk/internal/middleware"
	"github.com/jbaudry/previsk/internal/service"
)

// AuthHandler handles registration, login and account management.
type AuthHandler struct {
	users        service.UserService
	emailService email.EmailService
	invites      *invite.Validator
	rateLimiter  *middleware.AuthRateLimiter
	logger       *slog.Logger
	isSecure     bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users service.UserService, emailService email.EmailService, invites *invite.Validator, rateLimiter *middleware.AuthRateLimiter, logger *slog.Logger, isSecure bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		emailService: emailService,
		invites:      invites,
		rateLimiter:  rateLimiter,
		logger:       logger,
		isSecure:     isSecure,
	}
}

// =============================================================================
// Request / Response types
// =============================================================================

type registerRequest struct {
	TenantName string `json:"tenant_name"`
	Siren      string `json:"siren,omitempty"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	Phone      string `json:"phone,omitempty"`
	InviteCode string `json:"invite_code,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID            uuid.UUID     `json:"id"`
	TenantID      uuid.UUID     `json:"tenant_id"`
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone,omitempty"`
	Roles         []domain.Role `json:"roles"`
	IsOwner       bool          `json:"is_owner"`
	SiteID        *uuid.UUID    `json:"site_id,omitempty"`
	EmailVerified bool          `json:"email_verified"`
	CreatedAt     time.Time     `json:"created_at"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:            u.ID,
		TenantID:      u.TenantID,
		Email:         u.Email,
		Name:          u.Name,
		Phone:         u.Phone,
		Roles:         u.Roles,
		IsOwner:       u.IsOwner,
		SiteID:        u.SiteID,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// =============================================================================
// Handlers
// =============================================================================

// Register creates a new tenant with its owner account on the free plan,
// then sends the email verification link.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.invites != nil && !h.invites.ValidateCode(req.InviteCode) {
		ErrorResponse(w, r, h.logger,
			domain.Forbidden("auth.register", "A valid invite code is required during the beta"))
		return
	}

	user, err := h.users.Register(r.Context(), domain.RegisterParams{
		TenantName: req.TenantName,
		Siren:      req.Siren,
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Phone:      req.Phone,
	})
	if err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	h.sendVerification(r, user)

	respondJSON(w, http.StatusCreated, newUserResponse(user))
}

// Login authenticates a user and returns a session token. The token is also
// set as a cookie for browser clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.rateLimiter != nil {
			h.rateLimiter.RecordFailedLogin(middleware.ClientIP(r))
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.rateLimiter != nil {
		h.rateLimiter.ResetLogin(middleware.ClientIP(r))
	}

	middleware.SetSessionCookie(w, result.Token, h.isSecure)

	respondJSON(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  newUserResponse(result.User),
	})
}

// Logout invalidates the current session and clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionTokenFromRequest(r); token != "" {
		if err := h.users.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}

	middleware.ClearSessionCookie(w, h.isSecure)
	respondJSON(w, http.StatusNoContent, nil)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, newUserResponse(user))
}

// VerifyEmail consumes a verification token and marks the account verified.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.users.VerifyEmail(r.Context(), req.Token); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// ResendVerification issues a fresh verification token for the
// authenticated user and emails it.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	if user.EmailVerified {
		ErrorResponse(w, r, h.logger,
			domain.Conflict("auth.resend_verification", "Email is already verified"))
		return
	}

	h.sendVerification(r, user)

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// ChangePassword updates the authenticated user's password after checking
// the current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// ForgotPassword emails a password reset link. The response is 202 whether
// or not the email has an account, so the endpoint cannot be used to probe
// which addresses are registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	token, user, err := h.users.CreatePasswordResetToken(r.Context(), req.Email)
	if err != nil {
		if domain.ErrorCode(err) != domain.ENOTFOUND {
			h.logger.Error("failed to create reset token", "error", err)
		}
	} else if err := h.emailService.SendPasswordResetEmail(r.Context(), user.Email, user.DisplayName(), token); err != nil {
		h.logger.Error("failed to send reset email", "error", err, "user_id", user.ID)
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.users.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// Helpers
// =============================================================================

// sendVerification creates a verification token and emails it. Failures are
// logged, never surfaced: the account exists either way and the user can ask
// for a resend.
func (h *AuthHandler) sendVerification(r *http.Request, user *domain.User) {
	token, err := h.users.CreateEmailVerificationToken(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to create verification token", "error", err, "user_id", user.ID)
		return
	}
	if err := h.emailService.SendVerificationEmail(r.Context(), user.Email, user.DisplayName(), token); err != nil {
		h.logger.Error("failed to send verification email", "error", err, "user_id", user.ID)
	}
}

// sessionTokenFromRequest extracts the session token the same way the auth
// middleware does, for the logout path.
func sessionTokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
