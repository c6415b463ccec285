// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbaudry/previsk/internal/domain"
	"github.com/jbaudry/previsk/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 provides good security (~250ms on modern hardware) while being
	// fast enough for login flows. NIST recommends cost 10+.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// 32 bytes = 256 bits of entropy; hex-encoded to 64 characters.
	SessionTokenBytes = 32

	// DefaultSessionDuration is how long a session remains valid.
	DefaultSessionDuration = 24 * time.Hour

	// MinSessionDuration is the floor applied to configured durations.
	MinSessionDuration = 15 * time.Minute

	// MaxSessionDuration is the ceiling applied to configured durations.
	MaxSessionDuration = 30 * 24 * time.Hour

	// VerificationTokenDuration is how long an email verification link works.
	VerificationTokenDuration = 24 * time.Hour

	// ResetTokenDuration is how long a password reset link works. Kept short
	// because the link grants account takeover.
	ResetTokenDuration = 1 * time.Hour

	// MinPasswordLength is the minimum password length.
	// NIST SP 800-63B recommends 8+ characters minimum.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway, but we cap earlier for clarity.
	MaxPasswordLength = 72
)

// Generic token-failure messages. One message per flow, never revealing
// whether a token exists, is expired, or was already used.
const (
	ErrMsgInvalidVerificationLink = "Invalid or expired verification link"
	ErrMsgInvalidResetLink        = "Invalid or expired reset link"
)

// UserServiceConfig holds tunable parameters for the user service.
type UserServiceConfig struct {
	SessionDuration time.Duration
}

// normalizeSessionDuration applies defaults and the security floor.
func normalizeSessionDuration(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultSessionDuration
	}
	if d < MinSessionDuration {
		return MinSessionDuration
	}
	if d > MaxSessionDuration {
		return MaxSessionDuration
	}
	return d
}

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for account and session operations.
type UserService interface {
	// Register creates a new tenant on the free plan with its owner account.
	// Returns domain.ECONFLICT if the email already exists.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, emailAddr, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token. Idempotent.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken validates a session token and returns its user.
	// Returns domain.EUNAUTHORIZED if the token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// InviteUser adds a member to the actor's tenant. Enforces the user
	// quota and the plan's available roles.
	InviteUser(ctx context.Context, actor *domain.User, params domain.CreateUserParams) (*domain.User, error)

	// ListMembers returns every user of the actor's tenant.
	ListMembers(ctx context.Context, actor *domain.User) ([]*domain.User, error)

	// ChangePassword verifies the current password and sets a new one.
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error

	// CreateEmailVerificationToken issues a fresh verification token for a
	// user, invalidating earlier ones. Returns the raw token.
	CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (string, error)

	// VerifyEmail consumes a verification token and marks the user verified.
	// All failures return the same generic message to prevent enumeration.
	VerifyEmail(ctx context.Context, token string) error

	// CreatePasswordResetToken issues a reset token for the account with the
	// given email, invalidating earlier ones. Returns the raw token and the
	// user so the caller can send the email. Returns domain.ENOTFOUND for
	// unknown emails; callers must not reveal that to the client.
	CreatePasswordResetToken(ctx context.Context, emailAddr string) (string, *domain.User, error)

	// ResetPassword consumes a reset token, sets a new password and revokes
	// every session of the user. All token failures return the same generic
	// message to prevent enumeration.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// DeleteExpiredSessions removes expired sessions. Called periodically.
	DeleteExpiredSessions(ctx context.Context) error
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	db      *sql.DB
	queries *repository.Queries
	quota   QuotaService
	catalog *domain.Catalog
	config  UserServiceConfig
	logger  *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, queries *repository.Queries, quota QuotaService, catalog *domain.Catalog, config UserServiceConfig, logger *slog.Logger) UserService {
	config.SessionDuration = normalizeSessionDuration(config.SessionDuration)
	return &userService{
		db:      db,
		queries: queries,
		quota:   quota,
		catalog: catalog,
		config:  config,
		logger:  logger,
	}
}

// Register creates a new tenant on the free plan with its owner account.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "user.register"

	if params.TenantName == "" {
		return nil, domain.Invalid(op, "company name is required")
	}
	if err := validateEmail(op, params.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}

	if _, err := s.queries.GetUserByEmail(ctx, params.Email); err == nil {
		return nil, domain.Conflict(op, "an account with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "failed to check existing email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)

	tenant, err := qtx.CreateTenant(ctx, repository.CreateTenantParams{
		Name:               params.TenantName,
		Siren:              domain.ToNullString(params.Siren),
		Plan:               string(domain.PlanFree),
		SubscriptionStatus: string(domain.SubscriptionStatusActive),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create tenant")
	}

	row, err := qtx.CreateUser(ctx, repository.CreateUserParams{
		TenantID:     tenant.ID,
		Email:        strings.ToLower(params.Email),
		PasswordHash: string(hash),
		Name:         domain.ToNullString(params.Name),
		Phone:        domain.ToNullString(params.Phone),
		Roles:        []string{string(domain.RoleAdmin)},
		IsOwner:      true,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create owner account")
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Internal(err, op, "failed to commit registration")
	}

	s.logger.Info("tenant registered", "tenant_id", tenant.ID, "user_id", row.ID)
	return mapUser(row), nil
}

// Login authenticates a user and creates a new session.
func (s *userService) Login(ctx context.Context, emailAddr, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	row, err := s.queries.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a bcrypt comparison so missing accounts take as long
			// as wrong passwords.
			bcrypt.CompareHashAndPassword(dummyBcryptHash, []byte(password))
			return nil, domain.Unauthorized(op, "invalid email or password")
		}
		return nil, domain.Internal(err, op, "failed to look up user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "invalid email or password")
	}

	token, tokenHash, err := generateToken()
	if err != nil {
		return nil, domain.Internal(err, op, "failed to generate session token")
	}

	_, err = s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    row.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(s.config.SessionDuration),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create session")
	}

	return &domain.LoginResult{User: mapUser(row), Token: token}, nil
}

// Logout invalidates a session. Unknown tokens are not an error.
func (s *userService) Logout(ctx context.Context, token string) error {
	const op = "user.logout"

	if err := s.queries.DeleteSession(ctx, hashToken(token)); err != nil {
		return domain.Internal(err, op, "failed to delete session")
	}
	return nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get_by_id"

	row, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get user")
	}
	return mapUser(row), nil
}

// GetBySessionToken validates a session token and returns its user.
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "user.get_by_session"

	if len(token) != SessionTokenBytes*2 {
		return nil, domain.Unauthorized(op, "invalid session")
	}

	session, err := s.queries.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "invalid session")
		}
		return nil, domain.Internal(err, op, "failed to look up session")
	}

	if time.Now().After(session.ExpiresAt) {
		// Clean up eagerly; the periodic sweep catches the rest.
		_ = s.queries.DeleteSession(ctx, session.TokenHash)
		return nil, domain.Unauthorized(op, "invalid session")
	}

	row, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, domain.Unauthorized(op, "invalid session")
	}
	return mapUser(row), nil
}

// InviteUser adds a member to the actor's tenant.
func (s *userService) InviteUser(ctx context.Context, actor *domain.User, params domain.CreateUserParams) (*domain.User, error) {
	const op = "user.invite"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionManage, nil) {
		return nil, domain.Forbidden(op, "you cannot manage members of this organization")
	}
	if err := validateEmail(op, params.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}
	if len(params.Roles) == 0 {
		return nil, domain.Invalid(op, "at least one role is required")
	}

	tenant, err := s.queries.GetTenantByID(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load tenant")
	}
	plan := domain.Plan(tenant.Plan)

	roles := domain.NormalizeRoles(params.Roles)
	for _, role := range roles {
		if !s.catalog.IsRoleAvailableInPlan(plan, role) {
			return nil, domain.PaymentRequired(op, "the role "+string(role)+" is not available on the "+s.catalog.DisplayName(plan)+" plan")
		}
	}

	if err := s.quota.CheckQuota(ctx, actor.TenantID, plan, domain.FeatureUsers); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	roleStrings := make([]string, len(roles))
	for i, r := range roles {
		roleStrings[i] = string(r)
	}

	row, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		TenantID:     actor.TenantID,
		Email:        strings.ToLower(params.Email),
		PasswordHash: string(hash),
		Name:         domain.ToNullString(params.Name),
		Roles:        roleStrings,
		SiteID:       domain.ToNullUUID(params.SiteID),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict(op, "an account with this email already exists")
		}
		return nil, domain.Internal(err, op, "failed to create user")
	}

	s.logger.Info("member invited", "tenant_id", actor.TenantID, "user_id", row.ID, "roles", roleStrings)
	return mapUser(row), nil
}

// ListMembers returns every user of the actor's tenant.
func (s *userService) ListMembers(ctx context.Context, actor *domain.User) ([]*domain.User, error) {
	const op = "user.list_members"

	if !domain.HasPermission(actor.Roles, actor.IsOwner, domain.ResourceOrganization, domain.ActionView, nil) {
		return nil, domain.Forbidden(op, "you cannot view members of this organization")
	}

	rows, err := s.queries.ListUsersByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list users")
	}

	users := make([]*domain.User, len(rows))
	for i, row := range rows {
		users[i] = mapUser(row)
	}
	return users, nil
}

// ChangePassword verifies the current password and sets a new one.
func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	const op = "user.change_password"

	row, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", userID.String())
		}
		return domain.Internal(err, op, "failed to get user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(current)); err != nil {
		return domain.Unauthorized(op, "current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "failed to hash password")
	}

	if err := s.queries.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return domain.Internal(err, op, "failed to update password")
	}
	return nil
}

// CreateEmailVerificationToken issues a fresh verification token.
func (s *userService) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "user.create_verification_token"

	if err := s.queries.DeleteEmailVerificationTokensByUser(ctx, userID); err != nil {
		return "", domain.Internal(err, op, "failed to clear old tokens")
	}

	token, tokenHash, err := generateToken()
	if err != nil {
		return "", domain.Internal(err, op, "failed to generate token")
	}

	_, err = s.queries.CreateEmailVerificationToken(ctx, userID, tokenHash, time.Now().Add(VerificationTokenDuration))
	if err != nil {
		return "", domain.Internal(err, op, "failed to store token")
	}
	return token, nil
}

// VerifyEmail consumes a verification token and marks the user verified.
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	const op = "user.verify_email"

	// One generic message for every failure mode to prevent enumeration.
	genericErr := domain.Invalid(op, ErrMsgInvalidVerificationLink)

	if len(token) != SessionTokenBytes*2 {
		return genericErr
	}

	record, err := s.queries.GetEmailVerificationTokenByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return genericErr
		}
		return domain.Internal(err, op, "failed to look up token")
	}

	if time.Now().After(record.ExpiresAt) {
		return genericErr
	}

	if err := s.queries.MarkEmailVerified(ctx, record.UserID); err != nil {
		return domain.Internal(err, op, "failed to mark email verified")
	}
	if err := s.queries.DeleteEmailVerificationTokensByUser(ctx, record.UserID); err != nil {
		return domain.Internal(err, op, "failed to consume token")
	}
	return nil
}

// CreatePasswordResetToken issues a fresh reset token for an account.
func (s *userService) CreatePasswordResetToken(ctx context.Context, emailAddr string) (string, *domain.User, error) {
	const op = "user.create_reset_token"

	row, err := s.queries.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, domain.NotFound(op, "user", emailAddr)
		}
		return "", nil, domain.Internal(err, op, "failed to look up user")
	}

	if err := s.queries.DeletePasswordResetTokensByUser(ctx, row.ID); err != nil {
		return "", nil, domain.Internal(err, op, "failed to clear old tokens")
	}

	token, tokenHash, err := generateToken()
	if err != nil {
		return "", nil, domain.Internal(err, op, "failed to generate token")
	}

	_, err = s.queries.CreatePasswordResetToken(ctx, row.ID, tokenHash, time.Now().Add(ResetTokenDuration))
	if err != nil {
		return "", nil, domain.Internal(err, op, "failed to store token")
	}
	return token, mapUser(row), nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "user.reset_password"

	// One generic message for every failure mode to prevent enumeration.
	genericErr := domain.Invalid(op, ErrMsgInvalidResetLink)

	if len(token) != SessionTokenBytes*2 {
		return genericErr
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	record, err := s.queries.GetPasswordResetTokenByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return genericErr
		}
		return domain.Internal(err, op, "failed to look up token")
	}
	if time.Now().After(record.ExpiresAt) {
		return genericErr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "failed to hash password")
	}
	if err := s.queries.UpdateUserPassword(ctx, record.UserID, string(hash)); err != nil {
		return domain.Internal(err, op, "failed to update password")
	}
	if err := s.queries.DeletePasswordResetTokensByUser(ctx, record.UserID); err != nil {
		return domain.Internal(err, op, "failed to consume token")
	}

	// The old password may be compromised; revoke every open session.
	if err := s.queries.DeleteSessionsByUser(ctx, record.UserID); err != nil {
		return domain.Internal(err, op, "failed to revoke sessions")
	}

	s.logger.Info("password reset completed", "user_id", record.UserID)
	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "user.delete_expired_sessions"

	count, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to delete expired sessions")
	}
	if count > 0 {
		s.logger.Info("expired sessions deleted", "count", count)
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// dummyBcryptHash is compared against when the account does not exist, so
// login timing does not reveal which emails are registered.
var dummyBcryptHash = []byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW")

// generateToken returns a raw hex token and its SHA-256 hash.
func generateToken() (token, tokenHash string, err error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(buf)
	return token, hashToken(token), nil
}

// hashToken returns the hex-encoded SHA-256 of a raw token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validateEmail(op, emailAddr string) error {
	if emailAddr == "" || !strings.Contains(emailAddr, "@") || strings.Contains(emailAddr, " ") {
		return domain.Invalid(op, "a valid email address is required")
	}
	return nil
}

// commonPasswords are rejected outright regardless of composition rules.
var commonPasswords = map[string]struct{}{
	"password1": {}, "password123": {}, "qwerty123": {}, "letmein1": {},
	"welcome1": {}, "admin123": {}, "azerty123": {}, "motdepasse1": {},
}

// validatePassword enforces the password policy.
func validatePassword(password string) error {
	const op = "user.validate_password"

	if len(password) < MinPasswordLength {
		return domain.Invalid(op, "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return domain.Invalid(op, "password must be at most 72 characters")
	}

	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter {
		return domain.Invalid(op, "password must contain at least one letter")
	}
	if !hasNumber {
		return domain.Invalid(op, "password must contain at least one number")
	}

	if _, found := commonPasswords[strings.ToLower(password)]; found {
		return domain.Invalid(op, "this password is too common")
	}
	return nil
}

// mapUser converts a repository row to the domain type, normalizing legacy
// role aliases on the way in.
func mapUser(row repository.User) *domain.User {
	roles := make([]domain.Role, len(row.Roles))
	for i, r := range row.Roles {
		roles[i] = domain.Role(r)
	}
	return &domain.User{
		ID:              row.ID,
		TenantID:        row.TenantID,
		Email:           row.Email,
		PasswordHash:    row.PasswordHash,
		Name:            domain.NullStringValue(row.Name),
		Phone:           domain.NullStringValue(row.Phone),
		Roles:           domain.NormalizeRoles(roles),
		IsOwner:         row.IsOwner,
		SiteID:          domain.NullUUIDValue(row.SiteID),
		EmailVerified:   row.EmailVerifiedAt.Valid,
		EmailVerifiedAt: domain.NullTimeValue(row.EmailVerifiedAt),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

// isUniqueViolation reports whether the error is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unique")
}
