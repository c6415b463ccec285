package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, tenant_id, email, password_hash, name, phone, roles, is_owner, site_id, email_verified_at, created_at, updated_at`

const createUser = `
INSERT INTO users (tenant_id, email, password_hash, name, phone, roles, is_owner, site_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumns

type CreateUserParams struct {
	TenantID     uuid.UUID
	Email        string
	PasswordHash string
	Name         sql.NullString
	Phone        sql.NullString
	Roles        []string
	IsOwner      bool
	SiteID       uuid.NullUUID
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.TenantID, arg.Email, arg.PasswordHash, arg.Name, arg.Phone,
		pq.Array(arg.Roles), arg.IsOwner, arg.SiteID)
	return scanUser(row)
}

const getUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const listUsersByTenant = `
SELECT ` + userColumns + `
FROM users
WHERE tenant_id = $1
ORDER BY created_at
`

func (q *Queries) ListUsersByTenant(ctx context.Context, tenantID uuid.UUID) ([]User, error) {
	return q.queryUsers(ctx, listUsersByTenant, tenantID)
}

const listAdminUsersByTenant = `
SELECT ` + userColumns + `
FROM users
WHERE tenant_id = $1
  AND (is_owner OR roles && ARRAY['admin', 'admin_tenant'])
ORDER BY created_at
`

// ListAdminUsersByTenant returns the users who receive quota alerts: the
// owner and anyone holding the admin role (legacy alias included).
func (q *Queries) ListAdminUsersByTenant(ctx context.Context, tenantID uuid.UUID) ([]User, error) {
	return q.queryUsers(ctx, listAdminUsersByTenant, tenantID)
}

const countUsersByTenant = `
SELECT count(*) FROM users WHERE tenant_id = $1
`

func (q *Queries) CountUsersByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsersByTenant, tenantID).Scan(&count)
	return count, err
}

const updateUserPassword = `
UPDATE users
SET password_hash = $2, updated_at = now()
WHERE id = $1
`

func (q *Queries) UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, id, passwordHash)
	return err
}

const markEmailVerified = `
UPDATE users
SET email_verified_at = now(), updated_at = now()
WHERE id = $1
`

func (q *Queries) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markEmailVerified, id)
	return err
}

const createSession = `
INSERT INTO sessions (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, token_hash, expires_at, created_at
`

type CreateSessionParams struct {
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	var s Session
	err := q.db.QueryRowContext(ctx, createSession, arg.UserID, arg.TokenHash, arg.ExpiresAt).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

const getSessionByTokenHash = `
SELECT id, user_id, token_hash, expires_at, created_at
FROM sessions
WHERE token_hash = $1
`

func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	var s Session
	err := q.db.QueryRowContext(ctx, getSessionByTokenHash, tokenHash).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.CreatedAt)
	return s, err
}

const deleteSession = `
DELETE FROM sessions WHERE token_hash = $1
`

func (q *Queries) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, tokenHash)
	return err
}

const deleteExpiredSessions = `
DELETE FROM sessions WHERE expires_at < now()
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createEmailVerificationToken = `
INSERT INTO email_verification_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, token_hash, expires_at, created_at
`

func (q *Queries) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (EmailVerificationToken, error) {
	var t EmailVerificationToken
	err := q.db.QueryRowContext(ctx, createEmailVerificationToken, userID, tokenHash, expiresAt).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

const getEmailVerificationTokenByHash = `
SELECT id, user_id, token_hash, expires_at, created_at
FROM email_verification_tokens
WHERE token_hash = $1
`

func (q *Queries) GetEmailVerificationTokenByHash(ctx context.Context, tokenHash string) (EmailVerificationToken, error) {
	var t EmailVerificationToken
	err := q.db.QueryRowContext(ctx, getEmailVerificationTokenByHash, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

const deleteEmailVerificationTokensByUser = `
DELETE FROM email_verification_tokens WHERE user_id = $1
`

func (q *Queries) DeleteEmailVerificationTokensByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteEmailVerificationTokensByUser, userID)
	return err
}

const createPasswordResetToken = `
INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, token_hash, expires_at, created_at
`

func (q *Queries) CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) (PasswordResetToken, error) {
	var t PasswordResetToken
	err := q.db.QueryRowContext(ctx, createPasswordResetToken, userID, tokenHash, expiresAt).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

const getPasswordResetTokenByHash = `
SELECT id, user_id, token_hash, expires_at, created_at
FROM password_reset_tokens
WHERE token_hash = $1
`

func (q *Queries) GetPasswordResetTokenByHash(ctx context.Context, tokenHash string) (PasswordResetToken, error) {
	var t PasswordResetToken
	err := q.db.QueryRowContext(ctx, getPasswordResetTokenByHash, tokenHash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	return t, err
}

const deletePasswordResetTokensByUser = `
DELETE FROM password_reset_tokens WHERE user_id = $1
`

func (q *Queries) DeletePasswordResetTokensByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deletePasswordResetTokensByUser, userID)
	return err
}

const deleteSessionsByUser = `
DELETE FROM sessions WHERE user_id = $1
`

// DeleteSessionsByUser logs the user out everywhere. Called after a password
// reset so stolen sessions die with the old password.
func (q *Queries) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteSessionsByUser, userID)
	return err
}

func (q *Queries) queryUsers(ctx context.Context, query string, args ...interface{}) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone,
			pq.Array(&u.Roles), &u.IsOwner, &u.SiteID, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone,
		pq.Array(&u.Roles), &u.IsOwner, &u.SiteID, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
