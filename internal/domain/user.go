// Package domain contains core business types and interfaces.
//
// This file defines the User domain type and session types for
// authentication. These types are separate from the repository models so the
// business layer never handles sql.Null* values directly.
package domain

import (
	"database/sql"
	"slices"
	"time"

	"github.com/google/uuid"
)

// User represents a member of a tenant.
//
// A user may hold several roles at once; roles are stored as strings and
// normalized through the legacy alias map when they enter the domain layer.
// IsOwner is a distinguished flag, not a role: owners bypass the permission
// matrix entirely.
type User struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Email           string
	PasswordHash    string // never expose in API responses
	Name            string
	Phone           string
	Roles           []Role
	IsOwner         bool
	SiteID          *uuid.UUID // assigned site, used by scope checks
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasRole reports whether the user holds the role (after alias
// normalization).
func (u *User) HasRole(role Role) bool {
	return slices.Contains(NormalizeRoles(u.Roles), NormalizeRole(role))
}

// IsAdmin reports whether the user is an owner or holds the admin role.
// Quota alert emails are addressed to these users.
func (u *User) IsAdmin() bool {
	return u.IsOwner || u.HasRole(RoleAdmin)
}

// DisplayName returns the user's name, or the email when the name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Session represents an authenticated session. Sessions are stored with a
// hashed token; the raw token is only returned to the client once, at login.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string // SHA-256 of the session token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RegisterParams contains the validated parameters for registering a tenant
// owner account.
type RegisterParams struct {
	TenantName string
	Siren      string
	Email      string
	Password   string // raw password, hashed by the service
	Name       string
	Phone      string
}

// CreateUserParams contains the parameters for inviting a member into an
// existing tenant.
type CreateUserParams struct {
	TenantID uuid.UUID
	Email    string
	Password string
	Name     string
	Roles    []Role
	SiteID   *uuid.UUID
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User  *User
	Token string // raw session token, only returned once
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ToNullString converts a string to sql.NullString, mapping "" to NULL.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// ToNullUUID converts a uuid pointer to uuid.NullUUID.
func ToNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// NullUUIDValue safely extracts a uuid pointer from uuid.NullUUID.
func NullUUIDValue(nu uuid.NullUUID) *uuid.UUID {
	if nu.Valid {
		id := nu.UUID
		return &id
	}
	return nil
}
