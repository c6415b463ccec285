// Package auth carries the authenticated user through request contexts. It
// sits below both middleware and handler so neither has to import the other.
package auth

import (
	"context"

	"github.com/jbaudry/previsk/internal/domain"
)

type ctxKey int

const userKey ctxKey = iota

// SetUser returns a context carrying the user. Called by the session
// middleware once the token has been resolved.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated user, or nil for anonymous requests.
func GetUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}
