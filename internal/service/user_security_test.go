package service

import (
	"context"
	"encoding/hex"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/jbaudry/previsk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenTestService builds a user service whose token-format checks can be
// exercised without a database: malformed tokens must be rejected before any
// query runs.
func tokenTestService(t *testing.T) UserService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewUserService(nil, nil, nil, nil, UserServiceConfig{}, logger)
}

func TestVerifyEmailRejectsMalformedTokens(t *testing.T) {
	svc := tokenTestService(t)

	// Whatever the failure, the caller sees one generic message so the
	// endpoint cannot be used to probe which tokens exist.
	for _, token := range []string{"", "abc123", strings.Repeat("a", 63), strings.Repeat("a", 100)} {
		err := svc.VerifyEmail(context.Background(), token)
		require.Error(t, err, "token %q", token)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		assert.Equal(t, ErrMsgInvalidVerificationLink, domain.ErrorMessage(err))
	}
}

func TestResetPasswordRejectsMalformedTokens(t *testing.T) {
	svc := tokenTestService(t)

	for _, token := range []string{"", "short", strings.Repeat("b", 65)} {
		err := svc.ResetPassword(context.Background(), token, "Val1dPassword")
		require.Error(t, err, "token %q", token)
		assert.Equal(t, ErrMsgInvalidResetLink, domain.ErrorMessage(err))
	}
}

func TestResetPasswordValidatesNewPassword(t *testing.T) {
	svc := tokenTestService(t)

	// Policy violations surface before the token is even looked up.
	err := svc.ResetPassword(context.Background(), strings.Repeat("c", 64), "weak")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Contains(t, domain.ErrorMessage(err), "at least 8")
}

func TestTokenMessagesStayGeneric(t *testing.T) {
	// The messages must not reveal whether a token exists, was consumed, or
	// how validation works internally.
	leaky := []string{"not found", "does not exist", "already", "hash", "database", "format"}

	for _, msg := range []string{ErrMsgInvalidVerificationLink, ErrMsgInvalidResetLink} {
		lower := strings.ToLower(msg)
		for _, fragment := range leaky {
			assert.NotContains(t, lower, fragment, "message %q", msg)
		}
	}
}

func TestGenerateToken(t *testing.T) {
	token, tokenHash, err := generateToken()
	require.NoError(t, err)

	// Raw tokens are hex with SessionTokenBytes of entropy; only the hash
	// is stored.
	assert.Len(t, token, SessionTokenBytes*2)
	_, err = hex.DecodeString(token)
	assert.NoError(t, err)
	assert.NotEqual(t, token, tokenHash)
	assert.Equal(t, hashToken(token), tokenHash)

	// Two calls never collide.
	token2, _, err := generateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, token2)
}
