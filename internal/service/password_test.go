package service

import (
	"strings"
	"testing"

	"github.com/jbaudry/previsk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string // empty means valid
	}{
		{"minimum length", "Abcdef12", ""},
		{"at bcrypt limit", strings.Repeat("Aa1", 24), ""},
		{"lowercase only letters", "xmqr1234", ""},
		{"with symbols", "Th1sIsF1ne!", ""},

		{"seven characters", "Abcdef1", "at least 8"},
		{"past bcrypt limit", strings.Repeat("Aa1", 25), "at most 72"},
		{"digits only", "12345678", "letter"},
		{"symbols and digits", "1234!@#$", "letter"},
		{"letters only", "Abcdefgh", "number"},
		{"letters and symbols", "Abcd!@#$", "number"},
		{"common password", "Password1", "too common"},
		{"common password mixed case", "AzErTy123", "too common"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.password)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Contains(t, domain.ErrorMessage(err), tt.wantErr)
		})
	}
}
