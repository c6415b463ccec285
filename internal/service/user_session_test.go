package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSessionDuration(t *testing.T) {
	tests := []struct {
		name  string
		input time.Duration
		want  time.Duration
	}{
		{"zero uses default", 0, DefaultSessionDuration},
		{"negative uses default", -time.Hour, DefaultSessionDuration},
		{"below floor clamps up", 5 * time.Minute, MinSessionDuration},
		{"at floor kept", MinSessionDuration, MinSessionDuration},
		{"normal value kept", 12 * time.Hour, 12 * time.Hour},
		{"at ceiling kept", MaxSessionDuration, MaxSessionDuration},
		{"above ceiling clamps down", 90 * 24 * time.Hour, MaxSessionDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeSessionDuration(tt.input))
		})
	}
}
