package worker

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	mutate := func(fn func(*Config)) Config {
		c := DefaultConfig()
		fn(&c)
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero concurrency", mutate(func(c *Config) { c.Concurrency = 0 }), true},
		{"excessive concurrency", mutate(func(c *Config) { c.Concurrency = 101 }), true},
		{"sub-second poll interval", mutate(func(c *Config) { c.PollInterval = 200 * time.Millisecond }), true},
		{"sub-second job timeout", mutate(func(c *Config) { c.JobTimeout = 0 }), true},
		{"sub-second shutdown timeout", mutate(func(c *Config) { c.ShutdownTimeout = 0 }), true},
		{"sub-minute stale threshold", mutate(func(c *Config) { c.StaleJobThreshold = 30 * time.Second }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsPermanent(t *testing.T) {
	base := errors.New("payload is garbage")

	if !IsPermanent(NewPermanentError(base)) {
		t.Error("direct PermanentError not detected")
	}
	if !IsPermanent(fmt.Errorf("handler: %w", NewPermanentError(base))) {
		t.Error("wrapped PermanentError not detected")
	}
	if IsPermanent(base) {
		t.Error("plain error misreported as permanent")
	}
	if IsPermanent(nil) {
		t.Error("nil misreported as permanent")
	}
}

func TestPermanentErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	err := NewPermanentError(base)

	if !errors.Is(err, base) {
		t.Error("PermanentError should unwrap to its cause")
	}
	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want %q", err.Error(), "boom")
	}
}
