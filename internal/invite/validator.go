// Package invite gates registration behind invite codes during the private
// beta. Codes come from the environment and live only in memory.
package invite

import (
	"crypto/subtle"
	"strings"
)

// Validator checks submitted invite codes against the configured set.
type Validator struct {
	enabled bool
	codes   []string
}

// New builds a Validator. Codes are uppercased, trimmed and deduplicated so
// the comparison set matches what the config loader produces.
func New(enabled bool, codes []string) *Validator {
	v := &Validator{enabled: enabled}

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		c := canonical(code)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		v.codes = append(v.codes, c)
	}
	return v
}

// IsEnabled reports whether registration requires a code.
func (v *Validator) IsEnabled() bool {
	return v.enabled
}

// ValidateCode reports whether the submitted code is accepted. When the gate
// is disabled every code passes. Every configured code is compared in
// constant time so response timing does not reveal near-matches.
func (v *Validator) ValidateCode(code string) bool {
	if !v.enabled {
		return true
	}

	submitted := []byte(canonical(code))
	if len(submitted) == 0 {
		return false
	}

	match := 0
	for _, valid := range v.codes {
		if subtle.ConstantTimeEq(int32(len(submitted)), int32(len(valid))) == 1 {
			match |= subtle.ConstantTimeCompare(submitted, []byte(valid))
		}
	}
	return match == 1
}

func canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
