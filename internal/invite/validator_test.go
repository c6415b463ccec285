package invite

import "testing"

func TestValidateCode(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		codes   []string
		code    string
		want    bool
	}{
		{"disabled accepts anything", false, []string{"BETA1"}, "nope", true},
		{"disabled accepts empty", false, []string{"BETA1"}, "", true},
		{"exact match", true, []string{"BETA1", "BETA2"}, "BETA1", true},
		{"case insensitive input", true, []string{"BETA1"}, "beta1", true},
		{"case insensitive config", true, []string{"beta1"}, "BETA1", true},
		{"whitespace trimmed both sides", true, []string{"  BETA1  "}, " beta1 ", true},
		{"unknown code", true, []string{"BETA1"}, "BETA9", false},
		{"prefix is not a match", true, []string{"BETA1"}, "BETA", false},
		{"empty submission", true, []string{"BETA1"}, "", false},
		{"enabled with no codes rejects all", true, nil, "BETA1", false},
		{"blank config entries ignored", true, []string{"", "   ", "BETA1"}, "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tt.enabled, tt.codes)
			if got := v.ValidateCode(tt.code); got != tt.want {
				t.Errorf("ValidateCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsEnabled(t *testing.T) {
	if New(false, nil).IsEnabled() {
		t.Error("validator should report disabled")
	}
	if !New(true, nil).IsEnabled() {
		t.Error("validator should report enabled even with no codes")
	}
}

func TestNewDeduplicatesCodes(t *testing.T) {
	v := New(true, []string{"BETA1", "beta1", " BETA1 "})
	if len(v.codes) != 1 {
		t.Errorf("expected 1 canonical code, got %d", len(v.codes))
	}
}
