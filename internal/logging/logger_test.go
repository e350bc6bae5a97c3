package logging

import (
	"fmt"
	"testing"
)

func TestSecretFormatting(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"string verb", "%s"},
		{"value verb", "%v"},
		{"go syntax verb", "%#v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fmt.Sprintf(tt.format, Secret("hunter2-password"))
			if got != "[REDACTED]" {
				t.Errorf("Sprintf(%q, Secret) = %q, want [REDACTED]", tt.format, got)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret redacted",
			input:    "export DB_PASSWORD=secret123",
			secrets:  []string{"secret123"},
			expected: "export DB_PASSWORD=[REDACTED]",
		},
		{
			name:     "every occurrence redacted",
			input:    "token abcd1234 then abcd1234 again",
			secrets:  []string{"abcd1234"},
			expected: "token [REDACTED] then [REDACTED] again",
		},
		{
			name:     "empty secret ignored",
			input:    "nothing to hide",
			secrets:  []string{""},
			expected: "nothing to hide",
		},
		{
			name:     "short secret ignored",
			input:    "PORT=80",
			secrets:  []string{"80"},
			expected: "PORT=80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Redact(tt.input, tt.secrets); got != tt.expected {
				t.Errorf("Redact() = %q, want %q", got, tt.expected)
			}
		})
	}
}
