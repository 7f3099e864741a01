package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"clearline-hq/gatekeeper/pkg/config"
)

func TestRedactString(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "email",
			input: "counterparty a.jensen@example.com flagged",
			want:  "counterparty a***@example.com flagged",
		},
		{
			name:  "iban",
			input: "destination DE89370400440532013000",
			want:  "destination DE89***",
		},
		{
			name:  "card number",
			input: "card 4111-1111-1111-1111 declined",
			want:  "card ****-****-****-**** declined",
		},
		{
			name:  "ssn",
			input: "applicant 123-45-6789",
			want:  "applicant ***-**-****",
		},
		{
			name:  "bearer token",
			input: "header Bearer eyJhbGciOiJIUzI1NiJ9.abc",
			want:  "header Bearer ***",
		},
		{
			name:  "clean string untouched",
			input: "rule wire-limit matched",
			want:  "rule wire-limit matched",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_CustomPattern(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "employee_id", Pattern: `EMP-\d{6}`, Replacement: "EMP-***"},
	})

	got := r.RedactString("requested by EMP-482910")
	if got != "requested by EMP-***" {
		t.Errorf("RedactString() = %q", got)
	}
}

func TestRedactor_InvalidCustomPatternSkipped(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "broken", Pattern: `[unclosed`, Replacement: "x"},
	})

	// Built-ins still work
	if got := r.RedactString("a.jensen@example.com"); got != "a***@example.com" {
		t.Errorf("RedactString() = %q", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"account_number", true},
		{"AccountNumber", true},
		{"card_number", true},
		{"api_key", true},
		{"iban", true},
		{"rule_id", false},
		{"outcome", false},
	}

	for _, tt := range tests {
		if got := isSensitiveKey(tt.key); got != tt.want {
			t.Errorf("isSensitiveKey(%q) = %t, want %t", tt.key, got, tt.want)
		}
	}
}

func TestRedactHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewRedactHandler(
		slog.NewJSONHandler(&buf, nil),
		NewRedactor(nil),
	)
	logger := slog.New(handler)

	logger.Info("trigger received",
		"rule_id", "wire-limit",
		"counterparty", "a.jensen@example.com",
		"account_number", "DE89370400440532013000",
		"amount", 250000,
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}

	if entry["rule_id"] != "wire-limit" {
		t.Errorf("rule_id = %v, want wire-limit", entry["rule_id"])
	}
	if entry["counterparty"] != "a***@example.com" {
		t.Errorf("counterparty = %v, want pattern-redacted email", entry["counterparty"])
	}
	// Sensitive key: masked by key, not by pattern
	if entry["account_number"] != "DE89***" {
		t.Errorf("account_number = %v, want DE89***", entry["account_number"])
	}
	if entry["amount"] != float64(250000) {
		t.Errorf("amount = %v, want 250000", entry["amount"])
	}
}

func TestRedactHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewRedactHandler(
		slog.NewJSONHandler(&buf, nil),
		NewRedactor(nil),
	)
	logger := slog.New(handler).With("operator_email", "ops@example.com")

	logger.Info("registry reloaded")

	if !strings.Contains(buf.String(), "o***@example.com") {
		t.Errorf("pre-bound attr not redacted: %s", buf.String())
	}
}
