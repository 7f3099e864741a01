package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"clearline-hq/gatekeeper/pkg/config"
)

func TestNew_JSONWithRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{
		Level:     "info",
		Format:    "json",
		RedactPII: true,
	}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("trigger received", "counterparty", "a.jensen@example.com")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["counterparty"] != "a***@example.com" {
		t.Errorf("counterparty = %v, want redacted email", entry["counterparty"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "emitted") {
		t.Error("warn entry missing")
	}
}

func TestNew_RedactionDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("trigger received", "counterparty", "a.jensen@example.com")

	if !strings.Contains(buf.String(), "a.jensen@example.com") {
		t.Error("redaction should be off by default")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(&config.LoggingConfig{Level: "verbose"}, nil); err == nil {
		t.Error("unknown level should be rejected")
	}
	if _, err := New(&config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("unknown format should be rejected")
	}
}
