package cli

import (
	"errors"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name  string
		field string
		msg   string
		want  string
	}{
		{
			name:  "with field",
			field: "audit.backend",
			msg:   "unknown backend",
			want:  "configuration error in audit.backend: unknown backend",
		},
		{
			name: "without field",
			msg:  "failed to load config",
			want: "configuration error: failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfigError(tt.field, tt.msg)
			if err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	cause := errors.New("store unavailable")
	err := NewCommandError("audit query", cause)

	want := "command audit query failed: store unavailable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("CommandError should unwrap to its cause")
	}
}
