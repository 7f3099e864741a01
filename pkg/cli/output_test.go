package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

type fakeTable struct {
	headers []string
	rows    [][]string
}

func (f fakeTable) Headers() []string { return f.headers }
func (f fakeTable) Rows() [][]string  { return f.rows }

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "*cli.TextFormatter"},
		{FormatJSON, "*cli.JSONFormatter"},
		{FormatCSV, "*cli.CSVFormatter"},
		{OutputFormat("yaml"), "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f := NewFormatter(tt.format)
			switch tt.want {
			case "*cli.TextFormatter":
				if _, ok := f.(*TextFormatter); !ok {
					t.Errorf("NewFormatter(%s) = %T, want TextFormatter", tt.format, f)
				}
			case "*cli.JSONFormatter":
				if _, ok := f.(*JSONFormatter); !ok {
					t.Errorf("NewFormatter(%s) = %T, want JSONFormatter", tt.format, f)
				}
			case "*cli.CSVFormatter":
				if _, ok := f.(*CSVFormatter); !ok {
					t.Errorf("NewFormatter(%s) = %T, want CSVFormatter", tt.format, f)
				}
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONFormatter{Indent: true}
	data := map[string]interface{}{"ruleId": "wire-limit", "matched": true}

	var buf bytes.Buffer
	if err := f.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["ruleId"] != "wire-limit" {
		t.Errorf("ruleId = %v, want wire-limit", decoded["ruleId"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("indented output expected")
	}
}

func TestCSVFormatter(t *testing.T) {
	f := &CSVFormatter{}
	table := fakeTable{
		headers: []string{"rule_id", "status", "outcome"},
		rows: [][]string{
			{"wire-limit", "completed", "reject"},
			{"kyc-tier", "completed", "approve"},
		},
	}

	out, err := f.Format(table)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if lines[0] != "rule_id,status,outcome" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "wire-limit,completed,reject" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestCSVFormatter_RejectsNonTabular(t *testing.T) {
	f := &CSVFormatter{}
	if _, err := f.Format(map[string]string{"k": "v"}); err == nil {
		t.Error("non-tabular data should be rejected")
	}
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}
	out, err := f.Format("3 execution contexts")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if string(out) != "3 execution contexts\n" {
		t.Errorf("Format() = %q", string(out))
	}
}
