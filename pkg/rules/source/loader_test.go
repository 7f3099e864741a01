package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validRuleFile = `
rules:
  - id: wire-limit
    name: Wire transfer limit
    organizationType: financial-institution
    category: trading-limits
    config:
      priority: critical
      status: active
      triggers:
        - type: transaction
      conditions:
        - id: c1
          field: transaction.amount
          operator: greater-than
          value: 250000
          dataType: number
      actions:
        - id: a1
          type: reject
          parameters:
            message: wire exceeds limit
`

const invalidRuleFile = `
rules:
  - id: broken
    name: Broken rule
    organizationType: financial-institution
    category: trading-limits
    config:
      priority: critical
      status: active
      actions:
        - id: a1
          type: approve
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return path
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", validRuleFile)

	loaded, err := NewLoader(nil).LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "wire-limit" {
		t.Errorf("loaded = %v", loaded)
	}
}

func TestLoader_LoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewLoader(nil).LoadFile(filepath.Join(dir, "absent.yaml"))
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("error = %T, want *LoadError", err)
		}
	})

	t.Run("oversized file", func(t *testing.T) {
		path := writeFile(t, dir, "big.yaml", validRuleFile)
		loader := NewLoader(&LoaderConfig{
			MaxFileSize:       10,
			AllowedExtensions: []string{".yaml"},
		})
		if _, err := loader.LoadFile(path); err == nil {
			t.Error("oversized file must be refused")
		}
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		path := filepath.Join(dir, "binary.yaml")
		if err := os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewLoader(nil).LoadFile(path); err == nil {
			t.Error("non-UTF-8 content must be refused")
		}
	})

	t.Run("validation failure carries file and rule", func(t *testing.T) {
		path := writeFile(t, dir, "invalid.yaml", invalidRuleFile)
		_, err := NewLoader(nil).LoadFile(path)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("error = %T, want *ParseError", err)
		}
		if parseErr.FilePath != path || parseErr.RuleID != "broken" {
			t.Errorf("ParseError = %+v", parseErr)
		}
	})
}

func TestLoader_LoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", validRuleFile)
	writeFile(t, dir, "notes.txt", "not a rule file")
	writeFile(t, dir, ".hidden.yaml", invalidRuleFile)

	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := `
rules:
  - id: second-rule
    name: Second rule
    organizationType: enterprise
    category: spending-limits
    config:
      priority: low
      status: active
      triggers:
        - type: transaction
      actions:
        - id: a1
          type: approve
`
	writeFile(t, sub, "b.yml", nested)

	loaded, err := NewLoader(nil).LoadDirectory(dir)
	if err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d rules, want 2 (hidden and non-rule files skipped)", len(loaded))
	}
}

func TestLoader_LoadDirectoryPartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", validRuleFile)
	writeFile(t, dir, "bad.yaml", invalidRuleFile)

	loaded, err := NewLoader(nil).LoadDirectory(dir)
	if len(loaded) != 1 {
		t.Fatalf("loaded = %d, cleanly parsed rules must still be returned", len(loaded))
	}
	var errList *ErrorList
	if !errors.As(err, &errList) {
		t.Fatalf("error = %T, want *ErrorList for the failed file", err)
	}
	if len(errList.Errors) != 1 {
		t.Errorf("ErrorList carries %d errors, want 1", len(errList.Errors))
	}
}

func TestLoader_LoadDirectoryAllFailed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", invalidRuleFile)

	loaded, err := NewLoader(nil).LoadDirectory(dir)
	if loaded != nil {
		t.Errorf("loaded = %v, want nil", loaded)
	}
	if err == nil {
		t.Fatal("all files failing must surface an error")
	}
}

func TestLoader_LoadDirectoryEmpty(t *testing.T) {
	if _, err := NewLoader(nil).LoadDirectory(t.TempDir()); err == nil {
		t.Error("a directory without rule files must surface an error")
	}
}

func TestLoader_LoadPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", validRuleFile)

	loader := NewLoader(nil)

	byFile, err := loader.LoadPath(path)
	if err != nil || len(byFile) != 1 {
		t.Errorf("LoadPath(file) = %v, %v", byFile, err)
	}
	byDir, err := loader.LoadPath(dir)
	if err != nil || len(byDir) != 1 {
		t.Errorf("LoadPath(dir) = %v, %v", byDir, err)
	}
	if _, err := loader.LoadPath(filepath.Join(dir, "absent")); err == nil {
		t.Error("LoadPath on a missing path must fail")
	}
}
