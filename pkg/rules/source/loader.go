package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"clearline-hq/gatekeeper/pkg/rules"
	"clearline-hq/gatekeeper/pkg/rules/validator"
)

// LoaderConfig configures the file loader.
type LoaderConfig struct {
	// MaxFileSize is the maximum size of a rule file in bytes.
	MaxFileSize int64

	// AllowedExtensions lists the file extensions treated as rule files.
	AllowedExtensions []string

	// SkipHidden skips hidden files and directories during directory walks.
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		MaxFileSize:       1 << 20, // 1 MiB
		AllowedExtensions: []string{".yaml", ".yml"},
		SkipHidden:        true,
	}
}

// Loader reads rule files from the file system and validates the decoded
// rules before handing them to callers. It supports single files and
// directory trees.
type Loader struct {
	config    *LoaderConfig
	validator *validator.Validator
}

// NewLoader creates a loader with the given configuration. A nil config
// selects the defaults.
func NewLoader(config *LoaderConfig) *Loader {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	return &Loader{
		config:    config,
		validator: validator.NewValidator(),
	}
}

// LoadPath loads rules from a file or directory path.
func (l *Loader) LoadPath(path string) ([]*rules.Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "path does not exist", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access path", Cause: err}
	}
	if info.IsDir() {
		return l.LoadDirectory(path)
	}
	return l.LoadFile(path)
}

// LoadFile loads a single rule file. It validates file size, UTF-8 encoding
// and every decoded rule.
func (l *Loader) LoadFile(path string) ([]*rules.Rule, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		if os.IsPermission(err) {
			return nil, &LoadError{FilePath: path, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}
	if info.Size() > l.config.MaxFileSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	decoded, err := DecodeDocument(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.FilePath = path
			return nil, pe
		}
		return nil, &ParseError{FilePath: path, Message: "YAML decoding failed", Cause: err}
	}

	for _, rule := range decoded {
		if err := l.validator.Validate(rule); err != nil {
			return nil, &ParseError{FilePath: path, RuleID: rule.ID, Message: "rule validation failed", Cause: err}
		}
	}
	return decoded, nil
}

// LoadDirectory loads all rule files from the given directory recursively.
// Rules from files that loaded cleanly are returned alongside an ErrorList
// describing the files that failed; the error is non-nil only when every
// file failed.
func (l *Loader) LoadDirectory(dir string) ([]*rules.Rule, error) {
	files, err := l.collectRuleFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &LoadError{FilePath: dir, Message: "no rule files found in directory"}
	}

	var loaded []*rules.Rule
	errList := &ErrorList{}
	for _, path := range files {
		decoded, err := l.LoadFile(path)
		if err != nil {
			errList.Add(err)
			continue
		}
		loaded = append(loaded, decoded...)
	}

	if len(loaded) == 0 && errList.HasErrors() {
		return nil, errList
	}
	if errList.HasErrors() {
		return loaded, errList
	}
	return loaded, nil
}

// collectRuleFiles walks the directory and gathers rule file paths, filtered
// by extension.
func (l *Loader) collectRuleFiles(dir string) ([]string, error) {
	var ruleFiles []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if l.config.SkipHidden && strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if l.hasValidExtension(path) {
			ruleFiles = append(ruleFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{FilePath: dir, Message: "failed to walk directory", Cause: err}
	}
	return ruleFiles, nil
}

func (l *Loader) hasValidExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, validExt := range l.config.AllowedExtensions {
		if ext == strings.ToLower(validExt) {
			return true
		}
	}
	return false
}
