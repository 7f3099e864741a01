package validator

import (
	"fmt"
	"strings"
)

// ValidationError describes a single problem found in a rule definition.
type ValidationError struct {
	RuleID  string // rule being validated
	Path    string // e.g. "config.conditions[0].operator", "config.actions[1].parameters"
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("rule %s: %s: %s", e.RuleID, e.Path, e.Message)
	}
	return fmt.Sprintf("rule %s: %s", e.RuleID, e.Message)
}

// ErrorList accumulates validation errors across passes.
type ErrorList struct {
	Errors []*ValidationError
}

// Add appends a validation error to the list.
func (l *ErrorList) Add(ruleID, path, format string, args ...interface{}) {
	l.Errors = append(l.Errors, &ValidationError{
		RuleID:  ruleID,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// HasErrors returns true if any errors were accumulated.
func (l *ErrorList) HasErrors() bool {
	return len(l.Errors) > 0
}

// Error returns all accumulated messages joined by semicolons.
func (l *ErrorList) Error() string {
	msgs := make([]string, len(l.Errors))
	for i, e := range l.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(l.Errors), strings.Join(msgs, "; "))
}

// ToError returns the list as an error, or nil if empty.
func (l *ErrorList) ToError() error {
	if l.HasErrors() {
		return l
	}
	return nil
}
