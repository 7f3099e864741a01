package engine

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors
var (
	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrEngineClosed indicates the engine has been shut down.
	ErrEngineClosed = errors.New("engine closed")
)

// TypeMismatchError indicates a condition's resolved field value does not
// match the declared data type. The owning rule is treated as non-matching
// and flagged as an anomaly; the error never escapes HandleTrigger.
type TypeMismatchError struct {
	ConditionID  string
	Field        string
	ExpectedType string
	ActualType   string
}

// Error returns the error message.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("condition %s: type mismatch for field %q: expected %s, got %s",
		e.ConditionID, e.Field, e.ExpectedType, e.ActualType)
}

// ConditionError indicates a condition evaluation failure other than a type
// mismatch, such as an invalid regex or a malformed value list.
type ConditionError struct {
	ConditionID string
	Field       string
	Cause       error
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %s: evaluation error on field %q: %v", e.ConditionID, e.Field, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

// ActionError indicates a terminal action execution failure.
type ActionError struct {
	RuleID   string
	ActionID string
	Type     string
	Cause    error
}

// Error returns the error message.
func (e *ActionError) Error() string {
	return fmt.Sprintf("rule %s action %s (%s): %v", e.RuleID, e.ActionID, e.Type, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ActionError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates a rule's action batch exceeded its execution
// timeout.
type TimeoutError struct {
	RuleID  string
	Timeout time.Duration
}

// Error returns the error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rule %s: action batch timeout after %v", e.RuleID, e.Timeout)
}
