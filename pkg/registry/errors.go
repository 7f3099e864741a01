package registry

import (
	"errors"
	"fmt"
)

// ErrRuleNotFound indicates the requested rule does not exist.
var ErrRuleNotFound = errors.New("rule not found")

// ConcurrentModificationError indicates an upsert carried a stale version.
// The caller should re-read the rule and retry with a fresh version.
type ConcurrentModificationError struct {
	RuleID           string
	CurrentVersion   int
	SubmittedVersion int
}

// Error returns the error message.
func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of rule %s: submitted version %d, indexed version %d (expected %d)",
		e.RuleID, e.SubmittedVersion, e.CurrentVersion, e.CurrentVersion+1)
}

// StoreError indicates a backing store operation failed.
type StoreError struct {
	Operation string
	RuleID    string
	Cause     error
}

// Error returns the error message.
func (e *StoreError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule store %s failed for rule %s: %v", e.Operation, e.RuleID, e.Cause)
	}
	return fmt.Sprintf("rule store %s failed: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewStoreError creates a StoreError.
func NewStoreError(operation, ruleID string, cause error) *StoreError {
	return &StoreError{Operation: operation, RuleID: ruleID, Cause: cause}
}
