package audit

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates no context exists for the requested execution ID.
var ErrNotFound = errors.New("execution context not found")

// StorageError represents an error from the audit storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "record", "amend", "query", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

// RecorderError represents an error during context recording.
type RecorderError struct {
	ExecutionID string
	Cause       error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	if e.ExecutionID != "" {
		return fmt.Sprintf("recorder error [execution_id=%s]: %v", e.ExecutionID, e.Cause)
	}
	return fmt.Sprintf("recorder error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(executionID string, cause error) *RecorderError {
	return &RecorderError{ExecutionID: executionID, Cause: cause}
}

// RetentionError represents an error during retention pruning.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: retentionDays, Cause: cause}
}
