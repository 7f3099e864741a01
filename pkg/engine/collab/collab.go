// Package collab declares the external collaborator interfaces the action
// executor invokes: notification dispatch, smart-contract execution and
// workflow triggering. The engine depends only on these contracts; real
// transports live outside the BRF core.
//
// Collaborator failures are split into transient and terminal. Transient
// failures (network, timeout) are retryable per the rule's retry policy;
// terminal failures (malformed call, explicit business rejection such as a
// contract revert) fail on first attempt.
package collab

import (
	"context"
	"errors"
	"fmt"
)

// Notifier dispatches notifications and escalations.
type Notifier interface {
	// Send delivers a message to the given recipients over the given
	// channels.
	Send(ctx context.Context, channels, recipients []string, message string) error
}

// TxResult is the outcome of a smart-contract call.
type TxResult struct {
	TxHash  string
	GasUsed uint64
}

// ContractCaller executes smart-contract functions.
type ContractCaller interface {
	// Call invokes a contract function and returns the transaction result.
	Call(ctx context.Context, contractAddress, functionName string, params map[string]interface{}, gasLimit uint64) (*TxResult, error)
}

// WorkflowRunner starts external workflows.
type WorkflowRunner interface {
	// Start launches a workflow run and returns its run ID.
	Start(ctx context.Context, workflowID string, params map[string]interface{}) (string, error)
}

// TransientError marks a collaborator failure as retryable.
type TransientError struct {
	Cause error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient collaborator error: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *TransientError) Unwrap() error {
	return e.Cause
}

// NewTransientError wraps a cause as retryable.
func NewTransientError(cause error) *TransientError {
	return &TransientError{Cause: cause}
}

// TerminalError marks a collaborator failure as non-retryable, e.g. a
// contract revert or a request the collaborator rejected outright.
type TerminalError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *TerminalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("terminal collaborator error: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("terminal collaborator error: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *TerminalError) Unwrap() error {
	return e.Cause
}

// NewTerminalError creates a non-retryable collaborator error.
func NewTerminalError(reason string, cause error) *TerminalError {
	return &TerminalError{Reason: reason, Cause: cause}
}

// IsTransient reports whether the error chain contains a TransientError.
// Context deadline errors from the collaborator call are treated as
// transient as well.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
