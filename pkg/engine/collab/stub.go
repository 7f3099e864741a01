package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// StubNotifier records sent notifications in memory. Used by the example
// binary and by test mode, where rule actions run against dry-run
// collaborators.
type StubNotifier struct {
	mu   sync.Mutex
	sent []StubNotification

	// Fail, when set, makes every Send return this error.
	Fail error
}

// StubNotification is one recorded Send call.
type StubNotification struct {
	Channels   []string
	Recipients []string
	Message    string
}

// Send records the notification.
func (n *StubNotifier) Send(_ context.Context, channels, recipients []string, message string) error {
	if n.Fail != nil {
		return n.Fail
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, StubNotification{
		Channels:   append([]string(nil), channels...),
		Recipients: append([]string(nil), recipients...),
		Message:    message,
	})
	return nil
}

// Sent returns a copy of the recorded notifications.
func (n *StubNotifier) Sent() []StubNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]StubNotification, len(n.sent))
	copy(out, n.sent)
	return out
}

// StubContractCaller returns synthetic transaction results.
type StubContractCaller struct {
	mu    sync.Mutex
	calls int

	// Fail, when set, makes every Call return this error.
	Fail error
	// FailFirst makes the first N calls return a transient error before
	// succeeding, for retry tests.
	FailFirst int
}

// Call returns a synthetic transaction hash.
func (c *StubContractCaller) Call(_ context.Context, contractAddress, functionName string, _ map[string]interface{}, _ uint64) (*TxResult, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()

	if c.Fail != nil {
		return nil, c.Fail
	}
	if n <= c.FailFirst {
		return nil, NewTransientError(fmt.Errorf("contract %s.%s unreachable", contractAddress, functionName))
	}
	return &TxResult{TxHash: "0x" + uuid.New().String(), GasUsed: 21000}, nil
}

// Calls returns how many times Call was invoked.
func (c *StubContractCaller) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// StubWorkflowRunner returns synthetic run IDs.
type StubWorkflowRunner struct {
	mu      sync.Mutex
	started []string

	// Fail, when set, makes every Start return this error.
	Fail error
}

// Start records the workflow ID and returns a fresh run ID.
func (w *StubWorkflowRunner) Start(_ context.Context, workflowID string, _ map[string]interface{}) (string, error) {
	if w.Fail != nil {
		return "", w.Fail
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.started = append(w.started, workflowID)
	return "run-" + uuid.New().String(), nil
}

// Started returns the workflow IDs passed to Start, in order.
func (w *StubWorkflowRunner) Started() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.started))
	copy(out, w.started)
	return out
}
