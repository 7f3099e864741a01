package audit

import (
	"context"
	"time"

	"clearline-hq/gatekeeper/pkg/rules"
)

// ExecutionStatus is the terminal (or in-flight) state of a rule's
// execution context.
type ExecutionStatus string

const (
	// StatusRunning marks a context still being mutated by its invocation.
	StatusRunning ExecutionStatus = "running"

	// StatusCompleted marks a context whose conditions (and, if matched,
	// actions) ran to completion.
	StatusCompleted ExecutionStatus = "completed"

	// StatusFailed marks a context that ended in a timeout or a terminal
	// action failure.
	StatusFailed ExecutionStatus = "failed"

	// StatusSkippedPrecedence marks a rule whose actions were not executed
	// because a higher-priority rule already produced a blocking decision.
	StatusSkippedPrecedence ExecutionStatus = "skipped-due-to-precedence"
)

// ActionStatus is the outcome of a single action execution.
type ActionStatus string

const (
	ActionSuccess ActionStatus = "success"
	ActionFailure ActionStatus = "failure"
	ActionSkipped ActionStatus = "skipped"
)

// TriggerSnapshot is the immutable copy of the trigger event embedded in
// every context so the trail is self-contained.
type TriggerSnapshot struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
}

// ConditionResult records the evaluation of one condition node. The engine
// records a result for every node visited, not just the root, so the
// short-circuit order is observable in the trace.
type ConditionResult struct {
	ConditionID    string        `json:"conditionId"`
	Result         bool          `json:"result"`
	EvaluationTime time.Duration `json:"evaluationTime"`
	Error          string        `json:"error,omitempty"`
}

// ActionResult records the execution of one action.
type ActionResult struct {
	ActionID      string                 `json:"actionId"`
	Type          rules.ActionType       `json:"type"`
	Status        ActionStatus           `json:"status"`
	Result        map[string]interface{} `json:"result,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ExecutionTime time.Duration          `json:"executionTime"`
	Attempts      int                    `json:"attempts,omitempty"`
	SkipReason    string                 `json:"skipReason,omitempty"`
}

// Deferred reports whether this result marks an async action still running
// out-of-band; its terminal result arrives later via Amend.
func (r *ActionResult) Deferred() bool {
	if r.Result == nil {
		return false
	}
	deferred, _ := r.Result["deferred"].(bool)
	return deferred
}

// RuleExecutionContext is the audit record for one rule within one engine
// invocation. ExecutionID is globally unique and supports idempotent
// re-delivery detection together with the caller-supplied idempotency key.
type RuleExecutionContext struct {
	ExecutionID      string                 `json:"executionId"`
	RuleID           string                 `json:"ruleId"`
	OrganizationType rules.OrganizationType `json:"organizationType"`
	Trigger          TriggerSnapshot        `json:"trigger"`

	StartTime        time.Time          `json:"startTime"`
	EndTime          time.Time          `json:"endTime,omitempty"`
	Status           ExecutionStatus    `json:"status"`
	Matched          bool               `json:"matched"`
	Anomaly          bool               `json:"anomaly,omitempty"`
	ConditionResults []*ConditionResult `json:"conditionResults,omitempty"`
	ActionResults    []*ActionResult    `json:"actionResults,omitempty"`

	Outcome        string            `json:"outcome,omitempty"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Complete marks the context terminal with the given status.
func (c *RuleExecutionContext) Complete(status ExecutionStatus) {
	c.Status = status
	c.EndTime = time.Now()
}

// HasDeferredActions reports whether any recorded action result is still
// pending out-of-band completion.
func (c *RuleExecutionContext) HasDeferredActions() bool {
	for _, ar := range c.ActionResults {
		if ar.Deferred() {
			return true
		}
	}
	return false
}

// Amendment is the append-only completion of a deferred async action,
// applied to an already-persisted context.
type Amendment struct {
	ExecutionID string        `json:"executionId"`
	ActionID    string        `json:"actionId"`
	Status      ActionStatus  `json:"status"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completedAt"`
}

// Query defines filter parameters for querying execution contexts.
type Query struct {
	RuleID         string          `json:"ruleId,omitempty"`
	TriggerType    string          `json:"triggerType,omitempty"`
	Status         ExecutionStatus `json:"status,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	StartTime      *time.Time      `json:"startTime,omitempty"` // inclusive
	EndTime        *time.Time      `json:"endTime,omitempty"`   // inclusive

	// ExcludeRuleIDs removes the named rules from the result set. Used by
	// retention pruning to carve out rules with extended windows.
	ExcludeRuleIDs []string `json:"excludeRuleIds,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store is the persistence contract for execution contexts.
// Implementations must be safe for concurrent use.
type Store interface {
	// Record persists a context. Contexts are immutable after Record;
	// only Amend may touch them afterwards.
	Record(ctx context.Context, rec *RuleExecutionContext) error

	// Amend appends an async action completion to a persisted context.
	Amend(ctx context.Context, amendment *Amendment) error

	// Get retrieves a context by execution ID.
	Get(ctx context.Context, executionID string) (*RuleExecutionContext, error)

	// Query retrieves contexts matching the filters.
	Query(ctx context.Context, query *Query) ([]*RuleExecutionContext, error)

	// Count returns the number of contexts matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes contexts matching the filters and returns how many
	// were removed. Used by retention pruning.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the store.
	Close() error
}
