package engine

import (
	"context"
	"time"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/rules"
)

// TriggerEvent is an external event that causes rule evaluation.
type TriggerEvent struct {
	// Type identifies the event kind ("transaction", "balance-change",
	// "time-based", ...). Matched against rule trigger declarations.
	Type string `json:"type"`

	// OrganizationType scopes which rules are candidates.
	OrganizationType rules.OrganizationType `json:"organizationType"`

	// Source identifies the emitting system.
	Source string `json:"source"`

	// Data is the event payload conditions are evaluated against, using
	// dotted-path field lookup.
	Data map[string]interface{} `json:"data"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is a caller-supplied token. Delivery is at-least-once;
	// on a duplicate key the engine will not re-execute contract or workflow
	// actions.
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Outcome is the aggregate decision of an engine invocation.
type Outcome string

const (
	OutcomeApprove  Outcome = "approve"
	OutcomeReject   Outcome = "reject"
	OutcomeHold     Outcome = "hold"
	OutcomeEscalate Outcome = "escalate"
)

// restrictiveness ranks outcomes so the engine can reduce per-action results
// to the most restrictive one.
var restrictiveness = map[Outcome]int{
	OutcomeApprove:  1,
	OutcomeEscalate: 2,
	OutcomeHold:     3,
	OutcomeReject:   4,
}

// MoreRestrictive reports whether o ranks above other.
func (o Outcome) MoreRestrictive(other Outcome) bool {
	return restrictiveness[o] > restrictiveness[other]
}

// outcomeForAction maps a successfully executed action type to its outcome
// contribution. Actions without a decision semantic (notify, log, contracts,
// workflows) contribute nothing.
func outcomeForAction(t rules.ActionType) (Outcome, bool) {
	switch t {
	case rules.ActionApprove:
		return OutcomeApprove, true
	case rules.ActionReject:
		return OutcomeReject, true
	case rules.ActionHold:
		return OutcomeHold, true
	case rules.ActionEscalate:
		return OutcomeEscalate, true
	default:
		return "", false
	}
}

// Decision is the result of one HandleTrigger invocation.
type Decision struct {
	// Outcome is the most restrictive action result across all executed
	// actions, approve when no rule matched.
	Outcome Outcome `json:"outcome"`

	// Reason is the human-readable explanation for a reject or hold,
	// taken from the deciding action's parameters.
	Reason string `json:"reason,omitempty"`

	// MatchedRuleIDs lists rules whose conditions evaluated true, in
	// evaluation order.
	MatchedRuleIDs []string `json:"matchedRuleIds"`

	// ExecutionContextIDs lists the execution contexts recorded for this
	// invocation, one per candidate rule.
	ExecutionContextIDs []string `json:"executionContextIds"`

	// EvaluationTime is the total invocation wall time.
	EvaluationTime time.Duration `json:"evaluationTime"`

	// TestMode marks a dry-run decision produced by TestTrigger.
	TestMode bool `json:"testMode,omitempty"`
}

// RuleProvider supplies candidate rules for a trigger. Implemented by the
// registry.
type RuleProvider interface {
	// GetCandidates returns active rules matching the organization type and
	// trigger type, sorted by priority with deterministic tie-breaks.
	GetCandidates(orgType rules.OrganizationType, triggerType string) []*rules.Rule

	// GetTestCandidates returns testing rules merged with the active set in
	// the same order, used by the dry-run path.
	GetTestCandidates(orgType rules.OrganizationType, triggerType string) []*rules.Rule
}

// Recorder persists execution contexts and their async amendments.
// Implemented by the audit recorder.
type Recorder interface {
	// Record persists a context exactly once.
	Record(ctx context.Context, rec *audit.RuleExecutionContext) error

	// Amend appends an async action completion to a persisted context.
	Amend(ctx context.Context, amendment *audit.Amendment) error

	// ByIdempotencyKey returns previously recorded contexts carrying the
	// given idempotency key.
	ByIdempotencyKey(ctx context.Context, key string) ([]*audit.RuleExecutionContext, error)
}
