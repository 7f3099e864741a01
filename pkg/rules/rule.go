package rules

import "time"

// Priority orders rules for evaluation. Critical rules run first; ties are
// broken by CreatedAt ascending so an older rule wins precedence, then by
// rule ID for a fully deterministic order.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank returns the numeric precedence of a priority, higher first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// IsValid returns true if the priority is one of the known values.
func (p Priority) IsValid() bool {
	return p.Rank() > 0
}

// Status is the lifecycle state of a rule. Only active rules are selected
// for real trigger events; testing rules are selectable only in test mode.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusTesting  Status = "testing"
	StatusArchived Status = "archived"
)

// IsValid returns true if the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusTesting, StatusArchived:
		return true
	}
	return false
}

// Trigger declares an event type a rule reacts to.
type Trigger struct {
	Type       string                 `yaml:"type" json:"type"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// ExecutionMode selects how a rule's actions run relative to the caller.
type ExecutionMode string

const (
	// ModeSync blocks the engine invocation until each action's collaborator
	// call returns or the rule's timeout elapses.
	ModeSync ExecutionMode = "sync"

	// ModeAsync enqueues collaborator actions for out-of-band execution and
	// returns immediately with a deferred marker.
	ModeAsync ExecutionMode = "async"
)

// RetryPolicy governs retries of transient collaborator failures.
// Delay for attempt n is baseDelay * BackoffMultiplier^(n-1), capped by the
// executor's backoff ceiling.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"maxAttempts" json:"maxAttempts"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier" json:"backoffMultiplier"`
}

// ExecutionConfig bundles a rule's execution mode, timeout and retry policy.
type ExecutionConfig struct {
	Mode        ExecutionMode `yaml:"mode" json:"mode"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryPolicy *RetryPolicy  `yaml:"retryPolicy,omitempty" json:"retryPolicy,omitempty"`
}

// ComplianceConfig carries the audit obligations attached to a rule.
// Contract and workflow action results are recorded even when AuditLog is
// false; compliance actions are never silently dropped from the trail.
type ComplianceConfig struct {
	Regulations   []string `yaml:"regulations,omitempty" json:"regulations,omitempty"`
	AuditLog      bool     `yaml:"auditLog" json:"auditLog"`
	DataRetention int      `yaml:"dataRetention,omitempty" json:"dataRetention,omitempty"` // days
}

// RuleConfig is the versioned, mutable part of a rule. Version increments on
// every update and backs the registry's optimistic-concurrency check.
type RuleConfig struct {
	Priority   Priority          `yaml:"priority" json:"priority"`
	Status     Status            `yaml:"status" json:"status"`
	Version    int               `yaml:"version" json:"version"`
	Triggers   []Trigger         `yaml:"triggers" json:"triggers"`
	Conditions []*Condition      `yaml:"conditions" json:"conditions"`
	Actions    []*Action         `yaml:"actions" json:"actions"`
	Execution  ExecutionConfig   `yaml:"execution" json:"execution"`
	Compliance *ComplianceConfig `yaml:"compliance,omitempty" json:"compliance,omitempty"`
}

// RuleStats accumulates execution counters for a rule.
type RuleStats struct {
	ExecutionCount   int64         `json:"executionCount"`
	SuccessCount     int64         `json:"successCount"`
	FailureCount     int64         `json:"failureCount"`
	AvgExecutionTime time.Duration `json:"avgExecutionTime"`
}

// Rule is the aggregate root: identity, organization scoping, the versioned
// config, and audit stamps. A rule is owned by the registry's backing store;
// the engine holds only transient references during an evaluation pass.
type Rule struct {
	ID               string           `yaml:"id" json:"id"`
	Name             string           `yaml:"name" json:"name"`
	Description      string           `yaml:"description,omitempty" json:"description,omitempty"`
	OrganizationType OrganizationType `yaml:"organizationType" json:"organizationType"`
	Category         RuleCategory     `yaml:"category" json:"category"`
	Config           RuleConfig       `yaml:"config" json:"config"`
	CreatedBy        string           `yaml:"createdBy" json:"createdBy"`
	CreatedAt        time.Time        `yaml:"createdAt" json:"createdAt"`
	UpdatedBy        string           `yaml:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedAt        time.Time        `yaml:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	Stats            *RuleStats       `yaml:"-" json:"stats,omitempty"`
}

// HasTrigger reports whether the rule declares a trigger of the given type.
func (r *Rule) HasTrigger(triggerType string) bool {
	for _, t := range r.Config.Triggers {
		if t.Type == triggerType {
			return true
		}
	}
	return false
}

// IsBlockingCategory reports whether the rule belongs to a category that
// gates money movement.
func (r *Rule) IsBlockingCategory() bool {
	return IsBlockingCategory(r.Category)
}

// Clone returns a shallow copy of the rule with a deep-copied config header.
// Conditions and actions are shared; they are treated as immutable once a
// rule is validated.
func (r *Rule) Clone() *Rule {
	cp := *r
	if r.Stats != nil {
		stats := *r.Stats
		cp.Stats = &stats
	}
	return &cp
}

// Before reports whether r precedes other in deterministic evaluation order:
// higher priority rank first, then CreatedAt ascending, then ID ascending.
func (r *Rule) Before(other *Rule) bool {
	ri, oi := r.Config.Priority.Rank(), other.Config.Priority.Rank()
	if ri != oi {
		return ri > oi
	}
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.Before(other.CreatedAt)
	}
	return r.ID < other.ID
}
