package validator

import (
	"fmt"

	"clearline-hq/gatekeeper/pkg/rules"
)

// Validator orchestrates structural, semantic and action validation of rules.
type Validator struct{}

// NewValidator creates a new rule validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs all validation passes on a rule. Errors from every pass are
// accumulated; semantic and action passes are skipped when the structure is
// broken, to avoid cascading noise.
func (v *Validator) Validate(rule *rules.Rule) error {
	errs := &ErrorList{}

	v.validateStructure(rule, errs)
	if errs.HasErrors() {
		return errs
	}

	v.validateSemantics(rule, errs)
	v.validateActions(rule, errs)

	return errs.ToError()
}

// validateStructure checks identity fields and the shape of the condition
// tree and action list.
func (v *Validator) validateStructure(rule *rules.Rule, errs *ErrorList) {
	if rule.ID == "" {
		errs.Add(rule.ID, "id", "rule id is required")
	}
	if rule.Name == "" {
		errs.Add(rule.ID, "name", "rule name is required")
	}
	if !rule.OrganizationType.IsValid() {
		errs.Add(rule.ID, "organizationType", "unknown organization type %q", rule.OrganizationType)
	}
	if !rule.Config.Priority.IsValid() {
		errs.Add(rule.ID, "config.priority", "unknown priority %q", rule.Config.Priority)
	}
	if !rule.Config.Status.IsValid() {
		errs.Add(rule.ID, "config.status", "unknown status %q", rule.Config.Status)
	}
	if rule.Config.Version < 1 {
		errs.Add(rule.ID, "config.version", "version must be >= 1, got %d", rule.Config.Version)
	}
	if len(rule.Config.Triggers) == 0 {
		errs.Add(rule.ID, "config.triggers", "at least one trigger is required")
	}
	for i, t := range rule.Config.Triggers {
		if t.Type == "" {
			errs.Add(rule.ID, fmt.Sprintf("config.triggers[%d].type", i), "trigger type is required")
		}
	}
	if len(rule.Config.Actions) == 0 {
		errs.Add(rule.ID, "config.actions", "at least one action is required")
	}

	switch rule.Config.Execution.Mode {
	case rules.ModeSync, rules.ModeAsync:
	default:
		errs.Add(rule.ID, "config.execution.mode", "unknown execution mode %q", rule.Config.Execution.Mode)
	}
	if rp := rule.Config.Execution.RetryPolicy; rp != nil {
		if rp.MaxAttempts < 1 {
			errs.Add(rule.ID, "config.execution.retryPolicy.maxAttempts", "maxAttempts must be >= 1, got %d", rp.MaxAttempts)
		}
		if rp.BackoffMultiplier < 1 {
			errs.Add(rule.ID, "config.execution.retryPolicy.backoffMultiplier", "backoffMultiplier must be >= 1, got %g", rp.BackoffMultiplier)
		}
	}

	seen := make(map[string]bool)
	for i, cond := range rule.Config.Conditions {
		v.validateConditionShape(rule.ID, fmt.Sprintf("config.conditions[%d]", i), cond, 1, seen, errs)
	}
}

// validateConditionShape checks one node of a condition tree: identity,
// leaf-or-combinator shape, nesting depth, and unique IDs across the rule.
func (v *Validator) validateConditionShape(ruleID, path string, cond *rules.Condition, depth int, seen map[string]bool, errs *ErrorList) {
	if cond == nil {
		errs.Add(ruleID, path, "condition is nil")
		return
	}
	if depth > rules.MaxConditionDepth {
		errs.Add(ruleID, path, "condition tree exceeds maximum depth %d", rules.MaxConditionDepth)
		return
	}
	if cond.ID == "" {
		errs.Add(ruleID, path+".id", "condition id is required")
	} else if seen[cond.ID] {
		errs.Add(ruleID, path+".id", "duplicate condition id %q", cond.ID)
	} else {
		seen[cond.ID] = true
	}

	if !cond.IsLeaf() && !cond.HasChildren() {
		errs.Add(ruleID, path, "condition must be a leaf test or carry and/or children")
	}

	for i, child := range cond.And {
		v.validateConditionShape(ruleID, fmt.Sprintf("%s.and[%d]", path, i), child, depth+1, seen, errs)
	}
	for i, child := range cond.Or {
		v.validateConditionShape(ruleID, fmt.Sprintf("%s.or[%d]", path, i), child, depth+1, seen, errs)
	}
}
