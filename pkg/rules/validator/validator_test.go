package validator

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clearline-hq/gatekeeper/pkg/rules"
)

func baseRule() *rules.Rule {
	return &rules.Rule{
		ID:               "wire-limit",
		Name:             "Wire transfer limit",
		OrganizationType: rules.OrgFinancialInstitution,
		Category:         "trading-limits",
		CreatedBy:        "compliance-team",
		CreatedAt:        time.Now(),
		Config: rules.RuleConfig{
			Priority: rules.PriorityCritical,
			Status:   rules.StatusActive,
			Version:  1,
			Triggers: []rules.Trigger{{Type: "transaction"}},
			Conditions: []*rules.Condition{{
				ID:       "c1",
				Field:    "transaction.amount",
				Operator: rules.OperatorGreaterThan,
				Value:    float64(250000),
				DataType: rules.DataTypeNumber,
			}},
			Actions: []*rules.Action{{
				ID:         "a1",
				Type:       rules.ActionReject,
				Parameters: &rules.RejectParams{Message: "over limit"},
			}},
			Execution: rules.ExecutionConfig{Mode: rules.ModeSync},
		},
	}
}

func TestValidate_ValidRule(t *testing.T) {
	if err := NewValidator().Validate(baseRule()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Structure(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*rules.Rule)
		wantMsg string
	}{
		{"missing id", func(r *rules.Rule) { r.ID = "" }, "rule id is required"},
		{"missing name", func(r *rules.Rule) { r.Name = "" }, "rule name is required"},
		{"unknown org type", func(r *rules.Rule) { r.OrganizationType = "startup" }, "unknown organization type"},
		{"unknown priority", func(r *rules.Rule) { r.Config.Priority = "urgent" }, "unknown priority"},
		{"unknown status", func(r *rules.Rule) { r.Config.Status = "draft" }, "unknown status"},
		{"zero version", func(r *rules.Rule) { r.Config.Version = 0 }, "version must be >= 1"},
		{"no triggers", func(r *rules.Rule) { r.Config.Triggers = nil }, "at least one trigger"},
		{"no actions", func(r *rules.Rule) { r.Config.Actions = nil }, "at least one action"},
		{"unknown execution mode", func(r *rules.Rule) { r.Config.Execution.Mode = "batch" }, "unknown execution mode"},
		{
			"bad retry policy",
			func(r *rules.Rule) {
				r.Config.Execution.RetryPolicy = &rules.RetryPolicy{MaxAttempts: 0, BackoffMultiplier: 0.5}
			},
			"maxAttempts must be >= 1",
		},
		{
			"duplicate condition ids",
			func(r *rules.Rule) {
				r.Config.Conditions = append(r.Config.Conditions, &rules.Condition{
					ID:       "c1",
					Field:    "transaction.currency",
					Operator: rules.OperatorEquals,
					Value:    "USD",
					DataType: rules.DataTypeString,
				})
			},
			"duplicate condition id",
		},
		{
			"empty combinator node",
			func(r *rules.Rule) {
				r.Config.Conditions = []*rules.Condition{{ID: "empty"}}
			},
			"leaf test or carry and/or children",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := baseRule()
			tt.mutate(rule)
			err := v.Validate(rule)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_ConditionDepthLimit(t *testing.T) {
	deep := &rules.Condition{ID: "leaf", Field: "a", Operator: rules.OperatorEquals, Value: "x", DataType: rules.DataTypeString}
	for i := 0; i <= rules.MaxConditionDepth; i++ {
		deep = &rules.Condition{ID: fmt.Sprintf("n%d", i), And: []*rules.Condition{deep}}
	}
	rule := baseRule()
	rule.Config.Conditions = []*rules.Condition{deep}

	err := NewValidator().Validate(rule)
	if err == nil || !strings.Contains(err.Error(), "maximum depth") {
		t.Errorf("error = %v, want depth violation", err)
	}
}

func TestValidate_Semantics(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*rules.Rule)
		wantMsg string
	}{
		{
			"category outside org vocabulary",
			func(r *rules.Rule) { r.Category = "hipaa-compliance" },
			"not in the financial-institution vocabulary",
		},
		{
			"operator incompatible with data type",
			func(r *rules.Rule) {
				r.Config.Conditions[0].Operator = rules.OperatorGreaterThan
				r.Config.Conditions[0].DataType = rules.DataTypeString
			},
			"not compatible",
		},
		{
			"between without a pair",
			func(r *rules.Rule) {
				r.Config.Conditions[0].Operator = rules.OperatorBetween
				r.Config.Conditions[0].Value = float64(5)
			},
			"2-element",
		},
		{
			"in without a list",
			func(r *rules.Rule) {
				r.Config.Conditions[0].Operator = rules.OperatorIn
				r.Config.Conditions[0].DataType = rules.DataTypeNumber
				r.Config.Conditions[0].Value = float64(5)
			},
			"requires a list",
		},
		{
			"invalid regex pattern",
			func(r *rules.Rule) {
				r.Config.Conditions[0].Operator = rules.OperatorRegex
				r.Config.Conditions[0].DataType = rules.DataTypeString
				r.Config.Conditions[0].Value = "[unclosed"
			},
			"invalid regex",
		},
		{
			"action gate conditions checked too",
			func(r *rules.Rule) {
				r.Config.Actions[0].Conditions = []*rules.Condition{{
					ID:       "gate",
					Field:    "transaction.memo",
					Operator: rules.OperatorRegex,
					Value:    "[unclosed",
					DataType: rules.DataTypeString,
				}}
			},
			"invalid regex",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := baseRule()
			tt.mutate(rule)
			err := v.Validate(rule)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_ActionParams(t *testing.T) {
	tests := []struct {
		name    string
		action  *rules.Action
		wantMsg string
	}{
		{
			"reject without message",
			&rules.Action{ID: "a1", Type: rules.ActionReject, Parameters: &rules.RejectParams{}},
			"reject requires a message",
		},
		{
			"notify without recipients",
			&rules.Action{ID: "a1", Type: rules.ActionNotify, Parameters: &rules.NotifyParams{
				NotificationChannels: []string{"email"},
			}},
			"at least one recipient",
		},
		{
			"escalate without approvers",
			&rules.Action{ID: "a1", Type: rules.ActionEscalate, Parameters: &rules.EscalateParams{}},
			"at least one approver",
		},
		{
			"contract without address",
			&rules.Action{ID: "a1", Type: rules.ActionExecuteContract, Parameters: &rules.ContractParams{
				FunctionName: "settle",
			}},
			"contractAddress is required",
		},
		{
			"workflow without id",
			&rules.Action{ID: "a1", Type: rules.ActionTriggerWorkflow, Parameters: &rules.WorkflowParams{}},
			"requires a workflowId",
		},
		{
			"variant mismatch",
			&rules.Action{ID: "a1", Type: rules.ActionReject, Parameters: &rules.HoldParams{Message: "wait"}},
			"does not match action type",
		},
		{
			"unknown type",
			&rules.Action{ID: "a1", Type: "teleport"},
			"unknown action type",
		},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := baseRule()
			rule.Config.Actions = []*rules.Action{tt.action}
			err := v.Validate(rule)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	rule := baseRule()
	rule.Category = "hipaa-compliance"
	rule.Config.Actions = []*rules.Action{{ID: "a1", Type: rules.ActionReject, Parameters: &rules.RejectParams{}}}

	err := NewValidator().Validate(rule)
	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error = %T, want *ErrorList", err)
	}
	if len(list.Errors) != 2 {
		t.Errorf("accumulated %d errors, want 2", len(list.Errors))
	}
}

func TestValidate_DuplicateActionIDs(t *testing.T) {
	rule := baseRule()
	rule.Config.Actions = append(rule.Config.Actions, &rules.Action{
		ID:         "a1",
		Type:       rules.ActionApprove,
		Parameters: &rules.ApproveParams{},
	})
	err := NewValidator().Validate(rule)
	if err == nil || !strings.Contains(err.Error(), "duplicate action id") {
		t.Errorf("error = %v, want duplicate action id", err)
	}
}
