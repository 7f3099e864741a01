package source

import (
	"testing"
	"time"

	"clearline-hq/gatekeeper/pkg/rules"
)

const sampleDocument = `
rules:
  - id: wire-limit
    name: Wire transfer limit
    organizationType: financial-institution
    category: trading-limits
    createdBy: compliance-team
    createdAt: 2026-01-15T09:00:00Z
    config:
      priority: critical
      status: active
      version: 2
      triggers:
        - type: transaction
      conditions:
        - id: c1
          field: transaction.amount
          operator: greater-than
          value: 250000
          dataType: number
      actions:
        - id: a1
          type: reject
          parameters:
            message: wire exceeds single-transaction limit
        - id: a2
          type: notify
          parameters:
            notificationChannels: [email]
            recipients: [treasury@example.com]
            message: large wire rejected
      execution:
        mode: sync
        timeoutSeconds: 10
        retryPolicy:
          maxAttempts: 3
          backoffMultiplier: 2
      compliance:
        regulations: [BSA]
        auditLog: true
        dataRetention: 365
`

func TestDecodeDocument(t *testing.T) {
	decoded, err := DecodeDocument([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d rules, want 1", len(decoded))
	}

	rule := decoded[0]
	if rule.ID != "wire-limit" {
		t.Errorf("ID = %q", rule.ID)
	}
	if rule.OrganizationType != rules.OrgFinancialInstitution {
		t.Errorf("OrganizationType = %q", rule.OrganizationType)
	}
	if rule.Config.Priority != rules.PriorityCritical {
		t.Errorf("Priority = %q", rule.Config.Priority)
	}
	if rule.Config.Version != 2 {
		t.Errorf("Version = %d, want 2", rule.Config.Version)
	}
	if rule.Config.Execution.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", rule.Config.Execution.Timeout)
	}
	if rp := rule.Config.Execution.RetryPolicy; rp == nil || rp.MaxAttempts != 3 || rp.BackoffMultiplier != 2 {
		t.Errorf("RetryPolicy = %+v", rule.Config.Execution.RetryPolicy)
	}
	if rule.Config.Compliance == nil || rule.Config.Compliance.DataRetention != 365 {
		t.Errorf("Compliance = %+v", rule.Config.Compliance)
	}

	if len(rule.Config.Actions) != 2 {
		t.Fatalf("Actions = %d, want 2", len(rule.Config.Actions))
	}
	reject, ok := rule.Config.Actions[0].Parameters.(*rules.RejectParams)
	if !ok {
		t.Fatalf("action a1 parameters = %T, want *RejectParams", rule.Config.Actions[0].Parameters)
	}
	if reject.Message != "wire exceeds single-transaction limit" {
		t.Errorf("reject message = %q", reject.Message)
	}
	notify, ok := rule.Config.Actions[1].Parameters.(*rules.NotifyParams)
	if !ok {
		t.Fatalf("action a2 parameters = %T, want *NotifyParams", rule.Config.Actions[1].Parameters)
	}
	if len(notify.Recipients) != 1 || notify.Recipients[0] != "treasury@example.com" {
		t.Errorf("notify recipients = %v", notify.Recipients)
	}

	cond := rule.Config.Conditions[0]
	if cond.Operator != rules.OperatorGreaterThan || cond.DataType != rules.DataTypeNumber {
		t.Errorf("condition = %+v", cond)
	}
}

func TestDecodeDocument_Defaults(t *testing.T) {
	doc := `
rules:
  - id: minimal
    name: Minimal rule
    organizationType: enterprise
    category: spending-limits
    config:
      priority: low
      status: active
      triggers:
        - type: transaction
      actions:
        - id: a1
          type: approve
`
	decoded, err := DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	rule := decoded[0]
	if rule.Config.Version != 1 {
		t.Errorf("Version = %d, omitted version must default to 1", rule.Config.Version)
	}
	if rule.Config.Execution.Mode != rules.ModeSync {
		t.Errorf("Mode = %q, omitted mode must default to sync", rule.Config.Execution.Mode)
	}
	if rule.Config.Execution.Timeout != 0 {
		t.Errorf("Timeout = %v, want unset", rule.Config.Execution.Timeout)
	}
}

func TestDecodeDocument_MalformedYAML(t *testing.T) {
	if _, err := DecodeDocument([]byte("rules:\n  - id: [broken")); err == nil {
		t.Error("malformed YAML must fail")
	}
}

func TestDecodeDocument_UnknownActionType(t *testing.T) {
	doc := `
rules:
  - id: bad-action
    name: Bad action
    organizationType: enterprise
    category: spending-limits
    config:
      priority: low
      status: active
      triggers:
        - type: transaction
      actions:
        - id: a1
          type: teleport
          parameters:
            somewhere: else
`
	_, err := DecodeDocument([]byte(doc))
	if err == nil {
		t.Fatal("unknown action type with parameters must fail decoding")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("error = %T, want *ParseError", err)
	}
}
