package rules

import (
	"encoding/json"
	"sort"
	"testing"
	"time"
)

func TestPriority_Rank(t *testing.T) {
	order := []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() <= order[i].Rank() {
			t.Errorf("%v must outrank %v", order[i-1], order[i])
		}
	}
	if Priority("urgent").IsValid() {
		t.Error("unknown priority must be invalid")
	}
}

func TestRule_Before(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mk := func(id string, p Priority, created time.Time) *Rule {
		return &Rule{ID: id, CreatedAt: created, Config: RuleConfig{Priority: p}}
	}

	shuffled := []*Rule{
		mk("high", PriorityHigh, older),
		mk("critical-b", PriorityCritical, newer),
		mk("low", PriorityLow, older),
		mk("critical-a", PriorityCritical, newer),
		mk("critical-old", PriorityCritical, older),
	}
	sort.SliceStable(shuffled, func(i, j int) bool {
		return shuffled[i].Before(shuffled[j])
	})

	want := []string{"critical-old", "critical-a", "critical-b", "high", "low"}
	for i, id := range want {
		if shuffled[i].ID != id {
			t.Errorf("order[%d] = %s, want %s", i, shuffled[i].ID, id)
		}
	}
}

func TestRule_HasTrigger(t *testing.T) {
	rule := &Rule{Config: RuleConfig{Triggers: []Trigger{{Type: "transaction"}, {Type: "balance-change"}}}}
	if !rule.HasTrigger("transaction") {
		t.Error("declared trigger not found")
	}
	if rule.HasTrigger("time-based") {
		t.Error("undeclared trigger reported")
	}
}

func TestCategoryVocabulary(t *testing.T) {
	tests := []struct {
		org      OrganizationType
		category RuleCategory
		want     bool
	}{
		{OrgFinancialInstitution, "aml-compliance", true},
		{OrgFinancialInstitution, "payment-approval", false},
		{OrgEnterprise, "payment-approval", true},
		{OrgHealthcare, "hipaa-compliance", true},
		{OrgEducation, "trading-limits", false},
	}
	for _, tt := range tests {
		if got := CategoryAllowed(tt.org, tt.category); got != tt.want {
			t.Errorf("CategoryAllowed(%s, %s) = %v, want %v", tt.org, tt.category, got, tt.want)
		}
	}
}

func TestIsBlockingCategory(t *testing.T) {
	if !IsBlockingCategory("aml-compliance") {
		t.Error("aml-compliance must be blocking")
	}
	if !IsBlockingCategory("payment-approval") {
		t.Error("payment-approval must be blocking")
	}
	if IsBlockingCategory("academic-policies") {
		t.Error("academic-policies must not be blocking")
	}
}

func TestOperator_IsNegative(t *testing.T) {
	negatives := []Operator{OperatorNotEquals, OperatorNotContains, OperatorNotIn}
	for _, op := range negatives {
		if !op.IsNegative() {
			t.Errorf("%v must be negative", op)
		}
	}
	positives := []Operator{OperatorEquals, OperatorContains, OperatorIn, OperatorBetween, OperatorRegex}
	for _, op := range positives {
		if op.IsNegative() {
			t.Errorf("%v must be positive", op)
		}
	}
}

func TestCondition_Depth(t *testing.T) {
	leaf := &Condition{ID: "leaf", Field: "a", Operator: OperatorEquals}
	if leaf.Depth() != 1 {
		t.Errorf("leaf depth = %d, want 1", leaf.Depth())
	}

	nested := &Condition{
		ID: "root",
		And: []*Condition{
			{ID: "l1", Or: []*Condition{
				{ID: "l2", Field: "a", Operator: OperatorEquals},
			}},
		},
	}
	if nested.Depth() != 3 {
		t.Errorf("nested depth = %d, want 3", nested.Depth())
	}
}

func TestAction_JSONRoundTrip(t *testing.T) {
	original := &Action{
		ID:   "a1",
		Type: ActionReject,
		Parameters: &RejectParams{
			Message: "sanctioned destination",
		},
		Conditions: []*Condition{{
			ID:       "gate",
			Field:    "transaction.amount",
			Operator: OperatorGreaterThan,
			Value:    float64(1000),
			DataType: DataTypeNumber,
		}},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded Action
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	params, ok := decoded.Parameters.(*RejectParams)
	if !ok {
		t.Fatalf("Parameters = %T, want *RejectParams", decoded.Parameters)
	}
	if params.Message != "sanctioned destination" {
		t.Errorf("Message = %q", params.Message)
	}
	if len(decoded.Conditions) != 1 || decoded.Conditions[0].ID != "gate" {
		t.Errorf("Conditions = %+v", decoded.Conditions)
	}
}

func TestAction_UnmarshalUnknownType(t *testing.T) {
	payload := `{"id":"a1","type":"teleport","parameters":{"x":1}}`
	var decoded Action
	if err := json.Unmarshal([]byte(payload), &decoded); err == nil {
		t.Error("unknown action type with parameters must fail")
	}
}

func TestAction_RejectMessage(t *testing.T) {
	tests := []struct {
		name   string
		action *Action
		want   string
	}{
		{"reject", &Action{Type: ActionReject, Parameters: &RejectParams{Message: "no"}}, "no"},
		{"hold", &Action{Type: ActionHold, Parameters: &HoldParams{Message: "wait"}}, "wait"},
		{"notify has none", &Action{Type: ActionNotify, Parameters: &NotifyParams{Message: "fyi"}}, ""},
		{"nil parameters", &Action{Type: ActionReject}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.RejectMessage(); got != tt.want {
				t.Errorf("RejectMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRule_Clone(t *testing.T) {
	rule := &Rule{
		ID:    "r1",
		Stats: &RuleStats{ExecutionCount: 5},
	}
	cp := rule.Clone()
	cp.Stats.ExecutionCount = 99
	if rule.Stats.ExecutionCount != 5 {
		t.Error("Clone must deep-copy stats")
	}
}
