package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"clearline-hq/gatekeeper/pkg/rules"
)

func validRule(id string, priority rules.Priority, createdAt time.Time) *rules.Rule {
	return &rules.Rule{
		ID:               id,
		Name:             id,
		OrganizationType: rules.OrgFinancialInstitution,
		Category:         "trading-limits",
		CreatedBy:        "compliance-team",
		CreatedAt:        createdAt,
		Config: rules.RuleConfig{
			Priority: priority,
			Status:   rules.StatusActive,
			Version:  1,
			Triggers: []rules.Trigger{{Type: "transaction"}},
			Conditions: []*rules.Condition{{
				ID:       id + "-c1",
				Field:    "transaction.amount",
				Operator: rules.OperatorGreaterThan,
				Value:    float64(1000),
				DataType: rules.DataTypeNumber,
			}},
			Actions: []*rules.Action{{
				ID:         id + "-a1",
				Type:       rules.ActionReject,
				Parameters: &rules.RejectParams{Message: "blocked"},
			}},
			Execution: rules.ExecutionConfig{Mode: rules.ModeSync},
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(context.Background(), NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestRegistry_UpsertAndGet(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	rule := validRule("r1", rules.PriorityHigh, time.Now())
	if err := reg.Upsert(ctx, rule); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, ok := reg.Get("r1")
	if !ok {
		t.Fatal("Get: rule not indexed after upsert")
	}
	if got.Config.Version != 1 {
		t.Errorf("Version = %d, want 1", got.Config.Version)
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d, want 1", reg.Count())
	}
}

func TestRegistry_UpsertVersionConflict(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	rule := validRule("r1", rules.PriorityHigh, time.Now())
	if err := reg.Upsert(ctx, rule); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	// Re-submitting the same version must be refused.
	stale := validRule("r1", rules.PriorityHigh, time.Now())
	stale.Config.Version = 1
	err := reg.Upsert(ctx, stale)
	var conflict *ConcurrentModificationError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %T, want ConcurrentModificationError", err)
	}
	if conflict.CurrentVersion != 1 || conflict.SubmittedVersion != 1 {
		t.Errorf("conflict = %+v", conflict)
	}

	// Version current+1 is accepted.
	next := validRule("r1", rules.PriorityLow, time.Now())
	next.Config.Version = 2
	if err := reg.Upsert(ctx, next); err != nil {
		t.Fatalf("versioned upsert: %v", err)
	}
	got, _ := reg.Get("r1")
	if got.Config.Priority != rules.PriorityLow {
		t.Errorf("Priority = %v, want updated value", got.Config.Priority)
	}

	// Skipping versions is also a conflict.
	skip := validRule("r1", rules.PriorityLow, time.Now())
	skip.Config.Version = 5
	if err := reg.Upsert(ctx, skip); !errors.As(err, &conflict) {
		t.Fatalf("error = %T, want ConcurrentModificationError", err)
	}
}

func TestRegistry_UpsertRejectsInvalidRule(t *testing.T) {
	reg := newTestRegistry(t)

	invalid := validRule("r1", rules.PriorityHigh, time.Now())
	invalid.Config.Triggers = nil
	if err := reg.Upsert(context.Background(), invalid); err == nil {
		t.Error("upsert must refuse a rule with no triggers")
	}
	if reg.Count() != 0 {
		t.Errorf("Count = %d, invalid rule must not be indexed", reg.Count())
	}
}

func TestRegistry_CandidateOrdering(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose.
	for _, rule := range []*rules.Rule{
		validRule("low", rules.PriorityLow, older),
		validRule("critical-b", rules.PriorityCritical, newer),
		validRule("critical-a", rules.PriorityCritical, newer),
		validRule("critical-old", rules.PriorityCritical, older),
		validRule("high", rules.PriorityHigh, older),
	} {
		if err := reg.Upsert(ctx, rule); err != nil {
			t.Fatalf("Upsert(%s): %v", rule.ID, err)
		}
	}

	candidates := reg.GetCandidates(rules.OrgFinancialInstitution, "transaction")
	want := []string{"critical-old", "critical-a", "critical-b", "high", "low"}
	if len(candidates) != len(want) {
		t.Fatalf("candidates = %d, want %d", len(candidates), len(want))
	}
	for i, id := range want {
		if candidates[i].ID != id {
			t.Errorf("candidates[%d] = %s, want %s", i, candidates[i].ID, id)
		}
	}
}

func TestRegistry_CandidateScoping(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	fin := validRule("fin", rules.PriorityHigh, time.Now())
	if err := reg.Upsert(ctx, fin); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	ent := validRule("ent", rules.PriorityHigh, time.Now())
	ent.OrganizationType = rules.OrgEnterprise
	ent.Category = "spending-limits"
	if err := reg.Upsert(ctx, ent); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if got := reg.GetCandidates(rules.OrgFinancialInstitution, "transaction"); len(got) != 1 || got[0].ID != "fin" {
		t.Errorf("financial candidates = %v", got)
	}
	if got := reg.GetCandidates(rules.OrgEnterprise, "transaction"); len(got) != 1 || got[0].ID != "ent" {
		t.Errorf("enterprise candidates = %v", got)
	}
	if got := reg.GetCandidates(rules.OrgFinancialInstitution, "balance-change"); len(got) != 0 {
		t.Errorf("unmatched trigger type candidates = %v", got)
	}
}

func TestRegistry_TestCandidatesMergeActiveSet(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	active := validRule("active", rules.PriorityHigh, newer)
	if err := reg.Upsert(ctx, active); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	draft := validRule("draft", rules.PriorityCritical, older)
	draft.Config.Status = rules.StatusTesting
	if err := reg.Upsert(ctx, draft); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	inactive := validRule("paused", rules.PriorityHigh, older)
	inactive.Config.Status = rules.StatusInactive
	if err := reg.Upsert(ctx, inactive); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Real triggers see only the active rule.
	if got := reg.GetCandidates(rules.OrgFinancialInstitution, "transaction"); len(got) != 1 || got[0].ID != "active" {
		t.Errorf("active candidates = %v", got)
	}

	// Dry runs see the draft merged into the active set, in priority order,
	// so precedence interactions with live rules surface before activation.
	got := reg.GetTestCandidates(rules.OrgFinancialInstitution, "transaction")
	if len(got) != 2 || got[0].ID != "draft" || got[1].ID != "active" {
		t.Errorf("test candidates = %v, want [draft active]", got)
	}
	if reg.Count() != 3 {
		t.Errorf("Count = %d, inactive rules still indexed by ID", reg.Count())
	}
}

func TestRegistry_Delete(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.Upsert(ctx, validRule("r1", rules.PriorityHigh, time.Now())); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := reg.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := reg.Get("r1"); ok {
		t.Error("deleted rule still indexed")
	}
	if err := reg.Delete(ctx, "r1"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("double delete error = %v, want ErrRuleNotFound", err)
	}
}

func TestRegistry_ReloadPicksUpStoreWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	reg, err := NewRegistry(ctx, store, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer reg.Close()

	// Direct store writes, as done by the file seeding path, bypass the
	// version check and become visible on Reload.
	if err := store.Upsert(ctx, validRule("seeded", rules.PriorityHigh, time.Now())); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	if reg.Count() != 0 {
		t.Fatal("store write must not be visible before reload")
	}
	if err := reg.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count = %d after reload, want 1", reg.Count())
	}
}

func TestRegistry_ExecutionStats(t *testing.T) {
	reg := newTestRegistry(t)

	reg.RecordExecution("r1", true, 10*time.Millisecond)
	reg.RecordExecution("r1", true, 20*time.Millisecond)
	reg.RecordExecution("r1", false, 30*time.Millisecond)

	stats := reg.Stats("r1")
	if stats.ExecutionCount != 3 {
		t.Errorf("ExecutionCount = %d, want 3", stats.ExecutionCount)
	}
	if stats.SuccessCount != 2 || stats.FailureCount != 1 {
		t.Errorf("Success/Failure = %d/%d, want 2/1", stats.SuccessCount, stats.FailureCount)
	}
	if stats.AvgExecutionTime != 20*time.Millisecond {
		t.Errorf("AvgExecutionTime = %v, want 20ms", stats.AvgExecutionTime)
	}

	if unknown := reg.Stats("missing"); unknown.ExecutionCount != 0 {
		t.Errorf("unknown rule stats = %+v, want zero value", unknown)
	}
}
