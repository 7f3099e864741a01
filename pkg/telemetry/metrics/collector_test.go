package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clearline-hq/gatekeeper/pkg/config"
)

// scrape renders the collector's registry through its HTTP handler and
// returns the exposition body.
func scrape(t *testing.T, c *Collector) string {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("scrape status = %d, want 200", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read scrape body: %v", err)
	}
	return string(body)
}

func TestCollector_ObservationsExposed(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: true}, nil)

	c.ObserveTrigger("financial-institution", "reject", 12*time.Millisecond)
	c.ObserveRuleEvaluation("wire-limit", true, 50*time.Microsecond)
	c.ObserveRuleEvaluation("wire-limit", false, 30*time.Microsecond)
	c.ObserveActionExecution("execute-contract", "success")
	c.ObserveAnomaly("kyc-tier")
	c.RecordAuditDrop()
	c.RecordRegistryReload(true)
	c.RecordRegistryReload(false)
	c.UpdateActiveRules("financial-institution", 7)

	body := scrape(t, c)

	// Empty namespace and subsystem fall back to the gatekeeper_engine prefix.
	want := []string{
		`gatekeeper_engine_triggers_total{organization_type="financial-institution",outcome="reject"} 1`,
		`gatekeeper_engine_trigger_duration_seconds_count{organization_type="financial-institution"} 1`,
		`gatekeeper_engine_rule_evaluations_total{result="match",rule_id="wire-limit"} 1`,
		`gatekeeper_engine_rule_evaluations_total{result="miss",rule_id="wire-limit"} 1`,
		`gatekeeper_engine_rule_evaluation_duration_seconds_count{rule_id="wire-limit"} 2`,
		`gatekeeper_engine_action_executions_total{action_type="execute-contract",status="success"} 1`,
		`gatekeeper_engine_rule_anomalies_total{rule_id="kyc-tier"} 1`,
		`gatekeeper_engine_audit_drops_total 1`,
		`gatekeeper_engine_registry_reloads_total{result="success"} 1`,
		`gatekeeper_engine_registry_reloads_total{result="failure"} 1`,
		`gatekeeper_engine_active_rules{organization_type="financial-institution"} 7`,
	}
	for _, line := range want {
		if !strings.Contains(body, line) {
			t.Errorf("scrape output missing %q", line)
		}
	}
}

func TestCollector_DisabledRecordsNothing(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: false}, nil)

	c.ObserveTrigger("enterprise", "approve", time.Millisecond)
	c.ObserveRuleEvaluation("wire-limit", true, time.Microsecond)
	c.ObserveActionExecution("notify", "success")
	c.ObserveAnomaly("wire-limit")
	c.RecordAuditDrop()
	c.RecordRegistryReload(true)
	c.UpdateActiveRules("enterprise", 3)

	body := scrape(t, c)

	if strings.Contains(body, `gatekeeper_engine_triggers_total{`) {
		t.Error("disabled collector exposed trigger samples")
	}
	if strings.Contains(body, `gatekeeper_engine_rule_evaluations_total{`) {
		t.Error("disabled collector exposed rule samples")
	}
	if !strings.Contains(body, `gatekeeper_engine_audit_drops_total 0`) {
		t.Error("audit drop counter should stay at zero")
	}
}

func TestCollector_CustomNamespace(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{
		Enabled:   true,
		Namespace: "clearline",
		Subsystem: "rules",
	}, nil)

	c.ObserveActionExecution("reject", "success")

	body := scrape(t, c)
	if !strings.Contains(body, `clearline_rules_action_executions_total{action_type="reject",status="success"} 1`) {
		t.Error("custom namespace and subsystem not applied")
	}
}

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("rule:a") {
		t.Error("first label set should be allowed")
	}
	if !cl.Allow("rule:b") {
		t.Error("second label set should be allowed")
	}
	if !cl.Allow("rule:a") {
		t.Error("known label set should stay allowed at capacity")
	}
	if cl.Allow("rule:c") {
		t.Error("new label set above capacity should be rejected")
	}
	if got := cl.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestCardinalityLimiter_Concurrent(t *testing.T) {
	cl := NewCardinalityLimiter(100)

	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				cl.Allow(fmt.Sprintf("rule:%d", i))
			}
		}()
	}
	for g := 0; g < 8; g++ {
		<-done
	}

	if got := cl.Count(); got != 50 {
		t.Errorf("Count() = %d, want 50", got)
	}
}
