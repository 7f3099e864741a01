package metrics

import (
	"fmt"
	"sync"
	"time"

	"clearline-hq/gatekeeper/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in Gatekeeper.
// It manages metric registration and provides a unified recording interface
// for the engine, registry and audit pipeline.
//
// The collector is designed for minimal overhead on the trigger path:
//   - Pre-allocated metric instances
//   - Cardinality limits on rule-scoped label sets
//   - Histogram buckets sized for rule evaluation latencies
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Trigger decision metrics
	triggerMetrics *TriggerMetrics

	// Per-rule evaluation metrics
	ruleMetrics *RuleMetrics

	// Action execution metrics
	actionMetrics *ActionMetrics

	// Audit and registry activity metrics
	auditMetrics *AuditMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh private
// registry is used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "gatekeeper"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "engine"
	}
	if len(cfg.TriggerDurationBuckets) == 0 {
		// Sync rules finish in microseconds to milliseconds; rules with
		// collaborator calls can take seconds.
		cfg.TriggerDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.025, 0.1, 0.5, 1.0, 5.0, 30.0}
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000), // Max 10K unique label sets
	}

	c.triggerMetrics = NewTriggerMetrics(cfg, registry)
	c.ruleMetrics = NewRuleMetrics(cfg, registry)
	c.actionMetrics = NewActionMetrics(cfg, registry)
	c.auditMetrics = NewAuditMetrics(cfg, registry)

	return c
}

// ObserveTrigger records a completed trigger decision.
//
// Parameters:
//   - orgType: organization type the trigger belonged to
//   - outcome: final decision outcome ("approve", "reject", "hold", "escalate")
//   - duration: total time from trigger receipt to decision
func (c *Collector) ObserveTrigger(orgType, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.triggerMetrics.RecordDecision(orgType, outcome, duration)
}

// ObserveRuleEvaluation records one rule's evaluation against a trigger.
// Rule IDs are subject to the cardinality limit; overflow rules aggregate
// under "other".
func (c *Collector) ObserveRuleEvaluation(ruleID string, matched bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("rule:%s", ruleID)
	if !c.cardinalityLimiter.Allow(labelSet) {
		ruleID = "other"
	}

	c.ruleMetrics.RecordEvaluation(ruleID, matched, duration)
}

// ObserveActionExecution records the terminal status of one action.
//
// Parameters:
//   - actionType: action type ("approve", "notify", "execute-contract", ...)
//   - status: terminal status ("success", "failure", "skipped")
func (c *Collector) ObserveActionExecution(actionType, status string) {
	if !c.config.Enabled {
		return
	}
	c.actionMetrics.RecordExecution(actionType, status)
}

// ObserveAnomaly records an evaluation anomaly (a type mismatch or other
// condition error that forced a rule to non-matching).
func (c *Collector) ObserveAnomaly(ruleID string) {
	if !c.config.Enabled {
		return
	}

	labelSet := fmt.Sprintf("rule:%s", ruleID)
	if !c.cardinalityLimiter.Allow(labelSet) {
		ruleID = "other"
	}

	c.ruleMetrics.RecordAnomaly(ruleID)
}

// RecordAuditDrop records an execution context rejected by a full recorder
// buffer.
func (c *Collector) RecordAuditDrop() {
	if !c.config.Enabled {
		return
	}
	c.auditMetrics.RecordDrop()
}

// RecordRegistryReload records a rule registry reload attempt.
func (c *Collector) RecordRegistryReload(success bool) {
	if !c.config.Enabled {
		return
	}
	c.auditMetrics.RecordReload(success)
}

// UpdateActiveRules updates the gauge of active rules per organization type.
func (c *Collector) UpdateActiveRules(orgType string, count int) {
	if !c.config.Enabled {
		return
	}
	c.ruleMetrics.UpdateActive(orgType, count)
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
