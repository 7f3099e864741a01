package metrics

import (
	"time"

	"clearline-hq/gatekeeper/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RuleMetrics tracks per-rule evaluation metrics.
//
// Metrics:
//   - gatekeeper_engine_rule_evaluations_total: Rule evaluations by rule and result
//   - gatekeeper_engine_rule_evaluation_duration_seconds: Evaluation duration
//   - gatekeeper_engine_rule_anomalies_total: Evaluation anomalies by rule
//   - gatekeeper_engine_active_rules: Active rules per organization type
type RuleMetrics struct {
	// Rule evaluations by result
	evaluationsTotal *prometheus.CounterVec

	// Evaluation duration histogram
	evaluationDuration *prometheus.HistogramVec

	// Anomalies (condition errors forcing a rule to non-matching)
	anomaliesTotal *prometheus.CounterVec

	// Active rules gauge
	activeRules *prometheus.GaugeVec
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	rm := &RuleMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"rule_id", "result"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_evaluation_duration_seconds",
				Help:      "Duration of condition evaluation in seconds",
				// Condition trees evaluate in-memory and should stay under a millisecond
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"rule_id"},
		),

		anomaliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_anomalies_total",
				Help:      "Total number of evaluation anomalies",
			},
			[]string{"rule_id"},
		),

		activeRules: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_rules",
				Help:      "Number of active rules per organization type",
			},
			[]string{"organization_type"},
		),
	}

	registry.MustRegister(
		rm.evaluationsTotal,
		rm.evaluationDuration,
		rm.anomaliesTotal,
		rm.activeRules,
	)

	return rm
}

// RecordEvaluation records one rule evaluation.
func (rm *RuleMetrics) RecordEvaluation(ruleID string, matched bool, duration time.Duration) {
	result := "miss"
	if matched {
		result = "match"
	}
	rm.evaluationsTotal.WithLabelValues(ruleID, result).Inc()
	rm.evaluationDuration.WithLabelValues(ruleID).Observe(duration.Seconds())
}

// RecordAnomaly records an evaluation anomaly for a rule.
func (rm *RuleMetrics) RecordAnomaly(ruleID string) {
	rm.anomaliesTotal.WithLabelValues(ruleID).Inc()
}

// UpdateActive sets the active-rule gauge for an organization type.
func (rm *RuleMetrics) UpdateActive(orgType string, count int) {
	rm.activeRules.WithLabelValues(orgType).Set(float64(count))
}
