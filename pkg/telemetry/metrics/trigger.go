package metrics

import (
	"time"

	"clearline-hq/gatekeeper/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// TriggerMetrics tracks trigger-level decision metrics.
//
// Metrics:
//   - gatekeeper_engine_triggers_total: Total trigger decisions by organization type and outcome
//   - gatekeeper_engine_trigger_duration_seconds: End-to-end decision duration
type TriggerMetrics struct {
	// Total trigger decisions
	decisionsTotal *prometheus.CounterVec

	// End-to-end decision duration histogram
	decisionDuration *prometheus.HistogramVec
}

// NewTriggerMetrics creates and registers trigger metrics with the provided registry.
func NewTriggerMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *TriggerMetrics {
	tm := &TriggerMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "triggers_total",
				Help:      "Total number of trigger decisions",
			},
			[]string{"organization_type", "outcome"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "trigger_duration_seconds",
				Help:      "Time from trigger receipt to final decision in seconds",
				Buckets:   cfg.TriggerDurationBuckets,
			},
			[]string{"organization_type"},
		),
	}

	registry.MustRegister(
		tm.decisionsTotal,
		tm.decisionDuration,
	)

	return tm
}

// RecordDecision records one completed trigger decision.
func (tm *TriggerMetrics) RecordDecision(orgType, outcome string, duration time.Duration) {
	tm.decisionsTotal.WithLabelValues(orgType, outcome).Inc()
	tm.decisionDuration.WithLabelValues(orgType).Observe(duration.Seconds())
}
