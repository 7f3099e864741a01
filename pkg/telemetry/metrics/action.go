package metrics

import (
	"clearline-hq/gatekeeper/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ActionMetrics tracks action execution metrics.
//
// Metrics:
//   - gatekeeper_engine_action_executions_total: Action executions by type and status
type ActionMetrics struct {
	executionsTotal *prometheus.CounterVec
}

// NewActionMetrics creates and registers action metrics with the provided registry.
func NewActionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ActionMetrics {
	am := &ActionMetrics{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "action_executions_total",
				Help:      "Total number of action executions by terminal status",
			},
			[]string{"action_type", "status"},
		),
	}

	registry.MustRegister(am.executionsTotal)

	return am
}

// RecordExecution records the terminal status of one action execution.
func (am *ActionMetrics) RecordExecution(actionType, status string) {
	am.executionsTotal.WithLabelValues(actionType, status).Inc()
}
