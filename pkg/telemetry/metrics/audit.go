package metrics

import (
	"clearline-hq/gatekeeper/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks audit pipeline and registry activity.
//
// Metrics:
//   - gatekeeper_engine_audit_drops_total: Execution contexts dropped by a full recorder buffer
//   - gatekeeper_engine_registry_reloads_total: Registry reload attempts by result
type AuditMetrics struct {
	dropsTotal   prometheus.Counter
	reloadsTotal *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		dropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_drops_total",
				Help:      "Total number of execution contexts rejected by a full recorder buffer",
			},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "registry_reloads_total",
				Help:      "Total number of rule registry reload attempts",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		am.dropsTotal,
		am.reloadsTotal,
	)

	return am
}

// RecordDrop records one dropped execution context.
func (am *AuditMetrics) RecordDrop() {
	am.dropsTotal.Inc()
}

// RecordReload records one registry reload attempt.
func (am *AuditMetrics) RecordReload(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	am.reloadsTotal.WithLabelValues(result).Inc()
}
