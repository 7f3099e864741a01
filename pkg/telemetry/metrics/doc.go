// Package metrics provides Prometheus instrumentation for the rule engine.
//
// The Collector owns a private Prometheus registry and groups metrics by
// concern: trigger decisions, per-rule evaluations, action executions and
// audit/registry activity. All recording methods are no-ops when metrics
// are disabled, so callers never guard their instrumentation sites.
package metrics
