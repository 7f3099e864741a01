// Package telemetry groups the daemon's observability components.
//
//   - logging: structured logging with PII redaction
//   - metrics: Prometheus collectors and the /metrics endpoint
//   - health: liveness and readiness probes
//
// The engine itself stays observable through plain *slog.Logger and the
// metrics Observer interface; this tree only builds and exposes those
// surfaces.
package telemetry
