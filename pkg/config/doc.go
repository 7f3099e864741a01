// Package config defines the configuration surface of the Gatekeeper
// daemon: the rule engine, rule sources and registry storage, the audit
// pipeline with its retention policy, and telemetry.
//
// Configuration is loaded from a YAML file, filled in with defaults,
// optionally overridden by GATEKEEPER_* environment variables, and
// validated before use.
package config
