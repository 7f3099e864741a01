package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "rules.source_path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultActionTimeout <= 0 {
		errs = append(errs, FieldError{"engine.default_action_timeout", "must be positive"})
	}
	if cfg.RetryBaseDelay <= 0 {
		errs = append(errs, FieldError{"engine.retry_base_delay", "must be positive"})
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		errs = append(errs, FieldError{"engine.retry_max_delay", "must be at least retry_base_delay"})
	}
	if cfg.DefaultMaxAttempts < 1 {
		errs = append(errs, FieldError{"engine.default_max_attempts", "must be at least 1"})
	}
	if cfg.AsyncQueueSize < 1 {
		errs = append(errs, FieldError{"engine.async_queue_size", "must be at least 1"})
	}
	if cfg.AsyncWorkers < 1 {
		errs = append(errs, FieldError{"engine.async_workers", "must be at least 1"})
	}

	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	if cfg.SourcePath == "" {
		errs = append(errs, FieldError{"rules.source_path", "must not be empty"})
	}

	switch cfg.Storage.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"rules.storage.backend", fmt.Sprintf("unknown backend %q (options: memory, sqlite)", cfg.Storage.Backend)})
	}
	if cfg.Storage.Backend == "sqlite" && cfg.Storage.SQLite.Path == "" {
		errs = append(errs, FieldError{"rules.storage.sqlite.path", "must not be empty"})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite":
	default:
		errs = append(errs, FieldError{"audit.backend", fmt.Sprintf("unknown backend %q (options: memory, sqlite)", cfg.Backend)})
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, FieldError{"audit.sqlite.path", "must not be empty"})
	}
	if cfg.Recorder.AsyncBuffer < 1 {
		errs = append(errs, FieldError{"audit.recorder.async_buffer", "must be at least 1"})
	}
	if cfg.Recorder.WriteTimeout <= 0 {
		errs = append(errs, FieldError{"audit.recorder.write_timeout", "must be positive"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{"audit.retention.days", "must not be negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{"audit.retention.max_records", "must not be negative"})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{"audit.retention.prune_schedule", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q (options: debug, info, warn, error)", cfg.Logging.Level)})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q (options: json, text)", cfg.Logging.Format)})
	}
	for i, p := range cfg.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i), "must not be empty"})
			continue
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i), fmt.Sprintf("invalid regular expression: %v", err)})
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.ListenAddress); err != nil {
			errs = append(errs, FieldError{"telemetry.metrics.listen_address", fmt.Sprintf("invalid address: %v", err)})
		}
	}
	if cfg.Metrics.Path != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{"telemetry.metrics.path", "must start with /"})
	}

	return errs
}
