package config

import "time"

// Config is the root configuration structure for Gatekeeper. It contains
// all configuration sections for the rule engine, rule sources, audit
// storage, and telemetry.
type Config struct {
	// Engine contains rule engine execution configuration including action
	// timeouts, retry backoff, and the async execution pool.
	Engine EngineConfig `yaml:"engine"`

	// Rules contains configuration for rule loading and registry storage.
	Rules RulesConfig `yaml:"rules"`

	// Audit contains configuration for the audit trail: recorder buffering,
	// storage backend, and retention.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains configuration for observability including logging
	// and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains rule engine execution configuration.
type EngineConfig struct {
	// DefaultActionTimeout bounds a rule's action batch when the rule does
	// not declare its own timeout.
	// Default: 30s
	DefaultActionTimeout time.Duration `yaml:"default_action_timeout"`

	// RetryBaseDelay is the delay before the first retry of a transient
	// collaborator failure. Subsequent retries back off exponentially.
	// Default: 100ms
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// RetryMaxDelay caps the exponential backoff delay.
	// Default: 60s
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`

	// DefaultMaxAttempts is the attempt budget for actions whose rule does
	// not declare a retry policy.
	// Default: 1 (no retries)
	DefaultMaxAttempts int `yaml:"default_max_attempts"`

	// AsyncQueueSize is the buffer size of the async action queue.
	// Default: 256
	AsyncQueueSize int `yaml:"async_queue_size"`

	// AsyncWorkers is the number of workers draining the async action queue.
	// Default: 4
	AsyncWorkers int `yaml:"async_workers"`
}

// RulesConfig contains configuration for rule loading and storage.
type RulesConfig struct {
	// SourcePath points at a YAML rule file or a directory of rule files.
	// Rules found here are upserted into the store at startup.
	// Default: "./rules"
	SourcePath string `yaml:"source_path"`

	// Watch enables automatic reloading when rule files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period before a file change triggers a
	// reload.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Storage configures the registry's backing store.
	Storage RuleStorageConfig `yaml:"storage"`
}

// RuleStorageConfig configures the rule store backend.
type RuleStorageConfig struct {
	// Backend specifies the storage backend to use.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite RuleSQLiteConfig `yaml:"sqlite"`
}

// RuleSQLiteConfig contains SQLite rule store configuration.
type RuleSQLiteConfig struct {
	// Path is the path to the SQLite database file.
	// Default: "data/rules.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// SnapshotInterval is how often to checkpoint the WAL.
	// Default: 5m
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// AuditConfig contains configuration for the audit trail.
type AuditConfig struct {
	// Backend specifies the storage backend for execution contexts.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite AuditSQLiteConfig `yaml:"sqlite"`

	// Recorder contains recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// AuditSQLiteConfig contains SQLite audit storage configuration.
type AuditSQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains audit recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing an execution context to
	// storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain execution contexts. Records
	// older than this are eligible for deletion. 0 means keep forever.
	// Default: 90
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords is the maximum number of records to keep. 0 means
	// unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks personal data in log output. Trigger data regularly
	// carries customer identifiers (emails, account numbers, card numbers)
	// that must not reach the log stream verbatim.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns adds custom redaction patterns on top of the
	// built-in ones.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern is a custom log redaction rule.
type RedactPattern struct {
	// Name identifies the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the substitution text.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address for the metrics HTTP endpoint.
	// Format: "host:port". Empty disables the endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "gatekeeper"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "engine"
	Subsystem string `yaml:"subsystem"`

	// TriggerDurationBuckets defines histogram buckets for trigger decision
	// duration (seconds).
	TriggerDurationBuckets []float64 `yaml:"trigger_duration_buckets"`
}
