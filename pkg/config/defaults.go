package config

import "time"

// ApplyDefaults fills in default values for any configuration fields that
// were not set explicitly. It is called automatically by LoadConfig.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.DefaultActionTimeout == 0 {
		cfg.Engine.DefaultActionTimeout = 30 * time.Second
	}
	if cfg.Engine.RetryBaseDelay == 0 {
		cfg.Engine.RetryBaseDelay = 100 * time.Millisecond
	}
	if cfg.Engine.RetryMaxDelay == 0 {
		cfg.Engine.RetryMaxDelay = 60 * time.Second
	}
	if cfg.Engine.DefaultMaxAttempts == 0 {
		cfg.Engine.DefaultMaxAttempts = 1
	}
	if cfg.Engine.AsyncQueueSize == 0 {
		cfg.Engine.AsyncQueueSize = 256
	}
	if cfg.Engine.AsyncWorkers == 0 {
		cfg.Engine.AsyncWorkers = 4
	}

	// Rules defaults
	if cfg.Rules.SourcePath == "" {
		cfg.Rules.SourcePath = "./rules"
	}
	if cfg.Rules.WatchDebounce == 0 {
		cfg.Rules.WatchDebounce = 100 * time.Millisecond
	}
	if cfg.Rules.Storage.Backend == "" {
		cfg.Rules.Storage.Backend = "memory"
	}
	if cfg.Rules.Storage.SQLite.Path == "" {
		cfg.Rules.Storage.SQLite.Path = "data/rules.db"
	}
	if cfg.Rules.Storage.SQLite.BusyTimeout == 0 {
		cfg.Rules.Storage.SQLite.BusyTimeout = 5 * time.Second
	}
	if cfg.Rules.Storage.SQLite.SnapshotInterval == 0 {
		cfg.Rules.Storage.SQLite.SnapshotInterval = 5 * time.Minute
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = "data/audit.db"
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = 5 * time.Second
	}
	if cfg.Audit.Recorder.AsyncBuffer == 0 {
		cfg.Audit.Recorder.AsyncBuffer = 1000
	}
	if cfg.Audit.Recorder.WriteTimeout == 0 {
		cfg.Audit.Recorder.WriteTimeout = 5 * time.Second
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = 90
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = "0 3 * * *"
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = "127.0.0.1:9090"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "gatekeeper"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "engine"
	}
}

// DefaultConfig returns a configuration populated entirely with defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Logging.RedactPII = true
	ApplyDefaults(cfg)
	return cfg
}
