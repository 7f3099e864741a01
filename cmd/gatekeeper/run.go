package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/audit/recorder"
	"clearline-hq/gatekeeper/pkg/audit/retention"
	"clearline-hq/gatekeeper/pkg/audit/storage"
	"clearline-hq/gatekeeper/pkg/cli"
	"clearline-hq/gatekeeper/pkg/config"
	"clearline-hq/gatekeeper/pkg/engine"
	"clearline-hq/gatekeeper/pkg/engine/collab"
	"clearline-hq/gatekeeper/pkg/registry"
	"clearline-hq/gatekeeper/pkg/rules/source"
	"clearline-hq/gatekeeper/pkg/telemetry/health"
	"clearline-hq/gatekeeper/pkg/telemetry/logging"
	"clearline-hq/gatekeeper/pkg/telemetry/metrics"
)

var runFlags struct {
	rulesPath string
	logLevel  string
	dryRun    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Gatekeeper daemon",
	Long: `Start the Gatekeeper daemon with the specified configuration.

The daemon loads rules from the configured source, builds the registry index,
and evaluates trigger events through the rule engine while recording a full
audit trail.

Examples:
  # Start with default config
  gatekeeper run

  # Start with custom config
  gatekeeper run --config /etc/gatekeeper/config.yaml

  # Override the rule source path
  gatekeeper run --rules ./rules

  # Validate config without starting the daemon
  gatekeeper run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.rulesPath, "rules", "r", "", "override rule source path")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.rulesPath != "" {
		cfg.Rules.SourcePath = runFlags.rulesPath
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(&cfg.Telemetry.Logging, nil)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Gatekeeper v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Rule store
	var ruleStore registry.RuleStore
	switch cfg.Rules.Storage.Backend {
	case "sqlite":
		ruleStore, err = registry.NewSQLiteStoreWithConfig(registry.SQLiteStoreConfig{
			DBPath:             cfg.Rules.Storage.SQLite.Path,
			BusyTimeout:        cfg.Rules.Storage.SQLite.BusyTimeout,
			CheckpointInterval: cfg.Rules.Storage.SQLite.SnapshotInterval,
		})
		if err != nil {
			return fmt.Errorf("failed to create rule store: %w", err)
		}
	case "memory":
		ruleStore = registry.NewMemoryStore()
	default:
		return fmt.Errorf("unsupported rule storage backend: %s", cfg.Rules.Storage.Backend)
	}
	defer ruleStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the store from the rule source
	loader := source.NewLoader(nil)
	if err := seedRules(ctx, loader, ruleStore, cfg.Rules.SourcePath, logger); err != nil {
		return fmt.Errorf("failed to load rules from %q: %w", cfg.Rules.SourcePath, err)
	}

	reg, err := registry.NewRegistry(ctx, ruleStore, logger)
	if err != nil {
		return fmt.Errorf("failed to build rule registry: %w", err)
	}
	defer reg.Close()
	fmt.Printf("✓ Rule registry loaded (%d rules)\n", reg.Count())

	// Audit storage and recorder
	var auditStore audit.Store
	switch cfg.Audit.Backend {
	case "sqlite":
		auditStore, err = storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.Audit.SQLite.Path,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			WALMode:      true,
			BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create audit storage: %w", err)
		}
	case "memory":
		auditStore = storage.NewMemoryStorage()
	default:
		return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
	defer auditStore.Close()

	rec := recorder.NewRecorder(auditStore, &recorder.Config{
		AsyncBuffer:  cfg.Audit.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Audit.Recorder.WriteTimeout,
	})
	defer rec.Close()
	fmt.Println("✓ Audit trail initialized")

	// Retention pruner
	if cfg.Audit.Retention.PruneSchedule != "" {
		pruner := retention.NewPruner(auditStore, &retention.Config{
			RetentionDays: cfg.Audit.Retention.Days,
			PruneSchedule: cfg.Audit.Retention.PruneSchedule,
			MaxRecords:    cfg.Audit.Retention.MaxRecords,
		})
		pruner.SetOverrides(retentionOverrides(ruleStore))
		if err := pruner.Scheduler().Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Scheduler().Stop()
		}
	}

	// Rule engine
	engineCfg := &engine.EngineConfig{
		DefaultActionTimeout: cfg.Engine.DefaultActionTimeout,
		RetryBaseDelay:       cfg.Engine.RetryBaseDelay,
		RetryMaxDelay:        cfg.Engine.RetryMaxDelay,
		DefaultMaxAttempts:   cfg.Engine.DefaultMaxAttempts,
		AsyncQueueSize:       cfg.Engine.AsyncQueueSize,
		AsyncWorkers:         cfg.Engine.AsyncWorkers,
	}
	collaborators := engine.Collaborators{
		Notifier:  collab.NewLogNotifier(logger),
		Contracts: collab.UnconfiguredContractCaller{},
		Workflows: collab.UnconfiguredWorkflowRunner{},
	}
	ruleEngine, err := engine.NewRuleEngine(engineCfg, reg, rec, collaborators, logger)
	if err != nil {
		return fmt.Errorf("failed to create rule engine: %w", err)
	}
	defer ruleEngine.Close()
	ruleEngine.SetStatsSink(reg)

	// Metrics
	var collector *metrics.Collector
	var metricsSrv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		ruleEngine.SetObserver(collector)

		if cfg.Telemetry.Metrics.ListenAddress != "" {
			mux := http.NewServeMux()
			mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())

			checker := health.New(5 * time.Second)
			checker.Register("rule_store", func(ctx context.Context) error {
				_, err := ruleStore.List(ctx)
				return err
			})
			checker.Register("audit_store", func(ctx context.Context) error {
				_, err := auditStore.Count(ctx, nil)
				return err
			})
			health.Mount(mux, checker, Version)

			metricsSrv = &http.Server{
				Addr:    cfg.Telemetry.Metrics.ListenAddress,
				Handler: mux,
			}
			go func() {
				slog.Info("metrics endpoint listening",
					"address", cfg.Telemetry.Metrics.ListenAddress,
					"path", cfg.Telemetry.Metrics.Path,
				)
				if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					slog.Error("metrics server failed", "error", err)
				}
			}()
			fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
		}
	}

	// Rule file watcher
	var watcher *source.FileWatcher
	if cfg.Rules.Watch {
		watcher, err = source.NewFileWatcher(&source.FileWatcherConfig{
			Path:             cfg.Rules.SourcePath,
			DebounceInterval: cfg.Rules.WatchDebounce,
			Extensions:       []string{".yaml", ".yml"},
			SkipHidden:       true,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create rule watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func() error {
				reloadErr := reloadRules(ctx, loader, ruleStore, reg, cfg.Rules.SourcePath, logger)
				if collector != nil {
					collector.RecordRegistryReload(reloadErr == nil)
				}
				return reloadErr
			})
			if err != nil {
				slog.Error("rule watcher exited", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Printf("✓ Watching %s for rule changes\n", cfg.Rules.SourcePath)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	sig := <-cli.WaitForShutdown()
	fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
	cancel()

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}

	fmt.Println("✓ Daemon stopped")
	return nil
}

// seedRules loads rule documents from the source path and upserts them into
// the store. A missing source path is tolerated with a warning so a fresh
// deployment can start empty.
func seedRules(ctx context.Context, loader *source.Loader, store registry.RuleStore, path string, logger *slog.Logger) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Warn("rule source path does not exist, starting with stored rules only", "path", path)
		return nil
	}

	loaded, err := loader.LoadPath(path)
	if err != nil {
		return err
	}
	for _, rule := range loaded {
		if err := store.Upsert(ctx, rule); err != nil {
			return fmt.Errorf("failed to store rule %q: %w", rule.ID, err)
		}
	}
	logger.Info("rules loaded from source", "path", path, "count", len(loaded))
	return nil
}

// reloadRules re-reads the source path and rebuilds the registry index.
// Load failures leave the current index untouched.
func reloadRules(ctx context.Context, loader *source.Loader, store registry.RuleStore, reg *registry.Registry, path string, logger *slog.Logger) error {
	loaded, err := loader.LoadPath(path)
	if err != nil {
		return err
	}
	for _, rule := range loaded {
		if err := store.Upsert(ctx, rule); err != nil {
			return fmt.Errorf("failed to store rule %q: %w", rule.ID, err)
		}
	}
	if err := reg.Reload(ctx); err != nil {
		return err
	}
	logger.Info("rules reloaded", "path", path, "count", len(loaded))
	return nil
}

// retentionOverrides derives per-rule retention windows from the compliance
// configuration of stored rules.
func retentionOverrides(store registry.RuleStore) func() map[string]int {
	return func() map[string]int {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stored, err := store.List(ctx)
		if err != nil {
			slog.Warn("failed to list rules for retention overrides", "error", err)
			return nil
		}

		overrides := make(map[string]int)
		for _, rule := range stored {
			if rule.Config.Compliance != nil && rule.Config.Compliance.DataRetention > 0 {
				overrides[rule.ID] = rule.Config.Compliance.DataRetention
			}
		}
		return overrides
	}
}
