package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"clearline-hq/gatekeeper/pkg/audit"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the default number of days to retain execution
	// contexts. 0 means keep them forever (no age-based pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// MaxRecords is the maximum number of contexts to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
		MaxRecords:    0,
	}
}

// Pruner enforces retention policy on execution contexts.
type Pruner struct {
	storage   audit.Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler

	// overrides supplies per-rule retention windows in days, from the
	// rules' compliance configuration. A rule's window extends but never
	// shortens the default.
	overrides func() map[string]int
}

// NewPruner creates a retention pruner.
func NewPruner(storage audit.Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// SetOverrides registers the per-rule retention supplier.
func (p *Pruner) SetOverrides(f func() map[string]int) {
	p.overrides = f
}

// Scheduler returns the cron scheduler driving this pruner.
func (p *Pruner) Scheduler() *Scheduler {
	return p.scheduler
}

// Prune deletes contexts past their retention window, then enforces the
// max record count. Returns the total number of contexts deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned contexts by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned contexts by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// pruneByAge deletes contexts older than their retention window. Rules
// with an extended compliance window are pruned separately with their own
// cutoff and excluded from the default pass.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	now := time.Now()
	var total int64

	extended := map[string]int{}
	if p.overrides != nil {
		for ruleID, days := range p.overrides() {
			if days > p.config.RetentionDays {
				extended[ruleID] = days
			}
		}
	}

	var excluded []string
	for ruleID, days := range extended {
		cutoff := now.AddDate(0, 0, -days)
		deleted, err := p.storage.Delete(ctx, &audit.Query{
			RuleID:  ruleID,
			EndTime: &cutoff,
		})
		if err != nil {
			return total, audit.NewRetentionError(days, err)
		}
		total += deleted
		excluded = append(excluded, ruleID)
	}
	sort.Strings(excluded)

	cutoff := now.AddDate(0, 0, -p.config.RetentionDays)
	deleted, err := p.storage.Delete(ctx, &audit.Query{
		EndTime:        &cutoff,
		ExcludeRuleIDs: excluded,
	})
	if err != nil {
		return total, audit.NewRetentionError(p.config.RetentionDays, err)
	}
	return total + deleted, nil
}

// pruneByCount deletes the oldest contexts beyond the max record count.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, nil)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}
	excess := count - p.config.MaxRecords
	if excess <= 0 {
		return 0, nil
	}

	oldest, err := p.storage.Query(ctx, &audit.Query{Limit: int(excess)})
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].StartTime
	return p.storage.Delete(ctx, &audit.Query{EndTime: &cutoff})
}
