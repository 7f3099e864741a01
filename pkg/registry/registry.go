package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"clearline-hq/gatekeeper/pkg/rules"
	"clearline-hq/gatekeeper/pkg/rules/validator"
)

// indexKey addresses one candidate bucket.
type indexKey struct {
	org     rules.OrganizationType
	trigger string
}

// index is the immutable candidate view. A reload or upsert builds a fresh
// index and swaps the pointer; readers never see partial state.
type index struct {
	active   map[indexKey][]*rules.Rule
	testing  map[indexKey][]*rules.Rule
	byID     map[string]*rules.Rule
	versions map[string]int
	built    time.Time
}

// Registry is the engine's view over persisted rules. Reads go through an
// atomically swapped index; writes are serialized and delegate to the
// backing store before updating the index.
type Registry struct {
	store     RuleStore
	validator *validator.Validator
	logger    *slog.Logger

	idx atomic.Pointer[index]
	mu  sync.Mutex // serializes Upsert/Delete/Reload

	statsMu sync.Mutex
	stats   map[string]*rules.RuleStats
}

// NewRegistry creates a registry over the given store and loads the
// initial index from it.
func NewRegistry(ctx context.Context, store RuleStore, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		store:     store,
		validator: validator.NewValidator(),
		logger:    logger.With("component", "rule-registry"),
		stats:     make(map[string]*rules.RuleStats),
	}
	r.idx.Store(newIndex(nil))

	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// GetCandidates returns active rules matching the organization type and
// trigger type, sorted by priority (critical first) with ties broken by
// creation time then ID. The returned slice is shared and must not be
// mutated.
func (r *Registry) GetCandidates(orgType rules.OrganizationType, triggerType string) []*rules.Rule {
	return r.idx.Load().active[indexKey{org: orgType, trigger: triggerType}]
}

// GetTestCandidates returns the candidates a dry-run evaluation sees:
// testing rules merged with the active set, in the same deterministic
// order. A draft rule is exercised against the live rule set it would
// join, so precedence interactions with active rules show up before
// activation.
func (r *Registry) GetTestCandidates(orgType rules.OrganizationType, triggerType string) []*rules.Rule {
	idx := r.idx.Load()
	key := indexKey{org: orgType, trigger: triggerType}
	active := idx.active[key]
	testing := idx.testing[key]
	if len(testing) == 0 {
		return active
	}
	if len(active) == 0 {
		return testing
	}

	merged := make([]*rules.Rule, 0, len(active)+len(testing))
	merged = append(merged, active...)
	merged = append(merged, testing...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Before(merged[j])
	})
	return merged
}

// Get retrieves an indexed rule by ID.
func (r *Registry) Get(id string) (*rules.Rule, bool) {
	rule, ok := r.idx.Load().byID[id]
	return rule, ok
}

// Count returns the number of indexed rules.
func (r *Registry) Count() int {
	return len(r.idx.Load().byID)
}

// Upsert validates the rule, enforces the optimistic-concurrency check,
// persists it and updates the index. The submitted version must be exactly
// one above the currently indexed version (1 for a new rule).
func (r *Registry) Upsert(ctx context.Context, rule *rules.Rule) error {
	if err := r.validator.Validate(rule); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.idx.Load().versions[rule.ID]
	if rule.Config.Version != current+1 {
		return &ConcurrentModificationError{
			RuleID:           rule.ID,
			CurrentVersion:   current,
			SubmittedVersion: rule.Config.Version,
		}
	}

	if err := r.store.Upsert(ctx, rule); err != nil {
		return err
	}

	r.rebuildLocked(ctx)
	r.logger.Info("rule upserted",
		"rule_id", rule.ID,
		"version", rule.Config.Version,
		"status", rule.Config.Status,
	)
	return nil
}

// Delete removes a rule from the store and the index.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}

	r.rebuildLocked(ctx)
	r.logger.Info("rule deleted", "rule_id", id)
	return nil
}

// Reload rebuilds the index from the backing store.
func (r *Registry) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rebuildLocked(ctx)
}

// rebuildLocked loads all rules and swaps in a freshly built index.
// Callers hold r.mu.
func (r *Registry) rebuildLocked(ctx context.Context) error {
	all, err := r.store.List(ctx)
	if err != nil {
		return err
	}

	idx := newIndex(all)
	r.idx.Store(idx)

	r.logger.Info("rule index rebuilt",
		"rule_count", len(all),
		"active_buckets", len(idx.active),
	)
	return nil
}

// RecordExecution accumulates per-rule execution counters. Called by the
// engine after each executed rule.
func (r *Registry) RecordExecution(ruleID string, success bool, duration time.Duration) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	stats, ok := r.stats[ruleID]
	if !ok {
		stats = &rules.RuleStats{}
		r.stats[ruleID] = stats
	}

	stats.ExecutionCount++
	if success {
		stats.SuccessCount++
	} else {
		stats.FailureCount++
	}
	// Incremental mean keeps the counter O(1) per update.
	stats.AvgExecutionTime += (duration - stats.AvgExecutionTime) / time.Duration(stats.ExecutionCount)
}

// Stats returns a copy of the accumulated counters for a rule.
func (r *Registry) Stats(ruleID string) rules.RuleStats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	if stats, ok := r.stats[ruleID]; ok {
		return *stats
	}
	return rules.RuleStats{}
}

// Close releases the backing store.
func (r *Registry) Close() error {
	return r.store.Close()
}

// newIndex builds the candidate buckets from a rule list. Each bucket is
// sorted once at build time so lookups return pre-ordered candidates.
func newIndex(all []*rules.Rule) *index {
	idx := &index{
		active:   make(map[indexKey][]*rules.Rule),
		testing:  make(map[indexKey][]*rules.Rule),
		byID:     make(map[string]*rules.Rule, len(all)),
		versions: make(map[string]int, len(all)),
		built:    time.Now(),
	}

	for _, rule := range all {
		idx.byID[rule.ID] = rule
		idx.versions[rule.ID] = rule.Config.Version

		var buckets map[indexKey][]*rules.Rule
		switch rule.Config.Status {
		case rules.StatusActive:
			buckets = idx.active
		case rules.StatusTesting:
			buckets = idx.testing
		default:
			continue
		}

		for _, trigger := range rule.Config.Triggers {
			key := indexKey{org: rule.OrganizationType, trigger: trigger.Type}
			buckets[key] = append(buckets[key], rule)
		}
	}

	for _, buckets := range []map[indexKey][]*rules.Rule{idx.active, idx.testing} {
		for _, candidates := range buckets {
			sort.SliceStable(candidates, func(i, j int) bool {
				return candidates[i].Before(candidates[j])
			})
		}
	}

	return idx
}
