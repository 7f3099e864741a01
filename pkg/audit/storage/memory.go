package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"clearline-hq/gatekeeper/pkg/audit"
)

// MemoryStorage is an in-memory audit.Store for tests and ephemeral
// deployments. Contexts are held in insertion order.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]*audit.RuleExecutionContext
	order   []string
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.RuleExecutionContext),
	}
}

// Record persists a context exactly once.
func (s *MemoryStorage) Record(_ context.Context, rec *audit.RuleExecutionContext) error {
	if rec == nil || rec.ExecutionID == "" {
		return audit.NewStorageError("memory", "record", fmt.Errorf("execution ID cannot be empty"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ExecutionID]; exists {
		return audit.NewStorageError("memory", "record", fmt.Errorf("execution %s already recorded", rec.ExecutionID))
	}

	s.records[rec.ExecutionID] = rec
	s.order = append(s.order, rec.ExecutionID)
	return nil
}

// Amend applies an async action completion to a persisted context.
func (s *MemoryStorage) Amend(_ context.Context, amendment *audit.Amendment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[amendment.ExecutionID]
	if !ok {
		return audit.ErrNotFound
	}

	return applyAmendment(rec, amendment)
}

// Get retrieves a context by execution ID.
func (s *MemoryStorage) Get(_ context.Context, executionID string) (*audit.RuleExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[executionID]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return rec, nil
}

// Query retrieves contexts matching the filters, oldest first.
func (s *MemoryStorage) Query(_ context.Context, query *audit.Query) ([]*audit.RuleExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*audit.RuleExecutionContext
	for _, id := range s.order {
		rec := s.records[id]
		if matchesQuery(rec, query) {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})

	return applyWindow(out, query), nil
}

// Count returns the number of contexts matching the filters.
func (s *MemoryStorage) Count(_ context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rec := range s.records {
		if matchesQuery(rec, query) {
			n++
		}
	}
	return n, nil
}

// Delete removes contexts matching the filters.
func (s *MemoryStorage) Delete(_ context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	remaining := s.order[:0]
	for _, id := range s.order {
		rec := s.records[id]
		if matchesQuery(rec, query) {
			delete(s.records, id)
			deleted++
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
	return deleted, nil
}

// Close releases store resources.
func (s *MemoryStorage) Close() error {
	return nil
}

// applyAmendment folds an async completion into the matching action result.
func applyAmendment(rec *audit.RuleExecutionContext, amendment *audit.Amendment) error {
	for _, ar := range rec.ActionResults {
		if ar.ActionID != amendment.ActionID {
			continue
		}
		ar.Status = amendment.Status
		ar.Error = amendment.Error
		ar.ExecutionTime = amendment.Duration
		delete(ar.Result, "deferred")
		if ar.Result == nil {
			ar.Result = map[string]interface{}{}
		}
		ar.Result["completedAt"] = amendment.CompletedAt.Format(time.RFC3339)
		return nil
	}
	return audit.NewStorageError("memory", "amend", fmt.Errorf("action %s not found in execution %s", amendment.ActionID, amendment.ExecutionID))
}

// matchesQuery applies all query filters to a context.
func matchesQuery(rec *audit.RuleExecutionContext, query *audit.Query) bool {
	if query == nil {
		return true
	}
	if query.RuleID != "" && rec.RuleID != query.RuleID {
		return false
	}
	if query.TriggerType != "" && rec.Trigger.Type != query.TriggerType {
		return false
	}
	if query.Status != "" && rec.Status != query.Status {
		return false
	}
	if query.IdempotencyKey != "" && rec.IdempotencyKey != query.IdempotencyKey {
		return false
	}
	if query.StartTime != nil && rec.StartTime.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && rec.StartTime.After(*query.EndTime) {
		return false
	}
	for _, id := range query.ExcludeRuleIDs {
		if rec.RuleID == id {
			return false
		}
	}
	return true
}

// applyWindow applies offset and limit.
func applyWindow(recs []*audit.RuleExecutionContext, query *audit.Query) []*audit.RuleExecutionContext {
	if query == nil {
		return recs
	}
	if query.Offset > 0 {
		if query.Offset >= len(recs) {
			return nil
		}
		recs = recs[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(recs) {
		recs = recs[:query.Limit]
	}
	return recs
}
