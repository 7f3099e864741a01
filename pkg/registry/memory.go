package registry

import (
	"context"
	"sync"

	"clearline-hq/gatekeeper/pkg/rules"
)

// MemoryStore is an in-memory RuleStore for tests and ephemeral
// deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[string]*rules.Rule
}

// NewMemoryStore creates an empty in-memory rule store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[string]*rules.Rule)}
}

// Upsert inserts or replaces a rule by ID.
func (s *MemoryStore) Upsert(_ context.Context, rule *rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule.Clone()
	return nil
}

// Get retrieves a rule by ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rule, ok := s.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	return rule.Clone(), nil
}

// List returns all stored rules.
func (s *MemoryStore) List(_ context.Context) ([]*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*rules.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		out = append(out, rule.Clone())
	}
	return out, nil
}

// Delete removes a rule by ID.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(s.rules, id)
	return nil
}

// Close releases store resources.
func (s *MemoryStore) Close() error {
	return nil
}
