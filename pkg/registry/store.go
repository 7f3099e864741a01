package registry

import (
	"context"

	"clearline-hq/gatekeeper/pkg/rules"
)

// RuleStore is the durable backing store for rules. The registry owns the
// in-memory index; the store owns the rules themselves.
// Implementations must be safe for concurrent use.
type RuleStore interface {
	// Upsert inserts or replaces a rule by ID.
	Upsert(ctx context.Context, rule *rules.Rule) error

	// Get retrieves a rule by ID. Returns ErrRuleNotFound if absent.
	Get(ctx context.Context, id string) (*rules.Rule, error)

	// List returns all stored rules.
	List(ctx context.Context) ([]*rules.Rule, error)

	// Delete removes a rule by ID. Returns ErrRuleNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Close releases store resources.
	Close() error
}
