// Package audit defines the execution-context audit trail: one
// RuleExecutionContext per rule the engine considered for a trigger, holding
// the trigger snapshot, per-condition results, per-action results, timing
// and the final status.
//
// Contexts are owned by the engine invocation that created them until they
// are handed to the recorder; after persistence they are immutable. The one
// exception is async action completion, which arrives through the recorder's
// Amend path and appends the terminal result to the already-persisted
// context.
package audit
