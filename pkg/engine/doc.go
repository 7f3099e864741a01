// Package engine implements rule evaluation and action execution for
// trigger events.
//
// The engine receives a TriggerEvent, asks the rule provider for candidate
// rules matching the event's organization type and trigger type, evaluates
// each rule's condition tree in priority order, executes the actions of
// matching rules, records one execution context per candidate rule, and
// returns an aggregate Decision.
//
// Each invocation moves linearly through Selecting, Evaluating, Executing,
// Recording and Done. A failure at any stage transitions directly to
// Recording with a failed status on the affected context; the engine never
// returns a business-data error out of HandleTrigger, only infrastructure
// failures (provider or recorder unavailable).
//
// Decision semantics:
//
//   - The outcome is the most restrictive action result across all executed
//     actions (reject > hold > escalate > approve).
//   - A successful reject or hold from a higher-priority rule short-circuits
//     the remaining lower-priority rules; their contexts are recorded with
//     status skipped-due-to-precedence.
//   - If no active rule matches, the outcome defaults to approve. This
//     fail-open default for the absence of rules is deliberately distinct
//     from the fail-closed handling of ambiguous fields inside condition
//     evaluation.
//   - If a rule in a blocking category could not be evaluated to completion,
//     the outcome is escalated rather than approved.
package engine
