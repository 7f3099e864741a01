// Package retention enforces audit-trail retention policy: a pruner that
// deletes execution contexts past the retention window and a cron-driven
// scheduler that runs it automatically.
//
// Per-rule compliance configuration can extend retention beyond the global
// default; the pruner honors the longest applicable window.
package retention
