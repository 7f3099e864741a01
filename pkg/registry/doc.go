// Package registry maintains the materialized view over persisted rules
// that the engine selects candidates from.
//
// The registry keeps an in-memory index keyed by organization type and
// trigger type, holding only active rules (plus a parallel index of
// testing-status rules; dry-run evaluation sees both sets merged).
// Lookups cost O(candidates) rather than a scan over all rules.
//
// Index rebuilds use copy-on-write: a new index is built fully, then the
// pointer readers use is swapped atomically. Concurrent GetCandidates calls
// never block on a reload and never observe partial state.
//
// Upsert enforces optimistic concurrency: the submitted rule's version must
// be exactly one above the currently indexed version, otherwise the call
// fails with a ConcurrentModificationError and the indexed rule is left
// untouched.
package registry
