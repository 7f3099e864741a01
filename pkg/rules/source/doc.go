// Package source loads rule documents from YAML files.
//
// A rule document carries one or more rules under a top-level "rules" key.
// Timeouts are written in seconds and action parameters as plain maps; the
// decoder converts both into the typed model and rejects documents that
// fail validation.
//
// FileSource can additionally watch its path with fsnotify and trigger a
// registry reload after a debounce interval, so edits to rule files take
// effect without a restart.
package source
