// Package recorder provides the asynchronous execution-context recorder.
//
// Record enqueues contexts on a buffered channel drained by a single
// background worker, so the engine's decision path never blocks on storage
// writes. Amendments for async action completions travel through the same
// channel, which keeps them ordered after the context they amend. Close
// drains the channel before returning.
//
// A persistence failure is logged and surfaced as a RecorderError; it never
// aborts the decision already returned to the caller.
package recorder
