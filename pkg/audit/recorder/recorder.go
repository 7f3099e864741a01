package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clearline-hq/gatekeeper/pkg/audit"
)

// Config contains configuration for the execution-context recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a context to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// job is one unit of work for the writer: a context to persist or an
// amendment to apply. A single worker drains the channel, so an amendment
// enqueued after its context is always applied after it.
type job struct {
	record    *audit.RuleExecutionContext
	amendment *audit.Amendment
}

// Recorder persists execution contexts asynchronously.
type Recorder struct {
	store  audit.Store
	config *Config
	jobs   chan job
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	// seenKeys indexes idempotency keys synchronously at Record time so a
	// duplicate delivery is detected even while its context is still
	// buffered.
	seenKeys sync.Map // map[string]struct{}

	closeOnce sync.Once
}

// NewRecorder creates a recorder over the given store and starts its
// writer.
func NewRecorder(store audit.Store, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		store:  store,
		config: config,
		jobs:   make(chan job, config.AsyncBuffer),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("execution context recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues a context for persistence. Returns immediately; a full
// buffer drops the context and surfaces a RecorderError, which the caller
// logs but never lets abort the decision.
func (r *Recorder) Record(_ context.Context, rec *audit.RuleExecutionContext) error {
	if rec.IdempotencyKey != "" {
		r.seenKeys.Store(rec.IdempotencyKey, struct{}{})
	}

	select {
	case r.jobs <- job{record: rec}:
		return nil
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping execution context",
			"execution_id", rec.ExecutionID,
		)
		return audit.NewRecorderError(rec.ExecutionID, context.Canceled)
	default:
		r.logger.Error("record channel full, dropping execution context",
			"execution_id", rec.ExecutionID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return audit.NewRecorderError(rec.ExecutionID, context.DeadlineExceeded)
	}
}

// Amend enqueues an async action completion. The single writer guarantees
// it is applied after the context it amends.
func (r *Recorder) Amend(_ context.Context, amendment *audit.Amendment) error {
	select {
	case r.jobs <- job{amendment: amendment}:
		return nil
	case <-r.done:
		return audit.NewRecorderError(amendment.ExecutionID, context.Canceled)
	default:
		r.logger.Error("record channel full, dropping amendment",
			"execution_id", amendment.ExecutionID,
			"action_id", amendment.ActionID,
		)
		return audit.NewRecorderError(amendment.ExecutionID, context.DeadlineExceeded)
	}
}

// ByIdempotencyKey returns previously recorded contexts carrying the given
// key. Contexts still buffered are reported through the synchronous key
// index so at-least-once delivery is caught before the write lands.
func (r *Recorder) ByIdempotencyKey(ctx context.Context, key string) ([]*audit.RuleExecutionContext, error) {
	recs, err := r.store.Query(ctx, &audit.Query{IdempotencyKey: key})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		if _, buffered := r.seenKeys.Load(key); buffered {
			// Buffered but not yet persisted. Report the key as seen with
			// an empty placeholder so callers suppress re-execution.
			return []*audit.RuleExecutionContext{{IdempotencyKey: key}}, nil
		}
	}
	return recs, nil
}

// Close drains the channel and waits for all pending writes.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down execution context recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("execution context recorder shut down complete")
	})
	return nil
}

// worker drains the job channel and writes to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case j := <-r.jobs:
			r.write(j)

		case <-r.done:
			r.logger.Info("draining record channel before shutdown",
				"pending_count", len(r.jobs),
			)
			for {
				select {
				case j := <-r.jobs:
					r.write(j)
				default:
					r.logger.Info("record channel drained")
					return
				}
			}
		}
	}
}

// write persists one job to storage.
func (r *Recorder) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if j.record != nil {
		if err := r.store.Record(ctx, j.record); err != nil {
			r.logger.Error("failed to store execution context",
				"execution_id", j.record.ExecutionID,
				"rule_id", j.record.RuleID,
				"error", err,
			)
			return
		}
		r.logger.Debug("execution context recorded",
			"execution_id", j.record.ExecutionID,
			"rule_id", j.record.RuleID,
			"status", j.record.Status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	if err := r.store.Amend(ctx, j.amendment); err != nil {
		r.logger.Error("failed to amend execution context",
			"execution_id", j.amendment.ExecutionID,
			"action_id", j.amendment.ActionID,
			"error", err,
		)
		return
	}
	r.logger.Debug("execution context amended",
		"execution_id", j.amendment.ExecutionID,
		"action_id", j.amendment.ActionID,
		"status", j.amendment.Status,
	)
}
