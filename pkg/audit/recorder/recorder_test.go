package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/audit/storage"
)

func record(id, key string) *audit.RuleExecutionContext {
	return &audit.RuleExecutionContext{
		ExecutionID:    id,
		RuleID:         "r1",
		StartTime:      time.Now(),
		Status:         audit.StatusCompleted,
		IdempotencyKey: key,
	}
}

func TestRecorder_RecordAndDrainOnClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := rec.Record(ctx, record(string(rune('a'+i)), "")); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	count, err := store.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 10 {
		t.Errorf("stored = %d, want all 10 buffered contexts drained", count)
	}
}

func TestRecorder_AmendAppliedAfterRecord(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := NewRecorder(store, nil)
	ctx := context.Background()

	execCtx := record("exec-1", "")
	execCtx.ActionResults = []*audit.ActionResult{{
		ActionID: "a1",
		Status:   audit.ActionSuccess,
		Result:   map[string]interface{}{"deferred": true},
	}}
	if err := rec.Record(ctx, execCtx); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := rec.Amend(ctx, &audit.Amendment{
		ExecutionID: "exec-1",
		ActionID:    "a1",
		Status:      audit.ActionFailure,
		Error:       "contract reverted",
		CompletedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Amend: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	stored, err := store.Get(ctx, "exec-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	ar := stored.ActionResults[0]
	if ar.Status != audit.ActionFailure {
		t.Errorf("Status = %v, the amendment enqueued after the record must win", ar.Status)
	}
	if _, still := ar.Result["deferred"]; still {
		t.Error("deferred marker must be cleared by the amendment")
	}
}

func TestRecorder_FullBufferDropsWithError(t *testing.T) {
	// A blocking store would keep the worker busy; a tiny buffer is enough
	// to overflow synchronously before the worker drains anything.
	store := &blockingStore{Store: storage.NewMemoryStorage(), gate: make(chan struct{})}
	rec := NewRecorder(store, &Config{AsyncBuffer: 1, WriteTimeout: time.Second})
	defer func() {
		close(store.gate)
		_ = rec.Close()
	}()
	ctx := context.Background()

	// First record is picked up by the worker and blocks; the second fills
	// the buffer; the third must be dropped.
	var dropErr error
	for i := 0; i < 10 && dropErr == nil; i++ {
		dropErr = rec.Record(ctx, record(string(rune('a'+i)), ""))
	}
	if dropErr == nil {
		t.Fatal("expected a drop once the buffer filled")
	}
	var rErr *audit.RecorderError
	if !errors.As(dropErr, &rErr) {
		t.Errorf("error = %T, want RecorderError", dropErr)
	}
}

// blockingStore delays every write until the gate closes.
type blockingStore struct {
	audit.Store
	gate chan struct{}
}

func (s *blockingStore) Record(ctx context.Context, rec *audit.RuleExecutionContext) error {
	<-s.gate
	return s.Store.Record(ctx, rec)
}

func TestRecorder_ByIdempotencyKeySeesBufferedContexts(t *testing.T) {
	store := &blockingStore{Store: storage.NewMemoryStorage(), gate: make(chan struct{})}
	rec := NewRecorder(store, nil)
	defer func() {
		close(store.gate)
		_ = rec.Close()
	}()
	ctx := context.Background()

	if err := rec.Record(ctx, record("exec-1", "evt-9")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// The write has not landed yet, but the key index must already report it.
	prior, err := rec.ByIdempotencyKey(ctx, "evt-9")
	if err != nil {
		t.Fatalf("ByIdempotencyKey: %v", err)
	}
	if len(prior) == 0 {
		t.Error("buffered context must be visible through the key index")
	}

	unseen, err := rec.ByIdempotencyKey(ctx, "evt-other")
	if err != nil {
		t.Fatalf("ByIdempotencyKey: %v", err)
	}
	if len(unseen) != 0 {
		t.Errorf("unseen key returned %d contexts", len(unseen))
	}
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	// Unbuffered channel: with the worker gone, only the done case can fire.
	rec := NewRecorder(storage.NewMemoryStorage(), &Config{AsyncBuffer: 0, WriteTimeout: time.Second})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rec.Record(context.Background(), record("exec-1", "")); err == nil {
		t.Error("record after close must fail")
	}
}
