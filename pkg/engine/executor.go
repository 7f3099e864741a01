package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/engine/collab"
	"clearline-hq/gatekeeper/pkg/rules"
)

// execOptions tune one action batch.
type execOptions struct {
	// dryRun suppresses all collaborator side effects; external actions
	// are recorded as skipped dry runs. Used by test-mode evaluation.
	dryRun bool

	// suppressNonIdempotent skips contract and workflow actions. Set on a
	// duplicate idempotency key so at-least-once trigger delivery never
	// double-executes them.
	suppressNonIdempotent bool
}

// Executor runs a matched rule's actions in declared order against the
// collaborator interfaces.
type Executor struct {
	evaluator *Evaluator
	notifier  collab.Notifier
	contracts collab.ContractCaller
	workflows collab.WorkflowRunner
	recorder  Recorder
	config    *EngineConfig
	logger    *slog.Logger

	asyncQueue chan *asyncJob
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// asyncJob is one deferred action awaiting out-of-band execution.
type asyncJob struct {
	executionID string
	ruleID      string
	action      *rules.Action
	retry       *rules.RetryPolicy
	timeout     time.Duration
}

// NewExecutor creates an action executor and starts its async workers.
func NewExecutor(evaluator *Evaluator, notifier collab.Notifier, contracts collab.ContractCaller, workflows collab.WorkflowRunner, recorder Recorder, config *EngineConfig, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	ex := &Executor{
		evaluator:  evaluator,
		notifier:   notifier,
		contracts:  contracts,
		workflows:  workflows,
		recorder:   recorder,
		config:     config,
		logger:     logger.With("component", "action-executor"),
		asyncQueue: make(chan *asyncJob, config.AsyncQueueSize),
		stopCh:     make(chan struct{}),
	}

	for i := 0; i < config.AsyncWorkers; i++ {
		ex.wg.Add(1)
		go ex.asyncWorker()
	}

	return ex
}

// ExecuteBatch runs the rule's actions in declared array order, appending
// one ActionResult per action to the execution context. The whole batch is
// bounded by the rule's execution timeout (default applies when unset).
//
// The returned error is non-nil only when the batch could not run to
// completion: a timeout, or a terminal failure of a contract or workflow
// action. Notification failures never fail the batch.
func (ex *Executor) ExecuteBatch(ctx context.Context, rule *rules.Rule, execCtx *audit.RuleExecutionContext, opts execOptions) error {
	timeout := rule.Config.Execution.Timeout
	if timeout <= 0 {
		timeout = ex.config.DefaultActionTimeout
	}
	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var batchErr error
	for _, action := range rule.Config.Actions {
		select {
		case <-batchCtx.Done():
			execCtx.ActionResults = append(execCtx.ActionResults, &audit.ActionResult{
				ActionID: action.ID,
				Type:     action.Type,
				Status:   audit.ActionFailure,
				Error:    fmt.Sprintf("action batch timeout after %v", timeout),
			})
			return &TimeoutError{RuleID: rule.ID, Timeout: timeout}
		default:
		}

		result := ex.executeAction(batchCtx, rule, action, execCtx, opts)
		execCtx.ActionResults = append(execCtx.ActionResults, result)

		if result.Status == audit.ActionFailure && !action.Type.IsLocal() && action.Type != rules.ActionNotify && action.Type != rules.ActionEscalate {
			// Contract and workflow failures fail the batch; the engine
			// applies escalation bias for blocking-category rules.
			batchErr = &ActionError{
				RuleID:   rule.ID,
				ActionID: action.ID,
				Type:     string(action.Type),
				Cause:    fmt.Errorf("%s", result.Error),
			}
		}
	}

	return batchErr
}

// executeAction runs a single action, honoring its condition gate, the
// rule's execution mode and the retry policy.
func (ex *Executor) executeAction(ctx context.Context, rule *rules.Rule, action *rules.Action, execCtx *audit.RuleExecutionContext, opts execOptions) *audit.ActionResult {
	start := time.Now()
	result := &audit.ActionResult{
		ActionID: action.ID,
		Type:     action.Type,
	}

	// Per-action condition gate, evaluated against the same trigger data.
	if len(action.Conditions) > 0 {
		matched, _, err := ex.evaluator.Evaluate(action.Conditions, execCtx.Trigger.Data)
		if err != nil {
			result.Status = audit.ActionSkipped
			result.SkipReason = "condition gate error"
			result.Error = err.Error()
			result.ExecutionTime = time.Since(start)
			return result
		}
		if !matched {
			result.Status = audit.ActionSkipped
			result.SkipReason = "conditions not met"
			result.ExecutionTime = time.Since(start)
			return result
		}
	}

	// Duplicate delivery: non-idempotent side effects are not re-run.
	if opts.suppressNonIdempotent && (action.Type == rules.ActionExecuteContract || action.Type == rules.ActionTriggerWorkflow) {
		result.Status = audit.ActionSkipped
		result.SkipReason = "duplicate delivery"
		result.ExecutionTime = time.Since(start)
		return result
	}

	// Local state transitions are always synchronous, even in async rules.
	if action.Type.IsLocal() {
		ex.executeLocal(rule, action, result)
		result.ExecutionTime = time.Since(start)
		return result
	}

	if opts.dryRun {
		result.Status = audit.ActionSkipped
		result.SkipReason = "dry run"
		result.ExecutionTime = time.Since(start)
		return result
	}

	// Async rules defer collaborator actions to the worker pool. The
	// triggering invocation records a deferred success; the terminal result
	// arrives later through the recorder's amendment path.
	if rule.Config.Execution.Mode == rules.ModeAsync {
		job := &asyncJob{
			executionID: execCtx.ExecutionID,
			ruleID:      rule.ID,
			action:      action,
			retry:       rule.Config.Execution.RetryPolicy,
			timeout:     rule.Config.Execution.Timeout,
		}
		if job.timeout <= 0 {
			job.timeout = ex.config.DefaultActionTimeout
		}

		select {
		case ex.asyncQueue <- job:
			result.Status = audit.ActionSuccess
			result.Result = map[string]interface{}{"deferred": true}
		default:
			result.Status = audit.ActionFailure
			result.Error = "async queue full"
		}
		result.ExecutionTime = time.Since(start)
		return result
	}

	attempts, out, err := ex.callCollaborator(ctx, action, rule.Config.Execution.RetryPolicy)
	result.Attempts = attempts
	if err != nil {
		result.Status = audit.ActionFailure
		result.Error = err.Error()
	} else {
		result.Status = audit.ActionSuccess
		result.Result = out
	}
	result.ExecutionTime = time.Since(start)
	return result
}

// executeLocal handles approve, reject, hold and log: a local state
// transition with no collaborator. It succeeds unless the payload is
// malformed.
func (ex *Executor) executeLocal(rule *rules.Rule, action *rules.Action, result *audit.ActionResult) {
	switch p := action.Parameters.(type) {
	case *rules.ApproveParams, *rules.RejectParams, *rules.HoldParams:
		result.Status = audit.ActionSuccess
		if msg := action.RejectMessage(); msg != "" {
			result.Result = map[string]interface{}{"message": msg}
		}

	case *rules.LogParams:
		level := slog.LevelInfo
		switch p.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
		ex.logger.Log(context.Background(), level, p.Message,
			"rule_id", rule.ID,
			"action_id", action.ID,
		)
		result.Status = audit.ActionSuccess

	default:
		result.Status = audit.ActionFailure
		result.Error = fmt.Sprintf("malformed parameters for %s action", action.Type)
	}
}

// callCollaborator invokes the collaborator for a non-local action with
// retry on transient failures. It returns the attempt count, the result
// payload and the final error.
func (ex *Executor) callCollaborator(ctx context.Context, action *rules.Action, retry *rules.RetryPolicy) (int, map[string]interface{}, error) {
	maxAttempts := ex.config.DefaultMaxAttempts
	multiplier := 1.0
	if retry != nil {
		maxAttempts = retry.MaxAttempts
		multiplier = retry.BackoffMultiplier
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := ex.backoff(ctx, attempt, multiplier); err != nil {
				return attempt - 1, nil, lastErr
			}
		}

		out, err := ex.dispatch(ctx, action)
		if err == nil {
			return attempt, out, nil
		}
		lastErr = err

		if !ex.retryable(action.Type, err) {
			return attempt, nil, err
		}
	}

	return maxAttempts, nil, lastErr
}

// retryable reports whether a collaborator error warrants another attempt.
// Notification failures are always treated as transient; contract and
// workflow failures only when marked transient by the collaborator.
func (ex *Executor) retryable(t rules.ActionType, err error) bool {
	if t == rules.ActionNotify || t == rules.ActionEscalate {
		return true
	}
	return collab.IsTransient(err)
}

// backoff sleeps for baseDelay * multiplier^(attempt-2), capped at the
// configured ceiling. attempt is the upcoming attempt number, so the first
// retry waits the base delay. The sleep holds no locks and aborts if the
// context is cancelled.
func (ex *Executor) backoff(ctx context.Context, attempt int, multiplier float64) error {
	if multiplier < 1 {
		multiplier = 1
	}
	delay := time.Duration(float64(ex.config.RetryBaseDelay) * math.Pow(multiplier, float64(attempt-2)))
	if delay > ex.config.RetryMaxDelay {
		delay = ex.config.RetryMaxDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// dispatch routes a non-local action to its collaborator.
func (ex *Executor) dispatch(ctx context.Context, action *rules.Action) (map[string]interface{}, error) {
	switch p := action.Parameters.(type) {
	case *rules.NotifyParams:
		if err := ex.notifier.Send(ctx, p.NotificationChannels, p.Recipients, p.Message); err != nil {
			return nil, err
		}
		return map[string]interface{}{"notified": len(p.Recipients)}, nil

	case *rules.EscalateParams:
		if err := ex.notifier.Send(ctx, []string{"escalation"}, p.Approvers, p.Message); err != nil {
			return nil, err
		}
		return map[string]interface{}{"escalatedTo": len(p.Approvers), "approvalLevels": p.ApprovalLevels}, nil

	case *rules.ContractParams:
		tx, err := ex.contracts.Call(ctx, p.ContractAddress, p.FunctionName, p.Params, p.GasLimit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"txHash": tx.TxHash, "gasUsed": tx.GasUsed}, nil

	case *rules.WorkflowParams:
		runID, err := ex.workflows.Start(ctx, p.WorkflowID, p.Params)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"workflowRunId": runID}, nil

	default:
		return nil, collab.NewTerminalError(fmt.Sprintf("malformed parameters for %s action", action.Type), nil)
	}
}

// asyncWorker drains the async queue. Jobs run under a fresh background
// context: cancellation of the original trigger request must not cancel an
// already-dispatched external effect.
func (ex *Executor) asyncWorker() {
	defer ex.wg.Done()

	for {
		select {
		case <-ex.stopCh:
			// Drain remaining jobs so accepted work still completes.
			for {
				select {
				case job := <-ex.asyncQueue:
					ex.runAsyncJob(job)
				default:
					return
				}
			}
		case job := <-ex.asyncQueue:
			ex.runAsyncJob(job)
		}
	}
}

// runAsyncJob executes one deferred action and amends its execution
// context with the terminal result.
func (ex *Executor) runAsyncJob(job *asyncJob) {
	ctx, cancel := context.WithTimeout(context.Background(), job.timeout)
	defer cancel()

	start := time.Now()
	_, _, err := ex.callCollaborator(ctx, job.action, job.retry)

	amendment := &audit.Amendment{
		ExecutionID: job.executionID,
		ActionID:    job.action.ID,
		Status:      audit.ActionSuccess,
		Duration:    time.Since(start),
		CompletedAt: time.Now(),
	}
	if err != nil {
		amendment.Status = audit.ActionFailure
		amendment.Error = err.Error()
	}

	if err := ex.recorder.Amend(ctx, amendment); err != nil {
		ex.logger.Error("failed to amend execution context for async action",
			"execution_id", job.executionID,
			"action_id", job.action.ID,
			"error", err,
		)
	}
}

// Close stops the async workers after draining accepted jobs.
func (ex *Executor) Close() {
	ex.closeOnce.Do(func() {
		close(ex.stopCh)
	})
	ex.wg.Wait()
}
