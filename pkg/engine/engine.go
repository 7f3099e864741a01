package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/engine/collab"
	"clearline-hq/gatekeeper/pkg/rules"
)

// Collaborators bundles the external side-effect interfaces the action
// executor invokes.
type Collaborators struct {
	Notifier  collab.Notifier
	Contracts collab.ContractCaller
	Workflows collab.WorkflowRunner
}

// Observer receives evaluation telemetry. Satisfied by the metrics
// collector; a nil observer disables observation.
type Observer interface {
	ObserveTrigger(orgType, outcome string, duration time.Duration)
	ObserveRuleEvaluation(ruleID string, matched bool, duration time.Duration)
	ObserveActionExecution(actionType, status string)
	ObserveAnomaly(ruleID string)
}

// StatsSink receives per-rule execution counters. Satisfied by the
// registry.
type StatsSink interface {
	RecordExecution(ruleID string, success bool, duration time.Duration)
}

// RuleEngine orchestrates rule selection, condition evaluation, action
// execution and audit recording for trigger events. Safe for concurrent
// use: invocations share no mutable state beyond the provider and the
// recorder, which carry their own synchronization.
type RuleEngine struct {
	provider  RuleProvider
	recorder  Recorder
	evaluator *Evaluator
	executor  *Executor
	config    *EngineConfig
	logger    *slog.Logger

	observer Observer
	stats    StatsSink
}

// NewRuleEngine creates a rule engine with its own evaluator and action
// executor.
func NewRuleEngine(config *EngineConfig, provider RuleProvider, recorder Recorder, collaborators Collaborators, logger *slog.Logger) (*RuleEngine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("rule provider cannot be nil")
	}
	if recorder == nil {
		return nil, fmt.Errorf("recorder cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	evaluator := NewEvaluator()
	return &RuleEngine{
		provider:  provider,
		recorder:  recorder,
		evaluator: evaluator,
		executor:  NewExecutor(evaluator, collaborators.Notifier, collaborators.Contracts, collaborators.Workflows, recorder, config, logger),
		config:    config,
		logger:    logger.With("component", "rule-engine"),
	}, nil
}

// SetObserver attaches a telemetry observer.
func (e *RuleEngine) SetObserver(o Observer) {
	e.observer = o
}

// SetStatsSink attaches a per-rule stats sink.
func (e *RuleEngine) SetStatsSink(s StatsSink) {
	e.stats = s
}

// HandleTrigger evaluates all applicable active rules against the trigger
// and returns the aggregate decision. Business-data errors (type
// mismatches, collaborator failures) are absorbed into the recorded
// execution contexts; only infrastructure failures surface as an error.
func (e *RuleEngine) HandleTrigger(ctx context.Context, trigger *TriggerEvent) (*Decision, error) {
	if err := validateTrigger(trigger); err != nil {
		return nil, err
	}

	// At-least-once delivery: a previously seen idempotency key suppresses
	// contract and workflow re-execution.
	duplicate := false
	if trigger.IdempotencyKey != "" {
		prior, err := e.recorder.ByIdempotencyKey(ctx, trigger.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup failed: %w", err)
		}
		duplicate = len(prior) > 0
	}

	candidates := e.provider.GetCandidates(trigger.OrganizationType, trigger.Type)
	decision := e.run(ctx, trigger, candidates, execOptions{suppressNonIdempotent: duplicate})
	return decision, nil
}

// TestTrigger evaluates testing rules alongside the active set with
// collaborator side effects suppressed. No external call is attempted;
// the recorded contexts carry a test-mode marker.
func (e *RuleEngine) TestTrigger(ctx context.Context, trigger *TriggerEvent) (*Decision, error) {
	if err := validateTrigger(trigger); err != nil {
		return nil, err
	}

	candidates := e.provider.GetTestCandidates(trigger.OrganizationType, trigger.Type)
	decision := e.run(ctx, trigger, candidates, execOptions{dryRun: true})
	decision.TestMode = true
	return decision, nil
}

// run drives one invocation through Selecting, Evaluating, Executing,
// Recording and Done.
func (e *RuleEngine) run(ctx context.Context, trigger *TriggerEvent, candidates []*rules.Rule, opts execOptions) *Decision {
	start := time.Now()
	decision := &Decision{
		Outcome:             OutcomeApprove,
		MatchedRuleIDs:      []string{},
		ExecutionContextIDs: []string{},
	}

	anyMatched := false
	blocked := false

	for _, rule := range candidates {
		execCtx := e.newExecutionContext(rule, trigger, opts)

		if blocked {
			execCtx.Complete(audit.StatusSkippedPrecedence)
			e.record(ctx, execCtx, decision)
			continue
		}

		ruleStart := time.Now()
		matched, condResults, evalErr := e.evaluator.Evaluate(rule.Config.Conditions, trigger.Data)
		execCtx.ConditionResults = condResults
		execCtx.Matched = matched

		if e.observer != nil {
			e.observer.ObserveRuleEvaluation(rule.ID, matched, time.Since(ruleStart))
		}

		if evalErr != nil {
			// A type mismatch makes the rule non-matching, never silently
			// skipped: the anomaly flag keeps it visible in the trail.
			execCtx.Anomaly = true
			execCtx.Complete(audit.StatusCompleted)
			e.logger.Warn("rule evaluation anomaly",
				"rule_id", rule.ID,
				"trigger_type", trigger.Type,
				"error", evalErr,
			)
			if e.observer != nil {
				e.observer.ObserveAnomaly(rule.ID)
			}
			e.record(ctx, execCtx, decision)
			continue
		}

		if !matched {
			execCtx.Complete(audit.StatusCompleted)
			e.record(ctx, execCtx, decision)
			continue
		}

		anyMatched = true
		decision.MatchedRuleIDs = append(decision.MatchedRuleIDs, rule.ID)

		batchErr := e.executor.ExecuteBatch(ctx, rule, execCtx, opts)
		e.applyActionOutcomes(execCtx, decision)
		e.observeActions(execCtx)

		if batchErr != nil {
			execCtx.Complete(audit.StatusFailed)
			e.logger.Error("rule action batch failed",
				"rule_id", rule.ID,
				"trigger_type", trigger.Type,
				"error", batchErr,
			)
			// A blocking-category rule that could not complete must never
			// resolve to a silent approve.
			if rule.IsBlockingCategory() && OutcomeEscalate.MoreRestrictive(decision.Outcome) {
				decision.Outcome = OutcomeEscalate
			}
		} else {
			execCtx.Complete(audit.StatusCompleted)
		}

		if e.stats != nil {
			e.stats.RecordExecution(rule.ID, batchErr == nil, time.Since(ruleStart))
		}

		// A successful reject or hold is final: lower-priority rules are
		// recorded as precedence-skipped, not evaluated.
		if hasSuccessfulBlockingAction(execCtx) {
			blocked = true
		}

		e.record(ctx, execCtx, decision)
	}

	if !anyMatched {
		// Fail-open for the absence of matching rules is the business
		// default, distinct from fail-closed field handling inside
		// condition evaluation.
		decision.Outcome = OutcomeApprove
	}

	decision.EvaluationTime = time.Since(start)
	if e.observer != nil {
		e.observer.ObserveTrigger(string(trigger.OrganizationType), string(decision.Outcome), decision.EvaluationTime)
	}

	e.logger.Info("trigger handled",
		"trigger_type", trigger.Type,
		"organization_type", trigger.OrganizationType,
		"candidates", len(candidates),
		"matched", len(decision.MatchedRuleIDs),
		"outcome", decision.Outcome,
		"duration", decision.EvaluationTime,
	)

	return decision
}

// newExecutionContext creates the audit record for one candidate rule.
func (e *RuleEngine) newExecutionContext(rule *rules.Rule, trigger *TriggerEvent, opts execOptions) *audit.RuleExecutionContext {
	execCtx := &audit.RuleExecutionContext{
		ExecutionID:      uuid.New().String(),
		RuleID:           rule.ID,
		OrganizationType: rule.OrganizationType,
		Trigger: audit.TriggerSnapshot{
			Type:      trigger.Type,
			Timestamp: trigger.Timestamp,
			Source:    trigger.Source,
			Data:      trigger.Data,
		},
		StartTime:      time.Now(),
		Status:         audit.StatusRunning,
		IdempotencyKey: trigger.IdempotencyKey,
	}
	if opts.dryRun {
		execCtx.Metadata = map[string]string{"testMode": "true"}
	}
	return execCtx
}

// applyActionOutcomes stamps the rule's own decision contribution on its
// context, then folds it into the aggregate outcome, keeping the most
// restrictive one and its reason. The context carries what this rule
// decided, not the running aggregate.
func (e *RuleEngine) applyActionOutcomes(execCtx *audit.RuleExecutionContext, decision *Decision) {
	var ruleOutcome Outcome
	var reason string
	for _, ar := range execCtx.ActionResults {
		if ar.Status != audit.ActionSuccess {
			continue
		}
		outcome, ok := outcomeForAction(ar.Type)
		if !ok {
			continue
		}
		if outcome.MoreRestrictive(ruleOutcome) {
			ruleOutcome = outcome
			if ar.Result != nil {
				if msg, ok := ar.Result["message"].(string); ok {
					reason = msg
				}
			}
		}
	}
	if ruleOutcome == "" {
		return
	}

	execCtx.Outcome = string(ruleOutcome)
	if ruleOutcome.MoreRestrictive(decision.Outcome) {
		decision.Outcome = ruleOutcome
		decision.Reason = reason
	}
}

// observeActions forwards per-action telemetry.
func (e *RuleEngine) observeActions(execCtx *audit.RuleExecutionContext) {
	if e.observer == nil {
		return
	}
	for _, ar := range execCtx.ActionResults {
		e.observer.ObserveActionExecution(string(ar.Type), string(ar.Status))
	}
}

// hasSuccessfulBlockingAction reports whether the context carries a
// successful reject or hold.
func hasSuccessfulBlockingAction(execCtx *audit.RuleExecutionContext) bool {
	for _, ar := range execCtx.ActionResults {
		if ar.Status == audit.ActionSuccess && ar.Type.IsBlocking() {
			return true
		}
	}
	return false
}

// record persists one execution context. Persistence failure is logged and
// escalated operationally but never aborts the already-decided invocation.
func (e *RuleEngine) record(ctx context.Context, execCtx *audit.RuleExecutionContext, decision *Decision) {
	decision.ExecutionContextIDs = append(decision.ExecutionContextIDs, execCtx.ExecutionID)

	if err := e.recorder.Record(ctx, execCtx); err != nil {
		e.logger.Error("failed to record execution context",
			"execution_id", execCtx.ExecutionID,
			"rule_id", execCtx.RuleID,
			"error", err,
		)
	}
}

// validateTrigger rejects structurally unusable trigger events.
func validateTrigger(trigger *TriggerEvent) error {
	if trigger == nil {
		return fmt.Errorf("trigger cannot be nil")
	}
	if trigger.Type == "" {
		return fmt.Errorf("trigger type cannot be empty")
	}
	if !trigger.OrganizationType.IsValid() {
		return fmt.Errorf("invalid organization type %q", trigger.OrganizationType)
	}
	return nil
}

// Close shuts down the engine's async workers.
func (e *RuleEngine) Close() error {
	e.executor.Close()
	return nil
}
