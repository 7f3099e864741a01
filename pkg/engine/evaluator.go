package engine

import (
	"time"

	"clearline-hq/gatekeeper/pkg/audit"
	"clearline-hq/gatekeeper/pkg/rules"
)

// Evaluator evaluates condition trees against trigger data. Evaluation is
// pure: no side effects, so short-circuit order is observable only through
// the per-node timing trace.
type Evaluator struct {
	regexes *regexCache
}

// NewEvaluator creates a condition evaluator with an empty regex cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{regexes: newRegexCache()}
}

// Evaluate evaluates a top-level condition list as an implicit AND: every
// condition must independently evaluate true. It returns the combined
// result plus one ConditionResult per node visited, in visit order. Nodes
// after a short-circuit are not visited and produce no result.
//
// An evaluation error (type mismatch, malformed value) makes the combined
// result false and is returned so the caller can flag the rule as an
// anomaly; the node that errored still gets a result carrying the error
// text.
func (ev *Evaluator) Evaluate(conditions []*rules.Condition, data map[string]interface{}) (bool, []*audit.ConditionResult, error) {
	var results []*audit.ConditionResult

	for _, cond := range conditions {
		matched, err := ev.evaluateNode(cond, data, &results)
		if err != nil {
			return false, results, err
		}
		if !matched {
			return false, results, nil
		}
	}

	return true, results, nil
}

// evaluateNode evaluates one node: the leaf test (if present), the And
// group (all children true) and the Or group (any child true) are each
// combined via AND, then Not negates the combined result.
func (ev *Evaluator) evaluateNode(cond *rules.Condition, data map[string]interface{}, results *[]*audit.ConditionResult) (bool, error) {
	start := time.Now()
	result := true
	var evalErr error

	if cond.IsLeaf() {
		result, evalErr = ev.evaluateLeaf(cond, data)
	}

	// And children, left to right, short-circuit on the first false.
	if evalErr == nil && result {
		for _, child := range cond.And {
			matched, err := ev.evaluateNode(child, data, results)
			if err != nil {
				evalErr = err
				break
			}
			if !matched {
				result = false
				break
			}
		}
	}

	// Or children, left to right, short-circuit on the first true.
	if evalErr == nil && result && len(cond.Or) > 0 {
		anyMatched := false
		for _, child := range cond.Or {
			matched, err := ev.evaluateNode(child, data, results)
			if err != nil {
				evalErr = err
				break
			}
			if matched {
				anyMatched = true
				break
			}
		}
		if evalErr == nil {
			result = anyMatched
		}
	}

	if evalErr != nil {
		*results = append(*results, &audit.ConditionResult{
			ConditionID:    cond.ID,
			Result:         false,
			EvaluationTime: time.Since(start),
			Error:          evalErr.Error(),
		})
		return false, evalErr
	}

	if cond.Not {
		result = !result
	}

	*results = append(*results, &audit.ConditionResult{
		ConditionID:    cond.ID,
		Result:         result,
		EvaluationTime: time.Since(start),
	})
	return result, nil
}

// evaluateLeaf resolves the field and applies the operator. A missing field
// evaluates false for positive operators and true for negative operators
// (not-equals, not-contains, not-in): an ambiguous field must never let a
// restrictive rule silently pass.
func (ev *Evaluator) evaluateLeaf(cond *rules.Condition, data map[string]interface{}) (bool, error) {
	value, present := lookupField(data, cond.Field)
	if !present {
		return cond.Operator.IsNegative(), nil
	}

	if err := checkDataType(cond, value); err != nil {
		return false, err
	}

	return evaluateOperator(cond, value, ev.regexes)
}
