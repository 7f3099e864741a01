package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"clearline-hq/gatekeeper/pkg/rules"
)

// checkDataType verifies the resolved value's runtime type against the
// declared data type. No coercion is attempted; a mismatch is a
// TypeMismatchError and the owning rule is treated as non-matching.
func checkDataType(cond *rules.Condition, value interface{}) error {
	ok := false
	switch cond.DataType {
	case rules.DataTypeString:
		_, ok = value.(string)
	case rules.DataTypeNumber:
		_, ok = toNumber(value)
	case rules.DataTypeBoolean:
		_, ok = value.(bool)
	case rules.DataTypeArray:
		k := reflect.ValueOf(value).Kind()
		ok = k == reflect.Slice || k == reflect.Array
	case rules.DataTypeDate:
		_, ok = toTime(value)
	}
	if !ok {
		return &TypeMismatchError{
			ConditionID:  cond.ID,
			Field:        cond.Field,
			ExpectedType: string(cond.DataType),
			ActualType:   fmt.Sprintf("%T", value),
		}
	}
	return nil
}

// evaluateOperator evaluates a leaf test against an already type-checked
// resolved value.
func evaluateOperator(cond *rules.Condition, actual interface{}, regexes *regexCache) (bool, error) {
	switch cond.Operator {
	case rules.OperatorEquals:
		return evaluateEqual(actual, cond.Value), nil

	case rules.OperatorNotEquals:
		return !evaluateEqual(actual, cond.Value), nil

	case rules.OperatorGreaterThan:
		cmp, err := compare(cond, actual, cond.Value)
		return cmp > 0, err

	case rules.OperatorLessThan:
		cmp, err := compare(cond, actual, cond.Value)
		return cmp < 0, err

	case rules.OperatorGreaterOrEqual:
		cmp, err := compare(cond, actual, cond.Value)
		return cmp >= 0, err

	case rules.OperatorLessOrEqual:
		cmp, err := compare(cond, actual, cond.Value)
		return cmp <= 0, err

	case rules.OperatorContains:
		return evaluateContains(cond, actual)

	case rules.OperatorNotContains:
		contains, err := evaluateContains(cond, actual)
		return !contains, err

	case rules.OperatorIn:
		return evaluateIn(cond, actual)

	case rules.OperatorNotIn:
		in, err := evaluateIn(cond, actual)
		return !in, err

	case rules.OperatorBetween:
		return evaluateBetween(cond, actual)

	case rules.OperatorRegex:
		return evaluateRegex(cond, actual, regexes)

	default:
		return false, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("unknown operator %q", cond.Operator),
		}
	}
}

// evaluateEqual compares two values, treating all numeric types uniformly.
func evaluateEqual(actual, expected interface{}) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	an, aok := toNumber(actual)
	en, eok := toNumber(expected)
	if aok && eok {
		return an == en
	}
	at, aok := toTime(actual)
	et, eok := toTime(expected)
	if aok && eok {
		return at.Equal(et)
	}
	return reflect.DeepEqual(actual, expected)
}

// compare orders two values of the same orderable kind. Returns -1, 0 or 1.
func compare(cond *rules.Condition, actual, expected interface{}) (int, error) {
	if cond.DataType == rules.DataTypeDate {
		at, aok := toTime(actual)
		et, eok := toTime(expected)
		if !aok || !eok {
			return 0, &ConditionError{
				ConditionID: cond.ID,
				Field:       cond.Field,
				Cause:       fmt.Errorf("date comparison requires date values, got %T and %T", actual, expected),
			}
		}
		switch {
		case at.Before(et):
			return -1, nil
		case at.After(et):
			return 1, nil
		default:
			return 0, nil
		}
	}

	an, aok := toNumber(actual)
	en, eok := toNumber(expected)
	if !aok || !eok {
		// kycLevel-style ordered strings compare lexically.
		as, aok := actual.(string)
		es, eok := expected.(string)
		if aok && eok {
			return strings.Compare(as, es), nil
		}
		return 0, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("ordered comparison requires numbers, dates or strings, got %T and %T", actual, expected),
		}
	}
	switch {
	case an < en:
		return -1, nil
	case an > en:
		return 1, nil
	default:
		return 0, nil
	}
}

// evaluateContains tests substring containment for strings and element
// membership for arrays.
func evaluateContains(cond *rules.Condition, actual interface{}) (bool, error) {
	if s, ok := actual.(string); ok {
		expected, ok := cond.Value.(string)
		if !ok {
			return false, &ConditionError{
				ConditionID: cond.ID,
				Field:       cond.Field,
				Cause:       fmt.Errorf("contains on a string field requires a string value, got %T", cond.Value),
			}
		}
		return strings.Contains(s, expected), nil
	}

	v := reflect.ValueOf(actual)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("contains requires a string or array field, got %T", actual),
		}
	}
	for i := 0; i < v.Len(); i++ {
		if evaluateEqual(v.Index(i).Interface(), cond.Value) {
			return true, nil
		}
	}
	return false, nil
}

// evaluateIn tests membership of the resolved value in the condition's
// value list.
func evaluateIn(cond *rules.Condition, actual interface{}) (bool, error) {
	list := reflect.ValueOf(cond.Value)
	if !list.IsValid() || (list.Kind() != reflect.Slice && list.Kind() != reflect.Array) {
		return false, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("in requires a list value, got %T", cond.Value),
		}
	}
	for i := 0; i < list.Len(); i++ {
		if evaluateEqual(actual, list.Index(i).Interface()) {
			return true, nil
		}
	}
	return false, nil
}

// evaluateBetween tests lowerBound <= actual <= upperBound, inclusive on
// both ends. The value must be a 2-element ordered pair of the same
// orderable type as the resolved value.
func evaluateBetween(cond *rules.Condition, actual interface{}) (bool, error) {
	bounds := reflect.ValueOf(cond.Value)
	if !bounds.IsValid() || (bounds.Kind() != reflect.Slice && bounds.Kind() != reflect.Array) || bounds.Len() != 2 {
		return false, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("between requires a 2-element pair, got %T", cond.Value),
		}
	}

	lower, err := compare(cond, actual, bounds.Index(0).Interface())
	if err != nil {
		return false, err
	}
	upper, err := compare(cond, actual, bounds.Index(1).Interface())
	if err != nil {
		return false, err
	}
	return lower >= 0 && upper <= 0, nil
}

// evaluateRegex matches the resolved string against the condition's
// pattern. Matching is partial; anchors must be explicit in the pattern.
func evaluateRegex(cond *rules.Condition, actual interface{}, regexes *regexCache) (bool, error) {
	s, ok := actual.(string)
	if !ok {
		return false, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("regex requires a string field, got %T", actual),
		}
	}
	pattern, ok := cond.Value.(string)
	if !ok {
		return false, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("regex requires a string pattern, got %T", cond.Value),
		}
	}
	re, err := regexes.compile(pattern)
	if err != nil {
		return false, &ConditionError{
			ConditionID: cond.ID,
			Field:       cond.Field,
			Cause:       fmt.Errorf("invalid regex pattern %q: %w", pattern, err),
		}
	}
	return re.MatchString(s), nil
}

// toNumber converts any numeric runtime type to float64.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// toTime converts a time.Time or an RFC 3339 string to a time value.
// JSON payloads carry dates as strings.
func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// regexCache caches compiled patterns so each condition definition compiles
// its pattern once.
type regexCache struct {
	mu       sync.RWMutex
	compiled map[string]*regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{compiled: make(map[string]*regexp.Regexp)}
}

func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.compiled[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.compiled[pattern] = re
	c.mu.Unlock()
	return re, nil
}
