package validator

import (
	"fmt"
	"regexp"

	"clearline-hq/gatekeeper/pkg/rules"
)

// operatorDataTypes is the compatibility table between operators and the
// data types their leaf tests may declare.
var operatorDataTypes = map[rules.Operator][]rules.DataType{
	rules.OperatorEquals:         {rules.DataTypeString, rules.DataTypeNumber, rules.DataTypeBoolean, rules.DataTypeDate},
	rules.OperatorNotEquals:      {rules.DataTypeString, rules.DataTypeNumber, rules.DataTypeBoolean, rules.DataTypeDate},
	rules.OperatorGreaterThan:    {rules.DataTypeNumber, rules.DataTypeDate},
	rules.OperatorLessThan:       {rules.DataTypeNumber, rules.DataTypeDate},
	rules.OperatorGreaterOrEqual: {rules.DataTypeNumber, rules.DataTypeDate},
	rules.OperatorLessOrEqual:    {rules.DataTypeNumber, rules.DataTypeDate},
	rules.OperatorContains:       {rules.DataTypeString, rules.DataTypeArray},
	rules.OperatorNotContains:    {rules.DataTypeString, rules.DataTypeArray},
	rules.OperatorIn:             {rules.DataTypeString, rules.DataTypeNumber},
	rules.OperatorNotIn:          {rules.DataTypeString, rules.DataTypeNumber},
	rules.OperatorBetween:        {rules.DataTypeNumber, rules.DataTypeDate},
	rules.OperatorRegex:          {rules.DataTypeString},
}

// validateSemantics checks the organization/category pairing and the
// operator/data-type compatibility of every leaf test, including per-action
// condition gates.
func (v *Validator) validateSemantics(rule *rules.Rule, errs *ErrorList) {
	if !rules.CategoryAllowed(rule.OrganizationType, rule.Category) {
		errs.Add(rule.ID, "category",
			"category %q is not in the %s vocabulary", rule.Category, rule.OrganizationType)
	}

	for i, cond := range rule.Config.Conditions {
		v.validateConditionSemantics(rule.ID, fmt.Sprintf("config.conditions[%d]", i), cond, errs)
	}
	for i, action := range rule.Config.Actions {
		for j, cond := range action.Conditions {
			v.validateConditionSemantics(rule.ID,
				fmt.Sprintf("config.actions[%d].conditions[%d]", i, j), cond, errs)
		}
	}
}

func (v *Validator) validateConditionSemantics(ruleID, path string, cond *rules.Condition, errs *ErrorList) {
	if cond == nil {
		return
	}
	if cond.IsLeaf() {
		v.validateLeafTest(ruleID, path, cond, errs)
	}
	for i, child := range cond.And {
		v.validateConditionSemantics(ruleID, fmt.Sprintf("%s.and[%d]", path, i), child, errs)
	}
	for i, child := range cond.Or {
		v.validateConditionSemantics(ruleID, fmt.Sprintf("%s.or[%d]", path, i), child, errs)
	}
}

func (v *Validator) validateLeafTest(ruleID, path string, cond *rules.Condition, errs *ErrorList) {
	if !cond.Operator.IsValid() {
		errs.Add(ruleID, path+".operator", "unknown operator %q", cond.Operator)
		return
	}
	if !cond.DataType.IsValid() {
		errs.Add(ruleID, path+".dataType", "unknown data type %q", cond.DataType)
		return
	}

	allowed := false
	for _, dt := range operatorDataTypes[cond.Operator] {
		if dt == cond.DataType {
			allowed = true
			break
		}
	}
	if !allowed {
		errs.Add(ruleID, path+".operator",
			"operator %q is not compatible with data type %q", cond.Operator, cond.DataType)
	}

	switch cond.Operator {
	case rules.OperatorBetween:
		pair, ok := cond.Value.([]interface{})
		if !ok || len(pair) != 2 {
			errs.Add(ruleID, path+".value", "between requires a 2-element ordered pair")
		}
	case rules.OperatorIn, rules.OperatorNotIn:
		if _, ok := cond.Value.([]interface{}); !ok {
			errs.Add(ruleID, path+".value", "%s requires a list value", cond.Operator)
		}
	case rules.OperatorRegex:
		pattern, ok := cond.Value.(string)
		if !ok {
			errs.Add(ruleID, path+".value", "regex requires a string pattern")
			return
		}
		if _, err := regexp.Compile(pattern); err != nil {
			errs.Add(ruleID, path+".value", "invalid regex pattern %q: %v", pattern, err)
		}
	}
}
