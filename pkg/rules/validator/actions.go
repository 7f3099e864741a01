package validator

import (
	"fmt"

	"clearline-hq/gatekeeper/pkg/rules"
)

// validateActions checks each action's type, its parameter variant, and that
// the variant's required fields are present. Parameter problems found here
// are terminal at creation time and never surface mid-evaluation.
func (v *Validator) validateActions(rule *rules.Rule, errs *ErrorList) {
	seen := make(map[string]bool)
	for i, action := range rule.Config.Actions {
		path := fmt.Sprintf("config.actions[%d]", i)
		if action.ID == "" {
			errs.Add(rule.ID, path+".id", "action id is required")
		} else if seen[action.ID] {
			errs.Add(rule.ID, path+".id", "duplicate action id %q", action.ID)
		} else {
			seen[action.ID] = true
		}

		if !action.Type.IsValid() {
			errs.Add(rule.ID, path+".type", "unknown action type %q", action.Type)
			continue
		}
		v.validateActionParams(rule.ID, path, action, errs)
	}
}

func (v *Validator) validateActionParams(ruleID, path string, action *rules.Action, errs *ErrorList) {
	if action.Parameters != nil && action.Parameters.ActionType() != action.Type {
		errs.Add(ruleID, path+".parameters",
			"parameter variant %q does not match action type %q",
			action.Parameters.ActionType(), action.Type)
		return
	}

	switch action.Type {
	case rules.ActionApprove:
		// Parameters optional.

	case rules.ActionReject:
		p, ok := action.Parameters.(*rules.RejectParams)
		if !ok || p.Message == "" {
			errs.Add(ruleID, path+".parameters", "reject requires a message")
		}

	case rules.ActionHold:
		p, ok := action.Parameters.(*rules.HoldParams)
		if !ok || p.Message == "" {
			errs.Add(ruleID, path+".parameters", "hold requires a message")
		}

	case rules.ActionNotify:
		p, ok := action.Parameters.(*rules.NotifyParams)
		if !ok {
			errs.Add(ruleID, path+".parameters", "notify requires notificationChannels and recipients")
			return
		}
		if len(p.NotificationChannels) == 0 {
			errs.Add(ruleID, path+".parameters.notificationChannels", "at least one channel is required")
		}
		if len(p.Recipients) == 0 {
			errs.Add(ruleID, path+".parameters.recipients", "at least one recipient is required")
		}

	case rules.ActionEscalate:
		p, ok := action.Parameters.(*rules.EscalateParams)
		if !ok || len(p.Approvers) == 0 {
			errs.Add(ruleID, path+".parameters", "escalate requires at least one approver")
		}

	case rules.ActionLog:
		p, ok := action.Parameters.(*rules.LogParams)
		if !ok || p.Message == "" {
			errs.Add(ruleID, path+".parameters", "log requires a message")
		}

	case rules.ActionExecuteContract:
		p, ok := action.Parameters.(*rules.ContractParams)
		if !ok {
			errs.Add(ruleID, path+".parameters", "execute-contract requires contractAddress and functionName")
			return
		}
		if p.ContractAddress == "" {
			errs.Add(ruleID, path+".parameters.contractAddress", "contractAddress is required")
		}
		if p.FunctionName == "" {
			errs.Add(ruleID, path+".parameters.functionName", "functionName is required")
		}

	case rules.ActionTriggerWorkflow:
		p, ok := action.Parameters.(*rules.WorkflowParams)
		if !ok || p.WorkflowID == "" {
			errs.Add(ruleID, path+".parameters", "trigger-workflow requires a workflowId")
		}
	}
}
