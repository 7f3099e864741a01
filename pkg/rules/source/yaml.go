package source

import (
	"time"

	"gopkg.in/yaml.v3"

	"clearline-hq/gatekeeper/pkg/rules"
)

// document is the top-level shape of a rule file. A file may carry any number
// of rules under the "rules" key.
type document struct {
	Rules []ruleDoc `yaml:"rules"`
}

// ruleDoc mirrors rules.Rule with file-friendly representations: action
// parameters are plain maps and timeouts are written in seconds.
type ruleDoc struct {
	ID               string    `yaml:"id"`
	Name             string    `yaml:"name"`
	Description      string    `yaml:"description"`
	OrganizationType string    `yaml:"organizationType"`
	Category         string    `yaml:"category"`
	Config           configDoc `yaml:"config"`
	CreatedBy        string    `yaml:"createdBy"`
	CreatedAt        time.Time `yaml:"createdAt"`
	UpdatedBy        string    `yaml:"updatedBy"`
	UpdatedAt        time.Time `yaml:"updatedAt"`
}

type configDoc struct {
	Priority   string                  `yaml:"priority"`
	Status     string                  `yaml:"status"`
	Version    int                     `yaml:"version"`
	Triggers   []rules.Trigger         `yaml:"triggers"`
	Conditions []*rules.Condition      `yaml:"conditions"`
	Actions    []actionDoc             `yaml:"actions"`
	Execution  executionDoc            `yaml:"execution"`
	Compliance *rules.ComplianceConfig `yaml:"compliance"`
}

type actionDoc struct {
	ID         string                 `yaml:"id"`
	Type       string                 `yaml:"type"`
	Parameters map[string]interface{} `yaml:"parameters"`
	Conditions []*rules.Condition     `yaml:"conditions"`
}

type executionDoc struct {
	Mode           string             `yaml:"mode"`
	TimeoutSeconds int                `yaml:"timeoutSeconds"`
	RetryPolicy    *rules.RetryPolicy `yaml:"retryPolicy"`
}

// DecodeDocument decodes a YAML rule document into the typed model. Versions
// default to 1 and execution mode defaults to sync when omitted. The result
// is not yet validated; callers run it through the validator before use.
func DecodeDocument(data []byte) ([]*rules.Rule, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	decoded := make([]*rules.Rule, 0, len(doc.Rules))
	for i := range doc.Rules {
		rule, err := decodeRule(&doc.Rules[i])
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, rule)
	}
	return decoded, nil
}

func decodeRule(doc *ruleDoc) (*rules.Rule, error) {
	rule := &rules.Rule{
		ID:               doc.ID,
		Name:             doc.Name,
		Description:      doc.Description,
		OrganizationType: rules.OrganizationType(doc.OrganizationType),
		Category:         rules.RuleCategory(doc.Category),
		CreatedBy:        doc.CreatedBy,
		CreatedAt:        doc.CreatedAt,
		UpdatedBy:        doc.UpdatedBy,
		UpdatedAt:        doc.UpdatedAt,
		Config: rules.RuleConfig{
			Priority:   rules.Priority(doc.Config.Priority),
			Status:     rules.Status(doc.Config.Status),
			Version:    doc.Config.Version,
			Triggers:   doc.Config.Triggers,
			Conditions: doc.Config.Conditions,
			Compliance: doc.Config.Compliance,
			Execution: rules.ExecutionConfig{
				Mode:        rules.ExecutionMode(doc.Config.Execution.Mode),
				Timeout:     time.Duration(doc.Config.Execution.TimeoutSeconds) * time.Second,
				RetryPolicy: doc.Config.Execution.RetryPolicy,
			},
		},
	}

	if rule.Config.Version == 0 {
		rule.Config.Version = 1
	}
	if rule.Config.Execution.Mode == "" {
		rule.Config.Execution.Mode = rules.ModeSync
	}

	for i := range doc.Config.Actions {
		action, err := decodeAction(&doc.Config.Actions[i])
		if err != nil {
			return nil, &ParseError{RuleID: doc.ID, Message: "invalid action", Cause: err}
		}
		rule.Config.Actions = append(rule.Config.Actions, action)
	}
	return rule, nil
}

func decodeAction(doc *actionDoc) (*rules.Action, error) {
	action := &rules.Action{
		ID:         doc.ID,
		Type:       rules.ActionType(doc.Type),
		Conditions: doc.Conditions,
	}
	if doc.Parameters != nil {
		params, err := rules.DecodeActionParamsMap(action.Type, doc.Parameters)
		if err != nil {
			return nil, err
		}
		action.Parameters = params
	}
	return action, nil
}
