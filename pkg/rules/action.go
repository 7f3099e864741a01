package rules

// ActionType is the kind of side effect an action performs when its rule
// matches.
type ActionType string

const (
	ActionApprove         ActionType = "approve"
	ActionReject          ActionType = "reject"
	ActionHold            ActionType = "hold"
	ActionNotify          ActionType = "notify"
	ActionEscalate        ActionType = "escalate"
	ActionLog             ActionType = "log"
	ActionExecuteContract ActionType = "execute-contract"
	ActionTriggerWorkflow ActionType = "trigger-workflow"
)

// IsValid returns true if the action type is one of the known values.
func (a ActionType) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionHold, ActionNotify,
		ActionEscalate, ActionLog, ActionExecuteContract, ActionTriggerWorkflow:
		return true
	}
	return false
}

// IsLocal reports whether the action is a local state transition with no
// external collaborator (approve/reject/hold). Local actions are always
// synchronous and succeed unless their payload is malformed.
func (a ActionType) IsLocal() bool {
	switch a {
	case ActionApprove, ActionReject, ActionHold, ActionLog:
		return true
	}
	return false
}

// IsBlocking reports whether a successful execution of this action type is a
// blocking decision that short-circuits lower-priority rules.
func (a ActionType) IsBlocking() bool {
	return a == ActionReject || a == ActionHold
}

// ActionParams is the tagged-union interface over per-type parameter structs.
// Each variant reports the action type it parameterizes.
type ActionParams interface {
	ActionType() ActionType
}

// ApproveParams parameterizes an approve action.
type ApproveParams struct {
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// RejectParams parameterizes a reject action. Message is the human-readable
// reason surfaced to the caller on a blocked transaction.
type RejectParams struct {
	Message string `yaml:"message" json:"message"`
}

// HoldParams parameterizes a hold action.
type HoldParams struct {
	Message      string `yaml:"message" json:"message"`
	ReviewQueue  string `yaml:"reviewQueue,omitempty" json:"reviewQueue,omitempty"`
	TimeoutHours int    `yaml:"timeoutHours,omitempty" json:"timeoutHours,omitempty"`
}

// NotifyParams parameterizes a notify action.
type NotifyParams struct {
	NotificationChannels []string `yaml:"notificationChannels" json:"notificationChannels"`
	Recipients           []string `yaml:"recipients" json:"recipients"`
	Message              string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// EscalateParams parameterizes an escalate action: route the decision to
// human approvers through the notification dispatch collaborator.
type EscalateParams struct {
	ApprovalLevels int      `yaml:"approvalLevels,omitempty" json:"approvalLevels,omitempty"`
	Approvers      []string `yaml:"approvers" json:"approvers"`
	TimeoutHours   int      `yaml:"timeoutHours,omitempty" json:"timeoutHours,omitempty"`
	Message        string   `yaml:"message,omitempty" json:"message,omitempty"`
}

// LogParams parameterizes a log action.
type LogParams struct {
	Level   string `yaml:"level,omitempty" json:"level,omitempty"`
	Message string `yaml:"message" json:"message"`
}

// ContractParams parameterizes an execute-contract action.
type ContractParams struct {
	ContractAddress string                 `yaml:"contractAddress" json:"contractAddress"`
	FunctionName    string                 `yaml:"functionName" json:"functionName"`
	Params          map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
	GasLimit        uint64                 `yaml:"gasLimit,omitempty" json:"gasLimit,omitempty"`
}

// WorkflowParams parameterizes a trigger-workflow action.
type WorkflowParams struct {
	WorkflowID string                 `yaml:"workflowId" json:"workflowId"`
	Params     map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
}

func (ApproveParams) ActionType() ActionType  { return ActionApprove }
func (RejectParams) ActionType() ActionType   { return ActionReject }
func (HoldParams) ActionType() ActionType     { return ActionHold }
func (NotifyParams) ActionType() ActionType   { return ActionNotify }
func (EscalateParams) ActionType() ActionType { return ActionEscalate }
func (LogParams) ActionType() ActionType      { return ActionLog }
func (ContractParams) ActionType() ActionType { return ActionExecuteContract }
func (WorkflowParams) ActionType() ActionType { return ActionTriggerWorkflow }

// Action is one entry in a rule's ordered action list. Conditions, when
// present, gate whether this specific action fires even though the rule as a
// whole matched; they are evaluated against the same trigger data.
type Action struct {
	ID         string       `yaml:"id" json:"id"`
	Type       ActionType   `yaml:"type" json:"type"`
	Parameters ActionParams `yaml:"-" json:"-"`
	Conditions []*Condition `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// RejectMessage returns the human-readable block reason for reject/hold
// actions and the empty string for every other type.
func (a *Action) RejectMessage() string {
	switch p := a.Parameters.(type) {
	case *RejectParams:
		return p.Message
	case *HoldParams:
		return p.Message
	}
	return ""
}
