package rules

import (
	"encoding/json"
	"fmt"
)

// actionWire is the serialized shape of an Action. Parameters travel as a
// generic object and are decoded into the typed variant matching Type.
type actionWire struct {
	ID         string          `json:"id"`
	Type       ActionType      `json:"type"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Conditions []*Condition    `json:"conditions,omitempty"`
}

// MarshalJSON serializes the action with its typed parameters inlined.
func (a *Action) MarshalJSON() ([]byte, error) {
	wire := actionWire{
		ID:         a.ID,
		Type:       a.Type,
		Conditions: a.Conditions,
	}
	if a.Parameters != nil {
		params, err := json.Marshal(a.Parameters)
		if err != nil {
			return nil, fmt.Errorf("marshal parameters for action %s: %w", a.ID, err)
		}
		wire.Parameters = params
	}
	return json.Marshal(wire)
}

// UnmarshalJSON deserializes the action, decoding parameters into the
// variant matching the action type.
func (a *Action) UnmarshalJSON(data []byte) error {
	var wire actionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	a.ID = wire.ID
	a.Type = wire.Type
	a.Conditions = wire.Conditions
	a.Parameters = nil

	if len(wire.Parameters) == 0 {
		return nil
	}

	params, err := DecodeActionParams(wire.Type, wire.Parameters)
	if err != nil {
		return fmt.Errorf("action %s: %w", wire.ID, err)
	}
	a.Parameters = params
	return nil
}

// DecodeActionParams decodes a raw parameters payload into the typed
// variant for the given action type.
func DecodeActionParams(t ActionType, raw json.RawMessage) (ActionParams, error) {
	var params ActionParams
	switch t {
	case ActionApprove:
		params = &ApproveParams{}
	case ActionReject:
		params = &RejectParams{}
	case ActionHold:
		params = &HoldParams{}
	case ActionNotify:
		params = &NotifyParams{}
	case ActionEscalate:
		params = &EscalateParams{}
	case ActionLog:
		params = &LogParams{}
	case ActionExecuteContract:
		params = &ContractParams{}
	case ActionTriggerWorkflow:
		params = &WorkflowParams{}
	default:
		return nil, fmt.Errorf("unknown action type %q", t)
	}

	if err := json.Unmarshal(raw, params); err != nil {
		return nil, fmt.Errorf("decode %s parameters: %w", t, err)
	}
	return params, nil
}

// DecodeActionParamsMap decodes parameters given as a generic map, as
// produced by YAML rule documents.
func DecodeActionParamsMap(t ActionType, raw map[string]interface{}) (ActionParams, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode %s parameters: %w", t, err)
	}
	return DecodeActionParams(t, encoded)
}
