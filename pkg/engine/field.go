package engine

import "strings"

// lookupField resolves a dotted field path against the trigger data, e.g.
// "transaction.amount" walks data["transaction"]["amount"]. Returns the
// resolved value and whether the full path was present. A missing field is
// not an error; the evaluator applies the fail-closed policy instead.
func lookupField(data map[string]interface{}, fieldPath string) (interface{}, bool) {
	if data == nil || fieldPath == "" {
		return nil, false
	}

	parts := strings.Split(fieldPath, ".")
	var current interface{} = data

	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}
