package ir

import (
	"encoding/json"
	"fmt"
)

// VariableSpec declares a named quantity in a rule table.
type VariableSpec struct {
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"` // Informational only
	Kind Kind   `json:"kind"`
}

// ConditionSpec is the serialized form of a single condition.
// Operator is kept as text here; the engine parses it into its enum.
type ConditionSpec struct {
	Variable        string `json:"variable"`
	Operator        string `json:"operator"`
	Value           Value  `json:"value"`
	Value1          Value  `json:"value1,omitempty"`           // Upper bound, IN only
	PredictionRange *int64 `json:"prediction_range,omitempty"` // TLT/TGT only
}

// RuleSpec is a named condition set.
type RuleSpec struct {
	Name       string          `json:"name"`
	Conditions []ConditionSpec `json:"conditions"`
}

// RuleTable is an ordered list of rules plus the variables they reference.
// Rule order is priority order (first match wins).
type RuleTable struct {
	Name      string         `json:"name"`
	Variables []VariableSpec `json:"variables"`
	Rules     []RuleSpec     `json:"rules"`
}

// Variable returns the declared variable with the given name.
func (t *RuleTable) Variable(name string) (VariableSpec, bool) {
	for _, v := range t.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return VariableSpec{}, false
}

type conditionSpecJSON struct {
	Variable        string          `json:"variable"`
	Operator        string          `json:"operator"`
	Value           json.RawMessage `json:"value"`
	Value1          json.RawMessage `json:"value1,omitempty"`
	PredictionRange *int64          `json:"prediction_range,omitempty"`
}

// MarshalJSON encodes thresholds with MarshalValue so Float thresholds
// keep their kind across a round trip.
func (c ConditionSpec) MarshalJSON() ([]byte, error) {
	out := conditionSpecJSON{
		Variable:        c.Variable,
		Operator:        c.Operator,
		PredictionRange: c.PredictionRange,
	}

	var err error
	if out.Value, err = MarshalValue(c.Value); err != nil {
		return nil, fmt.Errorf("condition %s value: %w", c.Variable, err)
	}
	if c.Value1 != nil {
		if out.Value1, err = MarshalValue(c.Value1); err != nil {
			return nil, fmt.Errorf("condition %s value1: %w", c.Variable, err)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler for ConditionSpec.
func (c *ConditionSpec) UnmarshalJSON(data []byte) error {
	var in conditionSpecJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	value, err := UnmarshalValue(in.Value)
	if err != nil {
		return fmt.Errorf("condition %s value: %w", in.Variable, err)
	}

	var value1 Value
	if len(in.Value1) > 0 {
		if value1, err = UnmarshalValue(in.Value1); err != nil {
			return fmt.Errorf("condition %s value1: %w", in.Variable, err)
		}
	}

	*c = ConditionSpec{
		Variable:        in.Variable,
		Operator:        in.Operator,
		Value:           value,
		Value1:          value1,
		PredictionRange: in.PredictionRange,
	}
	return nil
}
