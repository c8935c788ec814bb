package metric

import (
	"encoding/json"
	"fmt"
)

// ValueType is the closed set of types a MetricDefinition can declare.
type ValueType string

const (
	TypeNumber ValueType = "number"
	TypeBool   ValueType = "bool"
	TypeString ValueType = "string"
)

// Value is a typed metric value: exactly one of Number/Bool/String is set,
// matching the column layout of samples, metric_instances, and thresholds.
type Value struct {
	Type   ValueType
	Number float64
	Bool   bool
	String string
}

// NumberValue constructs a numeric Value.
func NumberValue(n float64) Value { return Value{Type: TypeNumber, Number: n} }

// BoolValue constructs a boolean Value.
func BoolValue(b bool) Value { return Value{Type: TypeBool, Bool: b} }

// StringValue constructs a string Value.
func StringValue(s string) Value { return Value{Type: TypeString, String: s} }

// ParseValue parses a raw JSON scalar against an expected ValueType,
// interpreting the wire payload `{name, type, value, unit?}` from §4.1.
func ParseValue(valueType ValueType, raw json.RawMessage) (Value, error) {
	switch valueType {
	case TypeNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("parsing number value: %w", err)
		}
		return NumberValue(n), nil
	case TypeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("parsing bool value: %w", err)
		}
		return BoolValue(b), nil
	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("parsing string value: %w", err)
		}
		return StringValue(s), nil
	default:
		return Value{}, fmt.Errorf("unknown value type %q", valueType)
	}
}

// MarshalJSON emits the bare scalar, matching the wire representation.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeNumber:
		return json.Marshal(v.Number)
	case TypeBool:
		return json.Marshal(v.Bool)
	case TypeString:
		return json.Marshal(v.String)
	default:
		return json.Marshal(nil)
	}
}
