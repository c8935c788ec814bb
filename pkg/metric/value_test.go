package metric

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValueNumber(t *testing.T) {
	v, err := ParseValue(TypeNumber, json.RawMessage(`0.42`))
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, v.Type)
	assert.Equal(t, 0.42, v.Number)
}

func TestParseValueBool(t *testing.T) {
	v, err := ParseValue(TypeBool, json.RawMessage(`true`))
	require.NoError(t, err)
	assert.True(t, v.Bool)
}

func TestParseValueString(t *testing.T) {
	v, err := ParseValue(TypeString, json.RawMessage(`"degraded"`))
	require.NoError(t, err)
	assert.Equal(t, "degraded", v.String)
}

func TestParseValueTypeMismatchErrors(t *testing.T) {
	_, err := ParseValue(TypeNumber, json.RawMessage(`"not a number"`))
	assert.Error(t, err)
}

func TestParseValueUnknownType(t *testing.T) {
	_, err := ParseValue(ValueType("array"), json.RawMessage(`[]`))
	assert.Error(t, err)
}

func TestValueMarshalRoundTrip(t *testing.T) {
	b, err := json.Marshal(NumberValue(1.5))
	require.NoError(t, err)
	assert.JSONEq(t, "1.5", string(b))

	b, err = json.Marshal(BoolValue(false))
	require.NoError(t, err)
	assert.JSONEq(t, "false", string(b))

	b, err = json.Marshal(StringValue("ok"))
	require.NoError(t, err)
	assert.JSONEq(t, `"ok"`, string(b))
}
