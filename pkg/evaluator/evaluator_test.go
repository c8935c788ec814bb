package evaluator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

func TestEvaluateNumericComparisons(t *testing.T) {
	tests := []struct {
		name         string
		cmp          metric.Comparison
		want         float64
		observed     float64
		wantCritical bool
	}{
		{"gt over threshold", metric.CompareGT, 0.8, 0.9, true},
		{"gt under threshold", metric.CompareGT, 0.8, 0.5, false},
		{"lt under threshold", metric.CompareLT, 10, 5, true},
		{"ge equal", metric.CompareGE, 10, 10, true},
		{"le equal", metric.CompareLE, 10, 10, true},
		{"eq match", metric.CompareEQ, 1, 1, true},
		{"ne mismatch", metric.CompareNE, 1, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold := metric.ThresholdRow{Comparison: tt.cmp, Value: metric.NumberValue(tt.want)}
			critical, unknown := Evaluate(threshold, metric.NumberValue(tt.observed))
			require.False(t, unknown)
			assert.Equal(t, tt.wantCritical, critical)
		})
	}
}

func TestEvaluateNaNIsUnknownNotCritical(t *testing.T) {
	threshold := metric.ThresholdRow{Comparison: metric.CompareGT, Value: metric.NumberValue(0.8)}
	critical, unknown := Evaluate(threshold, metric.NumberValue(math.NaN()))
	assert.True(t, unknown)
	assert.False(t, critical)
}

func TestEvaluateBoolean(t *testing.T) {
	threshold := metric.ThresholdRow{Comparison: metric.CompareEQ, Value: metric.BoolValue(false)}
	critical, unknown := Evaluate(threshold, metric.BoolValue(false))
	require.False(t, unknown)
	assert.True(t, critical)

	critical, unknown = Evaluate(threshold, metric.BoolValue(true))
	require.False(t, unknown)
	assert.False(t, critical)
}

func TestEvaluateStringContains(t *testing.T) {
	threshold := metric.ThresholdRow{Comparison: metric.CompareContains, Value: metric.StringValue("error")}

	critical, unknown := Evaluate(threshold, metric.StringValue("connection error: timeout"))
	require.False(t, unknown)
	assert.True(t, critical)

	critical, unknown = Evaluate(threshold, metric.StringValue("all good"))
	require.False(t, unknown)
	assert.False(t, critical)
}

func TestEvaluateStringContainsEmptyAlwaysMatches(t *testing.T) {
	threshold := metric.ThresholdRow{Comparison: metric.CompareContains, Value: metric.StringValue("")}
	critical, unknown := Evaluate(threshold, metric.StringValue("anything"))
	require.False(t, unknown)
	assert.True(t, critical)
}
