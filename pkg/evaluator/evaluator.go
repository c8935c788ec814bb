// Package evaluator implements the Threshold Evaluator: pure comparison
// logic plus the grace-period/consecutive-failure gating described in §4.3.
package evaluator

import (
	"math"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// Evaluate applies a Threshold's comparison to an observed Value and
// returns whether the outcome is critical, per §4.3:
//   - numeric comparisons parse as float64; NaN is never critical and is
//     reported as unknown
//   - boolean comparisons are direct equality
//   - string comparisons are byte-equal or substring containment
func Evaluate(threshold metric.ThresholdRow, observed metric.Value) (critical bool, unknown bool) {
	switch observed.Type {
	case metric.TypeNumber:
		if math.IsNaN(observed.Number) {
			return false, true
		}
		return evaluateNumber(threshold.Comparison, observed.Number, threshold.Value.Number), false
	case metric.TypeBool:
		return evaluateBool(threshold.Comparison, observed.Bool, threshold.Value.Bool), false
	case metric.TypeString:
		return evaluateString(threshold.Comparison, observed.String, threshold.Value.String), false
	default:
		return false, true
	}
}

func evaluateNumber(cmp metric.Comparison, observed, want float64) bool {
	switch cmp {
	case metric.CompareGT:
		return observed > want
	case metric.CompareLT:
		return observed < want
	case metric.CompareGE:
		return observed >= want
	case metric.CompareLE:
		return observed <= want
	case metric.CompareEQ:
		return observed == want
	case metric.CompareNE:
		return observed != want
	default:
		return false
	}
}

func evaluateBool(cmp metric.Comparison, observed, want bool) bool {
	switch cmp {
	case metric.CompareEQ:
		return observed == want
	case metric.CompareNE:
		return observed != want
	default:
		return false
	}
}

func evaluateString(cmp metric.Comparison, observed, want string) bool {
	switch cmp {
	case metric.CompareEQ:
		return observed == want
	case metric.CompareNE:
		return observed != want
	case metric.CompareContains:
		return containsSubstring(observed, want)
	default:
		return false
	}
}

func containsSubstring(s, substr string) bool {
	if len(substr) == 0 {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
