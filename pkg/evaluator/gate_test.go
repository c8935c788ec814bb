package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

func TestApplyOpensImmediatelyWithNoGrace(t *testing.T) {
	now := time.Now()
	result := Apply(metric.StateNormal, Gating{}, true, false, false, Config{}, now)
	assert.Equal(t, metric.StateCritical, result.State)
	assert.Equal(t, TransitionOpen, result.Transition)
}

func TestApplySameStateReevaluationDoesNotReemit(t *testing.T) {
	now := time.Now()
	result := Apply(metric.StateCritical, Gating{}, true, false, false, Config{}, now)
	assert.Equal(t, metric.StateCritical, result.State)
	assert.Equal(t, TransitionNone, result.Transition)
}

func TestApplyResolvesOnReturnToNormal(t *testing.T) {
	now := time.Now()
	result := Apply(metric.StateCritical, Gating{}, false, false, false, Config{}, now)
	assert.Equal(t, metric.StateNormal, result.State)
	assert.Equal(t, TransitionResolve, result.Transition)
}

func TestApplySuppressedForcesUnknownAndResolves(t *testing.T) {
	now := time.Now()
	result := Apply(metric.StateCritical, Gating{}, true, false, true, Config{}, now)
	assert.Equal(t, metric.StateUnknown, result.State)
	assert.Equal(t, TransitionResolve, result.Transition)

	result = Apply(metric.StateNormal, Gating{}, true, false, true, Config{}, now)
	assert.Equal(t, metric.StateUnknown, result.State)
	assert.Equal(t, TransitionNone, result.Transition)
}

func TestApplyUnknownEmitsNoIntent(t *testing.T) {
	now := time.Now()
	result := Apply(metric.StateCritical, Gating{}, false, true, false, Config{}, now)
	assert.Equal(t, metric.StateUnknown, result.State)
	assert.Equal(t, TransitionNone, result.Transition)
}

func TestApplyGracePeriodDelaysOpen(t *testing.T) {
	start := time.Now()
	cfg := Config{GracePeriodSeconds: 60}

	// First CRITICAL observation: records pending, does not open yet.
	result := Apply(metric.StateNormal, Gating{}, true, false, false, cfg, start)
	require.Equal(t, TransitionNone, result.Transition)
	require.Equal(t, metric.StateNormal, result.State)
	require.NotNil(t, result.Gating.PendingSince)

	// Still within the grace window: stays pending.
	result2 := Apply(metric.StateNormal, result.Gating, true, false, false, cfg, start.Add(30*time.Second))
	assert.Equal(t, TransitionNone, result2.Transition)

	// Past the grace window: opens.
	result3 := Apply(metric.StateNormal, result2.Gating, true, false, false, cfg, start.Add(61*time.Second))
	assert.Equal(t, TransitionOpen, result3.Transition)
	assert.Equal(t, metric.StateCritical, result3.State)
}

func TestApplyGraceClearedByIntermediateNormal(t *testing.T) {
	start := time.Now()
	cfg := Config{GracePeriodSeconds: 60}

	result := Apply(metric.StateNormal, Gating{}, true, false, false, cfg, start)
	require.NotNil(t, result.Gating.PendingSince)

	// An intervening NORMAL clears the pending gate.
	result2 := Apply(metric.StateNormal, result.Gating, false, false, false, cfg, start.Add(10*time.Second))
	assert.Equal(t, Gating{}, result2.Gating)

	// A fresh CRITICAL after that starts the grace window over.
	result3 := Apply(metric.StateNormal, result2.Gating, true, false, false, cfg, start.Add(65*time.Second))
	assert.Equal(t, TransitionNone, result3.Transition)
}

func TestApplyConsecutiveFailuresThreshold(t *testing.T) {
	start := time.Now()
	cfg := Config{ConsecutiveFailuresThreshold: 3}

	gating := Gating{}
	var result Result
	for i := 0; i < 2; i++ {
		result = Apply(metric.StateNormal, gating, true, false, false, cfg, start)
		gating = result.Gating
		assert.Equal(t, TransitionNone, result.Transition)
	}

	result = Apply(metric.StateNormal, gating, true, false, false, cfg, start)
	assert.Equal(t, TransitionOpen, result.Transition)
	assert.Equal(t, metric.StateCritical, result.State)
}

func TestApplyStricterGateWins(t *testing.T) {
	start := time.Now()
	cfg := Config{GracePeriodSeconds: 120, ConsecutiveFailuresThreshold: 2}

	// First failure: neither grace nor count satisfied.
	r1 := Apply(metric.StateNormal, Gating{}, true, false, false, cfg, start)
	assert.Equal(t, TransitionNone, r1.Transition)

	// Second failure satisfies the count gate but not the grace gate yet.
	r2 := Apply(metric.StateNormal, r1.Gating, true, false, false, cfg, start.Add(10*time.Second))
	assert.Equal(t, TransitionNone, r2.Transition)

	// Past the grace window with the count gate already satisfied: opens.
	r3 := Apply(metric.StateNormal, r2.Gating, true, false, false, cfg, start.Add(121*time.Second))
	assert.Equal(t, TransitionOpen, r3.Transition)
}
