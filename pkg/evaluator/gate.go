package evaluator

import (
	"time"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// Transition reports what the Incident Manager should do as a result of a
// single evaluation, per §4.3's open/resolve emission rules.
type Transition string

const (
	TransitionNone    Transition = "none"
	TransitionOpen    Transition = "open"
	TransitionResolve Transition = "resolve"
)

// Gating holds the per-subject gate state persisted alongside the
// MetricInstance/HttpTarget row (pending_since, consecutive_failures),
// completing the lifecycle §4.3 describes but §3 doesn't enumerate.
type Gating struct {
	PendingSince        *time.Time
	ConsecutiveFailures int
}

// Config bounds grace-period and consecutive-failure gating. Either or both
// may be zero, meaning "no gate of that kind".
type Config struct {
	GracePeriodSeconds          int
	ConsecutiveFailuresThreshold int
}

// Result is the outcome of applying a single observation to a gate.
type Result struct {
	State      metric.State
	Gating     Gating
	Transition Transition
}

// Apply advances a subject's gate state given a new observation, per §4.3:
//   - suppressed forces state=UNKNOWN regardless of the observation (paused
//     metric or ¬alert_enabled); if currently OPEN this resolves it
//   - unknown forces state=UNKNOWN with no incident intent (absent
//     threshold, or NaN on a numeric comparison)
//   - otherwise critical/normal drive the CRITICAL/NORMAL state machine,
//     gated by grace period and consecutive-failure count: "the stricter
//     outcome wins" when both are configured
func Apply(prev metric.State, gating Gating, critical, unknown, suppressed bool, cfg Config, now time.Time) Result {
	if suppressed {
		transition := TransitionNone
		if prev == metric.StateCritical {
			transition = TransitionResolve
		}
		return Result{State: metric.StateUnknown, Gating: Gating{}, Transition: transition}
	}

	if unknown {
		return Result{State: metric.StateUnknown, Gating: Gating{}, Transition: TransitionNone}
	}

	if !critical {
		transition := TransitionNone
		if prev == metric.StateCritical {
			transition = TransitionResolve
		}
		return Result{State: metric.StateNormal, Gating: Gating{}, Transition: transition}
	}

	// critical = true: apply grace-period and consecutive-failure gates.
	next := Gating{ConsecutiveFailures: gating.ConsecutiveFailures + 1}

	graceOK := cfg.GracePeriodSeconds <= 0
	if cfg.GracePeriodSeconds > 0 {
		pendingSince := gating.PendingSince
		if pendingSince == nil {
			pendingSince = &now
		}
		next.PendingSince = pendingSince
		graceOK = now.Sub(*pendingSince) >= time.Duration(cfg.GracePeriodSeconds)*time.Second
	}

	countOK := cfg.ConsecutiveFailuresThreshold <= 0 || next.ConsecutiveFailures >= cfg.ConsecutiveFailuresThreshold

	if prev == metric.StateCritical {
		// Already open: stay CRITICAL, no re-emission (idempotence, §4.3).
		return Result{State: metric.StateCritical, Gating: next, Transition: TransitionNone}
	}

	if graceOK && countOK {
		return Result{State: metric.StateCritical, Gating: Gating{}, Transition: TransitionOpen}
	}

	// Still pending: neither state nor transition commit to CRITICAL yet.
	return Result{State: prev, Gating: next, Transition: TransitionNone}
}
