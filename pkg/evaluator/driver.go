package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegrid/pulsegrid/pkg/incident"
	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// Driver loads threshold/instance state, applies gating, persists the
// result, and hands open/resolve intents to the Incident Manager. The state
// write and the incident open/resolve are separate statements on the pool,
// not one transaction, so a failure between them can leave the two out of
// step.
type Driver struct {
	pool      *pgxpool.Pool
	metrics   *metric.Store
	incidents *incident.Manager
	logger    *slog.Logger
}

func NewDriver(pool *pgxpool.Pool, metrics *metric.Store, incidents *incident.Manager, logger *slog.Logger) *Driver {
	return &Driver{pool: pool, metrics: metrics, incidents: incidents, logger: logger}
}

// EvaluateMetricInstance evaluates a MetricInstance's newest Sample against
// its Threshold, per §4.3's metric-evaluation rules.
func (d *Driver) EvaluateMetricInstance(ctx context.Context, clientID, instanceID uuid.UUID, cfg Config, notifyOnResolve bool) error {
	instance, err := d.metrics.GetInstance(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("loading metric instance: %w", err)
	}

	if instance.LastValue == nil {
		return nil
	}

	suppressed := instance.Paused || !instance.AlertEnabled

	var critical, unknown bool
	threshold, err := d.metrics.GetThreshold(ctx, instanceID)
	switch {
	case err == nil:
		critical, unknown = Evaluate(threshold, *instance.LastValue)
	case errors.Is(err, pgx.ErrNoRows):
		unknown = true
	default:
		return fmt.Errorf("loading threshold: %w", err)
	}

	gating := Gating{PendingSince: instance.PendingSince, ConsecutiveFailures: instance.ConsecutiveFailures}
	result := Apply(instance.State, gating, critical, unknown, suppressed, cfg, time.Now())

	if result.State == instance.State && result.Gating.ConsecutiveFailures == instance.ConsecutiveFailures && result.Transition == TransitionNone {
		return nil
	}

	var pending *pgtype.Timestamptz
	if result.Gating.PendingSince != nil {
		pending = &pgtype.Timestamptz{Time: *result.Gating.PendingSince, Valid: true}
	}
	if err := metric.UpdateState(ctx, d.pool, instanceID, result.State, pending, result.Gating.ConsecutiveFailures); err != nil {
		return fmt.Errorf("persisting metric instance state: %w", err)
	}

	subject := incident.Subject{ClientID: clientID, MetricInstanceID: &instanceID}
	return d.applyTransition(ctx, subject, result.Transition, notifyOnResolve)
}

// EvaluateProbeOutcome evaluates an HTTP probe outcome per §4.3: ok=true ⇒
// NORMAL, ok=false ⇒ CRITICAL, subject keyed by (client_id, http_target_id).
func (d *Driver) EvaluateProbeOutcome(ctx context.Context, clientID, targetID uuid.UUID, ok bool, prevState metric.State, gating Gating, cfg Config, notifyOnResolve bool) (Result, error) {
	result := Apply(prevState, gating, !ok, false, false, cfg, time.Now())

	subject := incident.Subject{ClientID: clientID, HTTPTargetID: &targetID}
	if err := d.applyTransition(ctx, subject, result.Transition, notifyOnResolve); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (d *Driver) applyTransition(ctx context.Context, subject incident.Subject, transition Transition, notifyOnResolve bool) error {
	switch transition {
	case TransitionOpen:
		if _, err := d.incidents.Open(ctx, subject); err != nil {
			return fmt.Errorf("opening incident: %w", err)
		}
	case TransitionResolve:
		if _, err := d.incidents.Resolve(ctx, subject, notifyOnResolve); err != nil {
			return fmt.Errorf("resolving incident: %w", err)
		}
	}
	return nil
}
