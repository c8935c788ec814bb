package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

const heartbeatMetricName = "heartbeat"

// heartbeatDefinition resolves (creating on first use) the synthetic
// per-client "heartbeat" MetricDefinition the sweep evaluates through,
// reusing pkg/evaluator/pkg/incident untouched per §9's design note instead
// of giving machine liveness its own incident subject kind.
func (r *Runtime) heartbeatDefinition(ctx context.Context, clientID uuid.UUID) (metric.DefinitionRow, error) {
	return metric.ResolveDefinition(ctx, r.pool, clientID, heartbeatMetricName, metric.TypeBool, nil)
}

// heartbeatTick evaluates every active machine's liveness: stale machines
// are driven CRITICAL (opening/refreshing an incident), fresh ones NORMAL
// (resolving one if it was open), per §4.6.
func (r *Runtime) heartbeatTick(ctx context.Context) error {
	statuses, err := r.machines.HeartbeatStatuses(ctx, r.cfg.HeartbeatThresholdMinutesDefault)
	if err != nil {
		return fmt.Errorf("listing machine heartbeat statuses: %w", err)
	}

	for _, hs := range statuses {
		task := HeartbeatTask{ClientID: hs.ClientID, MachineID: hs.MachineID, Stale: hs.Stale}
		if err := r.heartbeatQ.push(ctx, task); err != nil {
			r.logger.Error("enqueuing heartbeat task", "error", err, "machine_id", hs.MachineID)
		}
	}
	return nil
}

func (r *Runtime) handleHeartbeat(ctx context.Context, task HeartbeatTask) error {
	definition, err := r.heartbeatDefinition(ctx, task.ClientID)
	if err != nil {
		return fmt.Errorf("resolving heartbeat definition: %w", err)
	}

	instance, err := metric.ResolveInstance(ctx, r.pool, task.MachineID, definition.ID)
	if err != nil {
		return fmt.Errorf("resolving heartbeat instance: %w", err)
	}

	if _, err := r.metrics.GetThreshold(ctx, instance.ID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("loading heartbeat threshold: %w", err)
		}
		if _, err := r.metrics.UpsertThreshold(ctx, instance.ID, metric.CompareEQ, metric.BoolValue(false), metric.SeverityCritical); err != nil {
			return fmt.Errorf("installing heartbeat threshold: %w", err)
		}
	}

	alive := !task.Stale
	if err := metric.UpdateLastValue(ctx, r.pool, instance.ID, metric.BoolValue(alive), nowTimestamptz()); err != nil {
		return fmt.Errorf("recording heartbeat value: %w", err)
	}

	settings, err := r.settings.GetOrDefault(ctx, task.ClientID)
	if err != nil {
		return fmt.Errorf("loading client settings for heartbeat evaluation: %w", err)
	}

	cfg := r.evaluatorConfig(settings)
	return r.driver.EvaluateMetricInstance(ctx, task.ClientID, instance.ID, cfg, settings.NotifyOnResolve)
}
