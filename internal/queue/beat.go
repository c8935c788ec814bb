package queue

import (
	"context"
	"time"
)

// runBeat drives the fixed-interval ticks named in §4.6: evaluate,
// heartbeat, and the HTTP prober sweep on three independent tickers.
func (r *Runtime) runBeat(ctx context.Context) {
	evaluateTick := time.NewTicker(time.Duration(r.cfg.EvaluateTickSeconds) * time.Second)
	defer evaluateTick.Stop()
	heartbeatTick := time.NewTicker(time.Duration(r.cfg.HeartbeatTickSeconds) * time.Second)
	defer heartbeatTick.Stop()
	httpTick := time.NewTicker(time.Duration(r.cfg.HTTPTickSeconds) * time.Second)
	defer httpTick.Stop()

	r.logger.Info("beat started",
		"evaluate_tick_seconds", r.cfg.EvaluateTickSeconds,
		"heartbeat_tick_seconds", r.cfg.HeartbeatTickSeconds,
		"http_tick_seconds", r.cfg.HTTPTickSeconds,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("beat stopped")
			return
		case <-evaluateTick.C:
			if err := r.evaluateSweepTick(ctx); err != nil {
				r.logger.Error("evaluate sweep tick", "error", err)
			}
		case <-heartbeatTick.C:
			if err := r.heartbeatTick(ctx); err != nil {
				r.logger.Error("heartbeat tick", "error", err)
			}
		case <-httpTick.C:
			if err := r.prober.Tick(ctx); err != nil {
				r.logger.Error("http prober tick", "error", err)
			}
		}
	}
}

// evaluateSweepTick re-enqueues every MetricInstance currently sitting in
// a grace-period "pending" state, so a gate whose grace period elapses with
// no new sample still transitions to CRITICAL instead of waiting forever
// for the next ingest (§4.3's grace-period rule is phrased in elapsed time,
// not "next observation").
func (r *Runtime) evaluateSweepTick(ctx context.Context) error {
	pending, err := r.metrics.ListPending(ctx)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if err := r.EmitEvaluate(ctx, p.ClientID, p.InstanceID); err != nil {
			r.logger.Error("enqueuing pending evaluate sweep task", "error", err, "metric_instance_id", p.InstanceID)
		}
	}
	return nil
}
