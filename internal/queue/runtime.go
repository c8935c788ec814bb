package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pulsegrid/pulsegrid/internal/config"
	"github.com/pulsegrid/pulsegrid/internal/telemetry"
	"github.com/pulsegrid/pulsegrid/pkg/clientsettings"
	"github.com/pulsegrid/pulsegrid/pkg/evaluator"
	"github.com/pulsegrid/pulsegrid/pkg/incident"
	"github.com/pulsegrid/pulsegrid/pkg/machine"
	"github.com/pulsegrid/pulsegrid/pkg/metric"
	"github.com/pulsegrid/pulsegrid/pkg/probe"
)

// NotifyDispatcher is satisfied by *notifier.Service; kept as an interface
// here so the queue package doesn't need pkg/notifier's full construction
// surface, only what a notify worker calls.
type NotifyDispatcher interface {
	Dispatch(ctx context.Context, intent incident.NotifyIntent) error
}

// Runtime is the scheduler/worker runtime of §4.6: it owns the named
// queues, drives fixed-interval ticks, and runs each queue's worker pool.
// It implements ingest.Emitter and incident.Emitter so the HTTP-facing
// packages can hand off work without depending on this package directly.
type Runtime struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	cfg      *config.Config
	logger   *slog.Logger
	driver   *evaluator.Driver
	metrics  *metric.Store
	machines *machine.Store
	settings *clientsettings.Store
	prober   *probe.Prober
	notify   NotifyDispatcher

	evaluateQ  *Queue
	notifyQ    *Queue
	heartbeatQ *Queue
	outboxQ    *Queue
}

// New wires a Runtime from its dependencies. app.go constructs every
// component first (store, driver, prober, notifier) and passes them in
// here, since the Runtime is the last thing assembled — it is what makes
// them run.
func New(pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, logger *slog.Logger, driver *evaluator.Driver, metrics *metric.Store, machines *machine.Store, settings *clientsettings.Store, prober *probe.Prober, notify NotifyDispatcher) *Runtime {
	return &Runtime{
		pool: pool, rdb: rdb, cfg: cfg, logger: logger,
		driver: driver, metrics: metrics, machines: machines, settings: settings,
		prober: prober, notify: notify,
		evaluateQ:  newQueue(rdb, "evaluate"),
		notifyQ:    newQueue(rdb, "notify"),
		heartbeatQ: newQueue(rdb, "heartbeat"),
		outboxQ:    newQueue(rdb, "outbox"),
	}
}

// EmitEvaluate implements ingest.Emitter: it enqueues one evaluate task per
// MetricInstance a batch touched.
func (r *Runtime) EmitEvaluate(ctx context.Context, clientID, metricInstanceID uuid.UUID) error {
	return r.evaluateQ.push(ctx, EvaluateTask{ClientID: clientID, MetricInstanceID: metricInstanceID})
}

// EmitNotify implements incident.Emitter: it enqueues one notify task per
// open/reminder/resolve decision the Incident Manager makes, and records a
// durable outbox row for any other integration that wants every domain
// event regardless of the notify queue's own cooldown/single-flight rules.
func (r *Runtime) EmitNotify(ctx context.Context, intent incident.NotifyIntent) error {
	task := NotifyTask{
		Kind: string(intent.Kind), IncidentID: intent.IncidentID, ClientID: intent.Subject.ClientID,
		HTTPTargetID: intent.Subject.HTTPTargetID, MetricInstanceID: intent.Subject.MetricInstanceID,
	}
	if err := r.notifyQ.push(ctx, task); err != nil {
		return err
	}
	return r.recordOutboxEvent(ctx, "incident."+string(intent.Kind), task)
}

// recordOutboxEvent durably records a domain event and enqueues it for the
// outbox worker pool to drain, per §4.6's outbox queue.
func (r *Runtime) recordOutboxEvent(ctx context.Context, kind string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding outbox payload: %w", err)
	}

	var id uuid.UUID
	query := `INSERT INTO outbox_events (kind, payload) VALUES ($1, $2) RETURNING id`
	if err := r.pool.QueryRow(ctx, query, kind, encoded).Scan(&id); err != nil {
		return fmt.Errorf("recording outbox event: %w", err)
	}

	return r.outboxQ.push(ctx, OutboxEvent{ID: id, Kind: kind, Payload: encoded})
}

// evaluatorConfig derives per-client gating config from ClientSettings,
// falling back to the deployment default grace period.
func (r *Runtime) evaluatorConfig(settings clientsettings.Settings) evaluator.Config {
	grace := settings.GracePeriodSeconds
	if grace == 0 {
		grace = r.cfg.GracePeriodSecondsDefault
	}
	return evaluator.Config{
		GracePeriodSeconds:           grace,
		ConsecutiveFailuresThreshold: settings.ConsecutiveFailuresThreshold,
	}
}

// nowTimestamptz stamps the current time as a valid pgtype.Timestamptz.
func nowTimestamptz() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now(), Valid: true}
}

// Run starts every queue's worker pool and the beat ticker, blocking until
// ctx is cancelled. It reclaims any tasks stranded in a processing list
// from a prior, uncleanly-stopped run before starting workers, per §4.6's
// at-least-once requirement.
func (r *Runtime) Run(ctx context.Context) error {
	for _, q := range []*Queue{r.evaluateQ, r.notifyQ, r.heartbeatQ, r.outboxQ} {
		if err := q.reclaim(ctx); err != nil {
			r.logger.Error("reclaiming queue on boot", "queue", q.name, "error", err)
		}
	}

	var wg sync.WaitGroup
	spawnWorkers(ctx, &wg, r.logger, r.evaluateQ, r.cfg.EvaluateWorkers, r.handleEvaluateTask)
	spawnWorkers(ctx, &wg, r.logger, r.notifyQ, r.cfg.NotifyWorkers, r.handleNotifyTask)
	spawnWorkers(ctx, &wg, r.logger, r.heartbeatQ, r.cfg.HeartbeatWorkers, r.handleHeartbeat)
	spawnWorkers(ctx, &wg, r.logger, r.outboxQ, r.cfg.OutboxWorkers, r.handleOutboxTask)

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.runBeat(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.reportQueueDepth(ctx)
	}()

	<-ctx.Done()
	r.logger.Info("worker runtime shutting down, draining in-flight tasks")
	wg.Wait()
	return nil
}

// spawnWorkers starts n goroutines pulling from q, decoding each payload as
// T and calling handle. A handler error is logged but the task is still
// acked — §4.6 treats delivery, not application-level success, as the
// queue's job; retry policy for a task's own domain logic lives in that
// domain (e.g. pkg/notifier's circuit breaker).
func spawnWorkers[T any](ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, q *Queue, n int, handle func(context.Context, T) error) {
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if ctx.Err() != nil {
					return
				}
				payload, err := q.pop(ctx, 5*time.Second)
				if err != nil {
					if errors.Is(err, redis.Nil) || ctx.Err() != nil {
						continue
					}
					logger.Error("popping queue task", "queue", q.name, "error", err)
					continue
				}

				var task T
				if err := json.Unmarshal([]byte(payload), &task); err != nil {
					logger.Error("decoding queue task", "queue", q.name, "error", err)
					_ = q.ack(ctx, payload)
					continue
				}

				if err := handle(ctx, task); err != nil {
					logger.Error("handling queue task", "queue", q.name, "error", err)
				}
				if err := q.ack(ctx, payload); err != nil {
					logger.Error("acking queue task", "queue", q.name, "error", err)
				}
			}
		}()
	}
}

func (r *Runtime) handleEvaluateTask(ctx context.Context, task EvaluateTask) error {
	settings, err := r.settings.GetOrDefault(ctx, task.ClientID)
	if err != nil {
		return fmt.Errorf("loading client settings: %w", err)
	}
	return r.driver.EvaluateMetricInstance(ctx, task.ClientID, task.MetricInstanceID, r.evaluatorConfig(settings), settings.NotifyOnResolve)
}

func (r *Runtime) handleNotifyTask(ctx context.Context, task NotifyTask) error {
	intent := incident.NotifyIntent{
		Kind:       incident.IntentKind(task.Kind),
		IncidentID: task.IncidentID,
		Subject: incident.Subject{
			ClientID: task.ClientID, HTTPTargetID: task.HTTPTargetID, MetricInstanceID: task.MetricInstanceID,
		},
	}
	return r.notify.Dispatch(ctx, intent)
}

// handleOutboxTask processes one row of outbox_events — a generic durable
// event fan-out point for future integrations (e.g. a webhook relay) that
// want every domain event without coupling to the notify queue's cooldown
// semantics. No consumer is wired yet; it logs and marks rows delivered.
func (r *Runtime) handleOutboxTask(ctx context.Context, event OutboxEvent) error {
	r.logger.Debug("outbox event", "kind", event.Kind, "id", event.ID)
	_, err := r.pool.Exec(ctx, `UPDATE outbox_events SET delivered_at = now() WHERE id = $1`, event.ID)
	return err
}

func (r *Runtime) reportQueueDepth(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, q := range []*Queue{r.evaluateQ, r.notifyQ, r.heartbeatQ, r.outboxQ} {
				depth, err := q.depth(ctx)
				if err != nil {
					continue
				}
				telemetry.QueueDepth.WithLabelValues(q.name).Set(float64(depth))
			}
		}
	}
}
