package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegrid/pulsegrid/pkg/machine"
	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// ErrMachineMismatch is returned when a machine-bound ApiKey's batch
// resolves to a different machine than the one it's bound to, per
// SPEC_FULL.md's [CLIENT & AUTH] section.
var ErrMachineMismatch = errors.New("api key is bound to a different machine")

// ErrValidation wraps a per-batch validation failure: unknown value type,
// malformed scalar, or a metric name redefining its MetricDefinition's
// type. The entire batch is rejected per §4.1 ("do not half-apply").
var ErrValidation = errors.New("ingest validation failed")

// toTimestamptz converts an optional client-supplied sent_at into a
// pgtype.Timestamptz, recorded alongside each Sample for skew diagnostics.
func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// Emitter hands an evaluate intent to the scheduler/worker runtime's
// evaluate queue, one per MetricInstance affected by a batch.
type Emitter interface {
	EmitEvaluate(ctx context.Context, clientID, metricInstanceID uuid.UUID) error
}

// Service implements the ingest pipeline described in spec §4.1.
type Service struct {
	pool    *pgxpool.Pool
	emitter Emitter
	logger  *slog.Logger
}

// NewService creates an ingest Service. emitter may be nil at construction
// time and supplied later via SetEmitter — see internal/app's two-phase
// wiring, needed because the scheduler/worker runtime that implements
// Emitter is itself built from other components constructed afterward.
func NewService(pool *pgxpool.Pool, emitter Emitter, logger *slog.Logger) *Service {
	return &Service{pool: pool, emitter: emitter, logger: logger}
}

// SetEmitter assigns the Emitter a Service built with a nil emitter will
// hand evaluate intents to.
func (s *Service) SetEmitter(emitter Emitter) {
	s.emitter = emitter
}

// Ingest processes one batch per §4.1: it authenticates at the caller (the
// handler resolves clientID/boundMachineID via authctx before calling in),
// resolves the machine, deduplicates by ingestID when present, and for each
// metric resolves its definition/instance, appends a Sample, and updates
// last_value — all inside one transaction so a validation failure never
// half-applies a batch.
func (s *Service) Ingest(ctx context.Context, clientID uuid.UUID, boundMachineID *uuid.UUID, ingestID *uuid.UUID, req Request) (Response, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("beginning ingest transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	m, err := machine.ResolveOrCreate(ctx, tx, clientID, req.Machine.Hostname, req.Machine.OS, req.Machine.Fingerprint)
	if err != nil {
		return Response{}, fmt.Errorf("resolving machine: %w", err)
	}

	if boundMachineID != nil && *boundMachineID != m.ID {
		return Response{}, ErrMachineMismatch
	}

	sentAt := toTimestamptz(req.SentAt)

	if ingestID != nil {
		duplicate, err := recordEvent(ctx, tx, clientID, *ingestID, m.ID, sentAt)
		if err != nil {
			return Response{}, err
		}
		if duplicate {
			if err := tx.Commit(ctx); err != nil {
				return Response{}, fmt.Errorf("committing duplicate ingest: %w", err)
			}
			return Response{Accepted: true, Duplicate: true}, nil
		}
	}

	affected := make(map[uuid.UUID]struct{})
	for _, mp := range req.Metrics {
		value, err := metric.ParseValue(mp.Type, mp.Value)
		if err != nil {
			return Response{}, fmt.Errorf("%w: metric %q: %v", ErrValidation, mp.Name, err)
		}

		definition, err := metric.ResolveDefinition(ctx, tx, clientID, mp.Name, mp.Type, mp.Unit)
		if err != nil {
			if errors.Is(err, metric.ErrTypeMismatch) {
				return Response{}, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			return Response{}, fmt.Errorf("resolving metric definition: %w", err)
		}

		instance, err := metric.ResolveInstance(ctx, tx, m.ID, definition.ID)
		if err != nil {
			return Response{}, fmt.Errorf("resolving metric instance: %w", err)
		}

		if err := insertSample(ctx, tx, instance.ID, value, sentAt); err != nil {
			return Response{}, err
		}

		receivedAt := pgtype.Timestamptz{Time: time.Now(), Valid: true}
		if err := metric.UpdateLastValue(ctx, tx, instance.ID, value, receivedAt); err != nil {
			return Response{}, fmt.Errorf("updating last value: %w", err)
		}

		affected[instance.ID] = struct{}{}
	}

	if err := tx.Commit(ctx); err != nil {
		return Response{}, fmt.Errorf("committing ingest batch: %w", err)
	}

	for instanceID := range affected {
		if err := s.emitter.EmitEvaluate(ctx, clientID, instanceID); err != nil {
			s.logger.Error("emitting evaluate intent", "error", err, "metric_instance_id", instanceID)
		}
	}

	return Response{Accepted: true, Duplicate: false}, nil
}
