package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// recordEvent attempts to insert an IngestEvent for (client_id, ingest_id).
// A unique-violation means this exact ingest id was already processed for
// this client; the caller treats that as a no-op duplicate per §4.1.
func recordEvent(ctx context.Context, tx pgx.Tx, clientID, ingestID, machineID uuid.UUID, sentAt pgtype.Timestamptz) (bool, error) {
	query := `INSERT INTO ingest_events (client_id, ingest_id, machine_id, sent_at)
	VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, clientID, ingestID, machineID, sentAt)
	if err == nil {
		return false, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true, nil
	}
	return false, fmt.Errorf("recording ingest event: %w", err)
}

// insertSample appends one Sample row for a MetricInstance. Samples are
// append-only per §3; no retention trimming is implemented in the core
// (Non-goals: no time-series analytics store).
func insertSample(ctx context.Context, tx pgx.Tx, instanceID uuid.UUID, v metric.Value, sentAt pgtype.Timestamptz) error {
	var numVal, boolVal, stringVal any
	switch v.Type {
	case metric.TypeNumber:
		numVal = v.Number
	case metric.TypeBool:
		boolVal = v.Bool
	case metric.TypeString:
		stringVal = v.String
	}

	query := `INSERT INTO samples (metric_instance_id, sent_at, value_number, value_bool, value_string)
	VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.Exec(ctx, query, instanceID, sentAt, numVal, boolVal, stringVal)
	if err != nil {
		return fmt.Errorf("inserting sample: %w", err)
	}
	return nil
}
