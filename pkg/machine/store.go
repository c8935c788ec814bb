package machine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, client_id, hostname, os, fingerprint, is_active, registered_at, last_seen`

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so the ingest pipeline can
// upsert machines inside its own transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides database operations for machines.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.ClientID, &r.Hostname, &r.OS, &r.Fingerprint, &r.IsActive, &r.RegisteredAt, &r.LastSeen)
	return r, err
}

// GetByFingerprint looks up a machine by its unique (client_id,
// fingerprint) pair.
func GetByFingerprint(ctx context.Context, db DBTX, clientID uuid.UUID, fingerprint string) (Row, error) {
	query := `SELECT ` + columns + ` FROM machines WHERE client_id = $1 AND fingerprint = $2`
	return scanRow(db.QueryRow(ctx, query, clientID, fingerprint))
}

// Create inserts a new machine.
func Create(ctx context.Context, db DBTX, clientID uuid.UUID, hostname, os, fingerprint string) (Row, error) {
	query := `INSERT INTO machines (client_id, hostname, os, fingerprint, last_seen)
	VALUES ($1, $2, $3, $4, now())
	RETURNING ` + columns
	return scanRow(db.QueryRow(ctx, query, clientID, hostname, os, fingerprint))
}

// TouchSeen updates last_seen and opportunistically refreshes
// hostname/os, per §4.1.
func TouchSeen(ctx context.Context, db DBTX, id uuid.UUID, hostname, os string) error {
	query := `UPDATE machines SET last_seen = now(), hostname = $2, os = $3 WHERE id = $1`
	_, err := db.Exec(ctx, query, id, hostname, os)
	return err
}

// ResolveOrCreate resolves or creates a Machine by (client_id, fingerprint),
// updating last_seen/hostname/os on every call per §4.1.
func ResolveOrCreate(ctx context.Context, db DBTX, clientID uuid.UUID, hostname, os, fingerprint string) (Row, error) {
	existing, err := GetByFingerprint(ctx, db, clientID, fingerprint)
	if err == nil {
		if touchErr := TouchSeen(ctx, db, existing.ID, hostname, os); touchErr != nil {
			return Row{}, fmt.Errorf("touching machine last_seen: %w", touchErr)
		}
		existing.Hostname = hostname
		existing.OS = os
		return existing, nil
	}
	if err != pgx.ErrNoRows {
		return Row{}, fmt.Errorf("looking up machine: %w", err)
	}
	return Create(ctx, db, clientID, hostname, os, fingerprint)
}

// Get returns a machine by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `SELECT ` + columns + ` FROM machines WHERE id = $1`
	return scanRow(s.pool.QueryRow(ctx, query, id))
}

// ListByClient returns every machine for a client.
func (s *Store) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + columns + ` FROM machines WHERE client_id = $1 ORDER BY registered_at DESC`
	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning machine row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// Delete retires a machine. ON DELETE CASCADE on metric_instances/samples
// satisfies the §3 lifecycle ("cascade delete removes its metric_instances
// and samples").
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM machines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting machine: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ClockSkewMs returns the median (received_at - sent_at) in milliseconds
// over recent samples for this machine's metric instances, per the ingest
// skew diagnostic supplemented in SPEC_FULL.md.
func (s *Store) ClockSkewMs(ctx context.Context, machineID uuid.UUID) (*float64, error) {
	query := `SELECT percentile_cont(0.5) WITHIN GROUP (
		ORDER BY extract(epoch FROM (s.ts - s.sent_at)) * 1000
	)
	FROM samples s
	JOIN metric_instances mi ON mi.id = s.metric_instance_id
	WHERE mi.machine_id = $1 AND s.sent_at IS NOT NULL
	AND s.ts > now() - interval '1 hour'`

	var skew *float64
	if err := s.pool.QueryRow(ctx, query, machineID).Scan(&skew); err != nil {
		return nil, fmt.Errorf("computing clock skew: %w", err)
	}
	return skew, nil
}

// HeartbeatStatus is one machine's liveness as of a heartbeat sweep.
type HeartbeatStatus struct {
	MachineID uuid.UUID
	ClientID  uuid.UUID
	Stale     bool
}

// HeartbeatStatuses reports every active machine's liveness against its
// client's heartbeat_threshold_minutes (falling back to the given default
// when a client has no settings row yet), for the heartbeat sweep (§4.6).
// It covers both stale and fresh machines so the sweep can open a heartbeat
// incident on the former and resolve one on the latter in the same pass.
func (s *Store) HeartbeatStatuses(ctx context.Context, defaultThresholdMinutes int) ([]HeartbeatStatus, error) {
	query := `SELECT m.id, m.client_id,
		(m.last_seen IS NULL OR m.last_seen < now() - make_interval(mins => coalesce(cs.heartbeat_threshold_minutes, $1)))
	FROM machines m
	LEFT JOIN client_settings cs ON cs.client_id = m.client_id
	WHERE m.is_active = true`

	rows, err := s.pool.Query(ctx, query, defaultThresholdMinutes)
	if err != nil {
		return nil, fmt.Errorf("listing machine heartbeat statuses: %w", err)
	}
	defer rows.Close()

	var items []HeartbeatStatus
	for rows.Next() {
		var hs HeartbeatStatus
		if err := rows.Scan(&hs.MachineID, &hs.ClientID, &hs.Stale); err != nil {
			return nil, fmt.Errorf("scanning heartbeat status: %w", err)
		}
		items = append(items, hs)
	}
	return items, rows.Err()
}
