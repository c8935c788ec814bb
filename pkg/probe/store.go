package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, client_id, name, url, method, accepted_status_codes, timeout_ms,
	check_interval_s, is_active, last_check_at, last_status, last_latency_ms,
	state, pending_since, consecutive_failures`

// ErrConflict is the sentinel matched via errors.Is when a (client_id,
// url) pair already exists; ConflictError is what's actually returned, and
// carries the winning row's id.
var ErrConflict = errors.New("http target already exists for this url")

// ConflictError wraps ErrConflict with the id of the HttpTarget row that
// already owns (client_id, url), per §6's `{detail:{message, existing_id}}`
// 409 contract.
type ConflictError struct {
	ExistingID uuid.UUID
}

func (e *ConflictError) Error() string { return ErrConflict.Error() }

// Is lets errors.Is(err, ErrConflict) keep matching through the wrapper.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Store provides database operations for HttpTargets.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.ClientID, &r.Name, &r.URL, &r.Method, &r.AcceptedStatusCodes,
		&r.TimeoutMs, &r.CheckIntervalS, &r.IsActive, &r.LastCheckAt, &r.LastStatus,
		&r.LastLatencyMs, &r.State, &r.PendingSince, &r.ConsecutiveFailures)
	return r, err
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning http target row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// CreateParams bundles the fields needed to insert an HttpTarget.
type CreateParams struct {
	ClientID             uuid.UUID
	Name                 string
	URL                  string
	Method               string
	AcceptedStatusCodes  []int32
	TimeoutMs            int
	CheckIntervalS       int
	IsActive             bool
}

// Create inserts a new HttpTarget. It translates the unique (client_id,
// url) violation into ErrConflict, per §6's 409 contract.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO http_targets
		(client_id, name, url, method, accepted_status_codes, timeout_ms, check_interval_s, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + columns

	row, err := scanRow(s.pool.QueryRow(ctx, query, p.ClientID, p.Name, p.URL, p.Method,
		p.AcceptedStatusCodes, p.TimeoutMs, p.CheckIntervalS, p.IsActive))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Row{}, s.conflictError(ctx, p.ClientID, p.URL)
		}
		return Row{}, fmt.Errorf("inserting http target: %w", err)
	}
	return row, nil
}

// conflictError looks up the row that already owns (client_id, url) so the
// 409 response can carry its id, per §6 and §8 scenario 1. If the lookup
// itself fails, ErrConflict is returned bare rather than masking the
// original conflict with a lookup error.
func (s *Store) conflictError(ctx context.Context, clientID uuid.UUID, url string) error {
	var id uuid.UUID
	query := `SELECT id FROM http_targets WHERE client_id = $1 AND url = $2`
	if err := s.pool.QueryRow(ctx, query, clientID, url).Scan(&id); err != nil {
		return ErrConflict
	}
	return &ConflictError{ExistingID: id}
}

// Get returns an HttpTarget by ID, scoped to a client.
func (s *Store) Get(ctx context.Context, clientID, id uuid.UUID) (Row, error) {
	query := `SELECT ` + columns + ` FROM http_targets WHERE id = $1 AND client_id = $2`
	return scanRow(s.pool.QueryRow(ctx, query, id, clientID))
}

// ListByClient returns every HttpTarget for a client.
func (s *Store) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + columns + ` FROM http_targets WHERE client_id = $1 ORDER BY name`
	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing http targets: %w", err)
	}
	return scanRows(rows)
}

// UpdateParams bundles the mutable fields of an HttpTarget update.
type UpdateParams struct {
	Name                string
	URL                 string
	Method              string
	AcceptedStatusCodes []int32
	TimeoutMs           int
	CheckIntervalS      int
	IsActive            bool
}

// Update replaces the mutable fields of an HttpTarget.
func (s *Store) Update(ctx context.Context, clientID, id uuid.UUID, p UpdateParams) (Row, error) {
	query := `UPDATE http_targets SET
		name = $3, url = $4, method = $5, accepted_status_codes = $6,
		timeout_ms = $7, check_interval_s = $8, is_active = $9
		WHERE id = $1 AND client_id = $2
		RETURNING ` + columns

	row, err := scanRow(s.pool.QueryRow(ctx, query, id, clientID, p.Name, p.URL, p.Method,
		p.AcceptedStatusCodes, p.TimeoutMs, p.CheckIntervalS, p.IsActive))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Row{}, s.conflictError(ctx, clientID, p.URL)
		}
		return Row{}, fmt.Errorf("updating http target: %w", err)
	}
	return row, nil
}

// Delete removes an HttpTarget.
func (s *Store) Delete(ctx context.Context, clientID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM http_targets WHERE id = $1 AND client_id = $2`, id, clientID)
	if err != nil {
		return fmt.Errorf("deleting http target: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Due returns every active HttpTarget whose check interval has elapsed,
// for the prober's tick, per §4.2.
func (s *Store) Due(ctx context.Context, limit int) ([]Row, error) {
	query := `SELECT ` + columns + ` FROM http_targets
		WHERE is_active = true
		AND (last_check_at IS NULL OR last_check_at <= now() - make_interval(secs => check_interval_s))
		ORDER BY last_check_at NULLS FIRST
		LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting due http targets: %w", err)
	}
	return scanRows(rows)
}

// RecordOutcome persists the raw result of a probe onto its target row.
// Gating state (state, pending_since, consecutive_failures) is written
// separately by UpdateState once the evaluator has run, per §4.3.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) error {
	query := `UPDATE http_targets
		SET last_check_at = $2, last_status = $3, last_latency_ms = $4
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, o.TargetID, o.Timestamp, o.Status, o.LatencyMs)
	if err != nil {
		return fmt.Errorf("recording probe outcome: %w", err)
	}
	return nil
}

// UpdateState persists the evaluator's gating decision for a target.
func (s *Store) UpdateState(ctx context.Context, id uuid.UUID, state string, pendingSince *pgtype.Timestamptz, consecutiveFailures int) error {
	query := `UPDATE http_targets SET state = $2, pending_since = $3, consecutive_failures = $4 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, state, pendingSince, consecutiveFailures)
	if err != nil {
		return fmt.Errorf("updating http target state: %w", err)
	}
	return nil
}
