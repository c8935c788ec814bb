package incident

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, client_id, http_target_id, metric_instance_id, status, opened_at, resolved_at, last_observed_at, last_notified_at`

// Store provides database operations for incidents.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.ClientID, &r.HTTPTargetID, &r.MetricInstanceID, &r.Status, &r.OpenedAt, &r.ResolvedAt, &r.LastObservedAt, &r.LastNotifiedAt)
	return r, err
}

// getOpenBySubject finds the current OPEN incident for a subject, if any.
func (s *Store) getOpenBySubject(ctx context.Context, subject Subject) (Row, error) {
	if subject.HTTPTargetID != nil {
		query := `SELECT ` + columns + ` FROM incidents WHERE client_id = $1 AND http_target_id = $2 AND status = 'OPEN'`
		return scanRow(s.pool.QueryRow(ctx, query, subject.ClientID, *subject.HTTPTargetID))
	}
	query := `SELECT ` + columns + ` FROM incidents WHERE client_id = $1 AND metric_instance_id = $2 AND status = 'OPEN'`
	return scanRow(s.pool.QueryRow(ctx, query, subject.ClientID, *subject.MetricInstanceID))
}

// Open attempts to insert a new OPEN incident for subject. The unique
// partial index (ux_incidents_open_by_target /
// ux_incidents_open_by_metric_instance) is the conflict oracle per §5: this
// does not check-then-insert, it relies on the database to reject a second
// concurrent OPEN row for the same subject.
func (s *Store) Open(ctx context.Context, subject Subject) (OpenOutcome, error) {
	query := `INSERT INTO incidents (client_id, http_target_id, metric_instance_id)
	VALUES ($1, $2, $3)
	RETURNING ` + columns

	row, err := scanRow(s.pool.QueryRow(ctx, query, subject.ClientID, subject.HTTPTargetID, subject.MetricInstanceID))
	if err == nil {
		return OpenOutcome{Incident: row}, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		existing, getErr := s.getOpenBySubject(ctx, subject)
		if getErr != nil {
			return OpenOutcome{}, fmt.Errorf("loading conflicting open incident: %w", getErr)
		}

		touch := `UPDATE incidents SET last_observed_at = now() WHERE id = $1 RETURNING ` + columns
		existing, err = scanRow(s.pool.QueryRow(ctx, touch, existing.ID))
		if err != nil {
			return OpenOutcome{}, fmt.Errorf("touching existing open incident: %w", err)
		}

		return OpenOutcome{Incident: existing, AlreadyOpen: true}, nil
	}

	return OpenOutcome{}, fmt.Errorf("inserting incident: %w", err)
}

// Resolve marks the OPEN incident for subject, if any, as RESOLVED.
func (s *Store) Resolve(ctx context.Context, subject Subject) (ResolveOutcome, error) {
	var query string
	var args []any
	if subject.HTTPTargetID != nil {
		query = `UPDATE incidents SET status = 'RESOLVED', resolved_at = now()
		WHERE client_id = $1 AND http_target_id = $2 AND status = 'OPEN'
		RETURNING ` + columns
		args = []any{subject.ClientID, *subject.HTTPTargetID}
	} else {
		query = `UPDATE incidents SET status = 'RESOLVED', resolved_at = now()
		WHERE client_id = $1 AND metric_instance_id = $2 AND status = 'OPEN'
		RETURNING ` + columns
		args = []any{subject.ClientID, *subject.MetricInstanceID}
	}

	row, err := scanRow(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResolveOutcome{}, nil
		}
		return ResolveOutcome{}, fmt.Errorf("resolving incident: %w", err)
	}

	return ResolveOutcome{Incident: &row}, nil
}

// MarkNotified stamps last_notified_at on an incident after a successful send.
func (s *Store) MarkNotified(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE incidents SET last_notified_at = now() WHERE id = $1`, id)
	return err
}

// Get returns an incident by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `SELECT ` + columns + ` FROM incidents WHERE id = $1`
	return scanRow(s.pool.QueryRow(ctx, query, id))
}

// ListByClient returns incidents for a client, optionally filtered by status.
func (s *Store) ListByClient(ctx context.Context, clientID uuid.UUID, status *Status, params ListParams) ([]Row, int, error) {
	where := `client_id = $1`
	args := []any{clientID}
	if status != nil {
		args = append(args, *status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	countQuery := `SELECT count(*) FROM incidents WHERE ` + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting incidents: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE %s ORDER BY opened_at DESC LIMIT $%d OFFSET $%d`,
		columns, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing incidents: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning incident row: %w", err)
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

// ListParams bounds a ListByClient query.
type ListParams struct {
	Limit  int
	Offset int
}
