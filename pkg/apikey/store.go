package apikey

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, client_id, key_hash, name, is_active, machine_id, last_used_at, created_at`

// Store provides database operations for API keys.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an API key Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateParams holds parameters for creating an API key.
type CreateParams struct {
	ClientID  uuid.UUID
	KeyHash   string
	Name      string
	MachineID *uuid.UUID
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(
		&r.ID, &r.ClientID, &r.KeyHash, &r.Name, &r.IsActive,
		&r.MachineID, &r.LastUsedAt, &r.CreatedAt,
	)
	return r, err
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	defer rows.Close()
	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}
	return items, nil
}

// List returns all API keys for the given client.
func (s *Store) List(ctx context.Context, clientID uuid.UUID) ([]Row, error) {
	query := `SELECT ` + columns + ` FROM api_keys WHERE client_id = $1 ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	return scanRows(rows)
}

// Create inserts a new API key and returns the created row.
func (s *Store) Create(ctx context.Context, p CreateParams) (Row, error) {
	query := `INSERT INTO api_keys (client_id, key_hash, name, is_active, machine_id)
	VALUES ($1, $2, $3, true, $4)
	RETURNING ` + columns

	row := s.pool.QueryRow(ctx, query, p.ClientID, p.KeyHash, p.Name, p.MachineID)
	return scanRow(row)
}

// GetByHash looks up an active-or-not API key by its SHA-256 hash. The
// caller decides whether IsActive gates the request.
func (s *Store) GetByHash(ctx context.Context, hash string) (Row, error) {
	query := `SELECT ` + columns + ` FROM api_keys WHERE key_hash = $1`
	row := s.pool.QueryRow(ctx, query, hash)
	return scanRow(row)
}

// SetActive enables or disables an API key.
func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("updating api key status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete permanently removes an API key by ID.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// TouchLastUsed updates last_used_at to now. Intended to be called
// fire-and-forget from the authenticator.
func (s *Store) TouchLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id)
	return err
}
