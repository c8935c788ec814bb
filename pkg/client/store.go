package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, name, created_at`

// Store provides database operations for clients.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a client Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(&r.ID, &r.Name, &r.CreatedAt)
	return r, err
}

// Create inserts a new client.
func (s *Store) Create(ctx context.Context, name string) (Row, error) {
	query := `INSERT INTO clients (name) VALUES ($1) RETURNING ` + columns
	row := s.pool.QueryRow(ctx, query, name)
	return scanRow(row)
}

// Get returns a client by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	query := `SELECT ` + columns + ` FROM clients WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)
	return scanRow(row)
}

// List returns every client, ordered by creation time.
func (s *Store) List(ctx context.Context) ([]Row, error) {
	query := `SELECT ` + columns + ` FROM clients ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning client row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
