package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service encapsulates client business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates a client Service backed by the given pool.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

// Create provisions a new client (tenant root).
func (s *Service) Create(ctx context.Context, req CreateRequest) (Response, error) {
	row, err := s.store.Create(ctx, req.Name)
	if err != nil {
		return Response{}, fmt.Errorf("creating client: %w", err)
	}
	return row.ToResponse(), nil
}

// Get returns a client by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Response, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		return Response{}, fmt.Errorf("getting client: %w", err)
	}
	return row.ToResponse(), nil
}

// List returns every client.
func (s *Service) List(ctx context.Context) ([]Response, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}
