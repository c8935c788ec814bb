package machine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service encapsulates machine business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

// Get returns a machine with its clock-skew diagnostic populated.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Response, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		return Response{}, fmt.Errorf("getting machine: %w", err)
	}

	resp := row.ToResponse()
	skew, err := s.store.ClockSkewMs(ctx, id)
	if err != nil {
		s.logger.Warn("computing clock skew", "error", err, "machine_id", id)
	} else {
		resp.ClockSkewMs = skew
	}
	return resp, nil
}

// ListByClient returns every machine for a client.
func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Response, error) {
	rows, err := s.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Delete retires a machine, cascading to its metric instances and samples.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting machine: %w", err)
	}
	return nil
}
