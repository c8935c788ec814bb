package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service encapsulates API key business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

// NewService creates an API key Service backed by the given pool.
func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{
		store:  NewStore(pool),
		logger: logger,
	}
}

// List returns all API keys for the given client.
func (s *Service) List(ctx context.Context, clientID uuid.UUID) ([]Response, error) {
	rows, err := s.store.List(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}

	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Create generates a new API key, stores its hash, and returns the raw key once.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, req CreateRequest) (CreateResponse, error) {
	raw, hash := generateAPIKey()

	row, err := s.store.Create(ctx, CreateParams{
		ClientID:  clientID,
		KeyHash:   hash,
		Name:      req.Name,
		MachineID: req.MachineID,
	})
	if err != nil {
		return CreateResponse{}, fmt.Errorf("creating api key: %w", err)
	}

	return CreateResponse{
		Response: row.ToResponse(),
		RawKey:   raw,
	}, nil
}

// SetActive enables or disables an API key without deleting its history.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("setting api key active state: %w", err)
	}
	return nil
}

// Delete permanently removes an API key.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	return nil
}

// HashAPIKey returns the SHA-256 hash of a raw key, used both at creation
// and lookup time so the raw secret never lives in the database.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// generateAPIKey creates a random API key with prefix "pg_" and its SHA-256 hash.
func generateAPIKey() (raw, hash string) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	raw = "pg_" + hex.EncodeToString(b)
	hash = HashAPIKey(raw)
	return raw, hash
}
