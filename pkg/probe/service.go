package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidURL is returned when a target URL is not http(s).
var ErrInvalidURL = errors.New("url must use http or https scheme")

// ErrInvalidMethod is returned when a target method is outside the
// allowed set, per §6.
var ErrInvalidMethod = errors.New("method must be one of GET, HEAD, POST")

var allowedMethods = map[string]bool{"GET": true, "HEAD": true, "POST": true}

// Service encapsulates HttpTarget business logic.
type Service struct {
	store  *Store
	logger *slog.Logger
}

func NewService(pool *pgxpool.Pool, logger *slog.Logger) *Service {
	return &Service{store: NewStore(pool), logger: logger}
}

func validate(rawURL, method string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidURL
	}
	if !allowedMethods[method] {
		return ErrInvalidMethod
	}
	return nil
}

func defaultAcceptedStatusCodes(codes []int) []int32 {
	if len(codes) == 0 {
		return []int32{200}
	}
	out := make([]int32, len(codes))
	for i, c := range codes {
		out[i] = int32(c)
	}
	return out
}

// Create validates and inserts a new HttpTarget.
func (s *Service) Create(ctx context.Context, clientID uuid.UUID, req CreateRequest) (Response, error) {
	if err := validate(req.URL, req.Method); err != nil {
		return Response{}, err
	}

	row, err := s.store.Create(ctx, CreateParams{
		ClientID:            clientID,
		Name:                req.Name,
		URL:                 req.URL,
		Method:              req.Method,
		AcceptedStatusCodes: defaultAcceptedStatusCodes(req.AcceptedStatusCodes),
		TimeoutMs:           req.TimeoutSeconds * 1000,
		CheckIntervalS:      req.CheckIntervalSeconds,
		IsActive:            req.IsActive,
	})
	if err != nil {
		return Response{}, err
	}
	return row.ToResponse(), nil
}

// Update validates and replaces an existing HttpTarget.
func (s *Service) Update(ctx context.Context, clientID, id uuid.UUID, req CreateRequest) (Response, error) {
	if err := validate(req.URL, req.Method); err != nil {
		return Response{}, err
	}

	row, err := s.store.Update(ctx, clientID, id, UpdateParams{
		Name:                req.Name,
		URL:                 req.URL,
		Method:              req.Method,
		AcceptedStatusCodes: defaultAcceptedStatusCodes(req.AcceptedStatusCodes),
		TimeoutMs:           req.TimeoutSeconds * 1000,
		CheckIntervalS:      req.CheckIntervalSeconds,
		IsActive:            req.IsActive,
	})
	if err != nil {
		return Response{}, err
	}
	return row.ToResponse(), nil
}

// Get returns an HttpTarget scoped to a client.
func (s *Service) Get(ctx context.Context, clientID, id uuid.UUID) (Response, error) {
	row, err := s.store.Get(ctx, clientID, id)
	if err != nil {
		return Response{}, fmt.Errorf("getting http target: %w", err)
	}
	return row.ToResponse(), nil
}

// ListByClient returns every HttpTarget for a client.
func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID) ([]Response, error) {
	rows, err := s.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("listing http targets: %w", err)
	}
	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Delete removes an HttpTarget.
func (s *Service) Delete(ctx context.Context, clientID, id uuid.UUID) error {
	if err := s.store.Delete(ctx, clientID, id); err != nil {
		return fmt.Errorf("deleting http target: %w", err)
	}
	return nil
}
