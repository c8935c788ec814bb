package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LogRow is a row from notification_log.
type LogRow struct {
	ID          uuid.UUID
	ClientID    uuid.UUID
	IncidentID  *uuid.UUID
	SubjectKey  string
	Kind        string
	Provider    string
	Recipient   string
	Status      string
	SentAt      *time.Time
	CreatedAt   time.Time
	Error       *string
}

// Response is the JSON representation of a notification log entry.
type Response struct {
	ID         uuid.UUID  `json:"id"`
	IncidentID *uuid.UUID `json:"incident_id,omitempty"`
	SubjectKey string     `json:"subject_key"`
	Kind       string     `json:"kind"`
	Provider   string     `json:"provider"`
	Recipient  string     `json:"recipient"`
	Status     string     `json:"status"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Error      *string    `json:"error,omitempty"`
}

func (r LogRow) ToResponse() Response {
	return Response{
		ID: r.ID, IncidentID: r.IncidentID, SubjectKey: r.SubjectKey, Kind: r.Kind,
		Provider: r.Provider, Recipient: r.Recipient, Status: r.Status,
		SentAt: r.SentAt, CreatedAt: r.CreatedAt, Error: r.Error,
	}
}

const logColumns = `id, client_id, incident_id, subject_key, kind, provider, recipient, status, sent_at, created_at, error`

// Store provides database operations for the notification log.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanLogRow(row pgx.Row) (LogRow, error) {
	var r LogRow
	err := row.Scan(&r.ID, &r.ClientID, &r.IncidentID, &r.SubjectKey, &r.Kind, &r.Provider, &r.Recipient, &r.Status, &r.SentAt, &r.CreatedAt, &r.Error)
	return r, err
}

// CreatePending records a send attempt before it's made, so a crash between
// send and log-write still leaves a trail (status stays 'pending').
func (s *Store) CreatePending(ctx context.Context, clientID uuid.UUID, incidentID *uuid.UUID, subjectKey, kind, provider, recipient string) (LogRow, error) {
	query := `INSERT INTO notification_log (client_id, incident_id, subject_key, kind, provider, recipient, status)
	VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	RETURNING ` + logColumns
	return scanLogRow(s.pool.QueryRow(ctx, query, clientID, incidentID, subjectKey, kind, provider, recipient))
}

// MarkSent transitions a pending entry to success.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE notification_log SET status = 'success', sent_at = now() WHERE id = $1`, id)
	return err
}

// MarkFailed transitions a pending entry to failed, recording the error.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, sendErr error) error {
	_, err := s.pool.Exec(ctx, `UPDATE notification_log SET status = 'failed', error = $2 WHERE id = $1`, id, sendErr.Error())
	return err
}

// LastSuccess returns the time of the most recent successful send for a
// subject, used to compute whether a reminder cooldown has elapsed.
func (s *Store) LastSuccess(ctx context.Context, subjectKey string) (*time.Time, error) {
	query := `SELECT sent_at FROM notification_log WHERE subject_key = $1 AND status = 'success' ORDER BY sent_at DESC LIMIT 1`
	var sentAt *time.Time
	err := s.pool.QueryRow(ctx, query, subjectKey).Scan(&sentAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading last successful notification: %w", err)
	}
	return sentAt, nil
}

// ListParams bounds a List query. Status and IncidentID are optional
// filters read from the `status`/`incident_id` query parameters of
// `GET /notifications`, per SPEC_FULL.md's [NOTIFIER] supplement.
type ListParams struct {
	Limit      int
	Offset     int
	Status     *string
	IncidentID *uuid.UUID
}

// List returns notification log entries for a client, newest first,
// optionally narrowed to a status and/or incident.
func (s *Store) List(ctx context.Context, clientID uuid.UUID, params ListParams) ([]LogRow, int, error) {
	where := `client_id = $1`
	args := []any{clientID}

	if params.Status != nil {
		args = append(args, *params.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if params.IncidentID != nil {
		args = append(args, *params.IncidentID)
		where += fmt.Sprintf(` AND incident_id = $%d`, len(args))
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM notification_log WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`SELECT %s FROM notification_log WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		logColumns, where, len(args)-1, len(args))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var items []LogRow
	for rows.Next() {
		r, err := scanLogRow(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning notification log row: %w", err)
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}
