package clientsettings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `client_id, notification_email, slack_webhook_url, slack_channel_name, grace_period_seconds, reminder_notification_seconds, alert_grouping_enabled, notify_on_resolve, heartbeat_threshold_minutes, consecutive_failures_threshold`

// Store provides database operations for client settings.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanRow(row pgx.Row) (Settings, error) {
	var s Settings
	err := row.Scan(
		&s.ClientID, &s.NotificationEmail, &s.SlackWebhookURL, &s.SlackChannelName,
		&s.GracePeriodSeconds, &s.ReminderNotificationSeconds, &s.AlertGroupingEnabled,
		&s.NotifyOnResolve, &s.HeartbeatThresholdMinutes, &s.ConsecutiveFailuresThreshold,
	)
	return s, err
}

// GetOrDefault returns a client's settings row, creating a default one on
// first access (ClientSettings has no explicit creation step in §3).
func (s *Store) GetOrDefault(ctx context.Context, clientID uuid.UUID) (Settings, error) {
	query := `SELECT ` + columns + ` FROM client_settings WHERE client_id = $1`
	row, err := scanRow(s.pool.QueryRow(ctx, query, clientID))
	if err == nil {
		return row, nil
	}
	if err != pgx.ErrNoRows {
		return Settings{}, fmt.Errorf("loading client settings: %w", err)
	}

	insert := `INSERT INTO client_settings (client_id) VALUES ($1)
	ON CONFLICT (client_id) DO UPDATE SET client_id = EXCLUDED.client_id
	RETURNING ` + columns
	return scanRow(s.pool.QueryRow(ctx, insert, clientID))
}

// Update applies a partial update and returns the resulting row.
func (s *Store) Update(ctx context.Context, clientID uuid.UUID, req UpdateRequest) (Settings, error) {
	if _, err := s.GetOrDefault(ctx, clientID); err != nil {
		return Settings{}, err
	}

	query := `UPDATE client_settings SET
		notification_email = COALESCE($2, notification_email),
		slack_webhook_url = COALESCE($3, slack_webhook_url),
		slack_channel_name = COALESCE($4, slack_channel_name),
		grace_period_seconds = COALESCE($5, grace_period_seconds),
		reminder_notification_seconds = COALESCE($6, reminder_notification_seconds),
		alert_grouping_enabled = COALESCE($7, alert_grouping_enabled),
		notify_on_resolve = COALESCE($8, notify_on_resolve),
		heartbeat_threshold_minutes = COALESCE($9, heartbeat_threshold_minutes),
		consecutive_failures_threshold = COALESCE($10, consecutive_failures_threshold)
	WHERE client_id = $1
	RETURNING ` + columns

	row := s.pool.QueryRow(ctx, query, clientID,
		req.NotificationEmail, req.SlackWebhookURL, req.SlackChannelName,
		req.GracePeriodSeconds, req.ReminderNotificationSeconds, req.AlertGroupingEnabled,
		req.NotifyOnResolve, req.HeartbeatThresholdMinutes, req.ConsecutiveFailuresThreshold,
	)
	return scanRow(row)
}
