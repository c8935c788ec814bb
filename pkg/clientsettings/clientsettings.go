// Package clientsettings manages ClientSettings: per-client notification
// channels, cooldown configuration, and evaluator gating defaults.
package clientsettings

import "github.com/google/uuid"

// Settings is the full ClientSettings row, keyed by client_id.
type Settings struct {
	ClientID                     uuid.UUID `json:"client_id"`
	NotificationEmail            *string   `json:"notification_email,omitempty"`
	SlackWebhookURL              *string   `json:"slack_webhook_url,omitempty"`
	SlackChannelName              *string  `json:"slack_channel_name,omitempty"`
	GracePeriodSeconds           int       `json:"grace_period_seconds"`
	ReminderNotificationSeconds  int       `json:"reminder_notification_seconds"`
	AlertGroupingEnabled         bool      `json:"alert_grouping_enabled"`
	NotifyOnResolve              bool      `json:"notify_on_resolve"`
	HeartbeatThresholdMinutes    int       `json:"heartbeat_threshold_minutes"`
	ConsecutiveFailuresThreshold int       `json:"consecutive_failures_threshold"`
}

// UpdateRequest is the JSON body for PUT /settings. All fields optional;
// unset fields keep their current value.
type UpdateRequest struct {
	NotificationEmail            *string `json:"notification_email"`
	SlackWebhookURL               *string `json:"slack_webhook_url"`
	SlackChannelName              *string `json:"slack_channel_name"`
	GracePeriodSeconds           *int    `json:"grace_period_seconds"`
	ReminderNotificationSeconds  *int    `json:"reminder_notification_seconds"`
	AlertGroupingEnabled         *bool   `json:"alert_grouping_enabled"`
	NotifyOnResolve              *bool   `json:"notify_on_resolve"`
	HeartbeatThresholdMinutes    *int    `json:"heartbeat_threshold_minutes"`
	ConsecutiveFailuresThreshold *int    `json:"consecutive_failures_threshold"`
}
