// Package notifier implements the cooldown-governed dispatch engine that
// turns an Incident Manager NotifyIntent into an actual Slack/email send,
// per §4.5: per-subject single-flight, reminder cooldown resolution, and
// provider circuit breaking so a stuck downstream never backs up the queue.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Provider sends a rendered Notification through one channel (Slack,
// email, ...). A Provider returning a *PermanentError short-circuits retry.
type Provider interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Notification is the rendered payload handed to a Provider. It carries
// enough context for a provider to format its own message shape.
type Notification struct {
	Kind        string // "open", "reminder", "resolve"
	ClientID    uuid.UUID
	IncidentID  uuid.UUID
	SubjectKind string // "http_target" or "metric_instance"
	SubjectName string
	Detail      string
	OpenedAt    time.Time
	Recipient   string // Slack webhook URL or email address, per §4.5 recipient resolution
}

// PermanentError marks a provider failure that retrying will not fix (bad
// webhook URL, rejected recipient, 4xx-non-429 response).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// StubProvider logs notifications instead of sending them, for local
// development when STUB_SLACK/STUB_SMTP is set and no real credentials are
// configured.
type StubProvider struct {
	name   string
	logger *slog.Logger
}

func NewStubProvider(name string, logger *slog.Logger) *StubProvider {
	return &StubProvider{name: name, logger: logger}
}

func (p *StubProvider) Name() string { return p.name }

func (p *StubProvider) Send(_ context.Context, n Notification) error {
	p.logger.Info("stub notification send",
		"provider", p.name, "kind", n.Kind, "subject_kind", n.SubjectKind,
		"subject_name", n.SubjectName, "recipient", n.Recipient)
	return nil
}
