package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/pulsegrid/pulsegrid/internal/telemetry"
	"github.com/pulsegrid/pulsegrid/pkg/clientsettings"
	"github.com/pulsegrid/pulsegrid/pkg/incident"
)

// Config holds deployment-wide notifier defaults; per-client ClientSettings
// take precedence wherever they're set (§4.5).
type Config struct {
	DefaultReminderMinutes int
	DefaultSlackWebhook    string
}

// Service implements the Notifier component of §4.5: it resolves a
// NotifyIntent into zero or more provider sends, governed by a per-subject
// single-flight lock and a reminder cooldown, with each provider wrapped in
// its own circuit breaker and bounded retry.
type Service struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	incidents *incident.Manager
	settings  *clientsettings.Store
	log       *Store
	cfg       Config
	logger    *slog.Logger

	providers map[string]Provider
	breakers  map[string]*gobreaker.CircuitBreaker[any]
}

func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// NewService wires a Notifier from its storage dependencies and the set of
// configured providers (keyed by name, e.g. "slack", "email").
func NewService(pool *pgxpool.Pool, rdb *redis.Client, incidents *incident.Manager, settings *clientsettings.Store, log *Store, providers map[string]Provider, cfg Config, logger *slog.Logger) *Service {
	breakers := make(map[string]*gobreaker.CircuitBreaker[any], len(providers))
	for name := range providers {
		breakers[name] = newBreaker(name)
	}
	return &Service{
		pool: pool, rdb: rdb, incidents: incidents, settings: settings, log: log,
		cfg: cfg, logger: logger, providers: providers, breakers: breakers,
	}
}

// Dispatch handles one NotifyIntent: single-flights on the subject, applies
// the reminder cooldown, resolves recipients from ClientSettings, and sends
// through every configured channel.
func (s *Service) Dispatch(ctx context.Context, intent incident.NotifyIntent) error {
	subject := intent.Subject
	key := subject.Key()

	acquired, err := acquireLock(ctx, s.rdb, key)
	if err != nil {
		return fmt.Errorf("acquiring notify lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("notify intent already in flight, skipping", "subject", key)
		return nil
	}
	defer releaseLock(ctx, s.rdb, key)

	settings, err := s.settings.GetOrDefault(ctx, subject.ClientID)
	if err != nil {
		return fmt.Errorf("loading client settings: %w", err)
	}

	if intent.Kind == incident.IntentReminder {
		last, err := s.log.LastSuccess(ctx, key)
		if err != nil {
			return err
		}
		interval := reminderInterval(settings.ReminderNotificationSeconds, s.cfg.DefaultReminderMinutes)
		if !cooldownElapsed(last, interval, time.Now()) {
			return nil
		}
	}

	recipients := s.recipientsFor(settings)
	if len(recipients) == 0 {
		s.logger.Debug("no notification channels configured", "client_id", subject.ClientID)
		return nil
	}

	info, err := resolveSubject(ctx, s.pool, subject)
	if err != nil {
		return err
	}

	inc, err := s.incidents.Get(ctx, intent.IncidentID)
	if err != nil {
		return fmt.Errorf("loading incident: %w", err)
	}

	notification := Notification{
		Kind:        string(intent.Kind),
		ClientID:    subject.ClientID,
		IncidentID:  intent.IncidentID,
		SubjectKind: info.kind,
		SubjectName: info.name,
		Detail:      fmt.Sprintf("%s %s", info.kind, info.name),
		OpenedAt:    inc.OpenedAt,
	}

	var anySent bool
	for _, r := range recipients {
		provider, ok := s.providers[r.provider]
		if !ok {
			continue
		}

		logRow, err := s.log.CreatePending(ctx, subject.ClientID, &intent.IncidentID, key, string(intent.Kind), r.provider, r.address)
		if err != nil {
			s.logger.Error("recording pending notification", "error", err)
			continue
		}

		n := notification
		n.Recipient = r.address
		sendErr := s.send(ctx, r.provider, provider, n)
		if sendErr != nil {
			telemetry.NotificationsSentTotal.WithLabelValues(r.provider, "failed").Inc()
			if err := s.log.MarkFailed(ctx, logRow.ID, sendErr); err != nil {
				s.logger.Error("recording failed notification", "error", err)
			}
			s.logger.Error("sending notification", "provider", r.provider, "error", sendErr)
			continue
		}

		telemetry.NotificationsSentTotal.WithLabelValues(r.provider, "success").Inc()
		if err := s.log.MarkSent(ctx, logRow.ID); err != nil {
			s.logger.Error("recording sent notification", "error", err)
		}
		anySent = true
	}

	if anySent {
		if err := s.incidents.MarkNotified(ctx, intent.IncidentID); err != nil {
			s.logger.Error("marking incident notified", "error", err)
		}
	}

	return nil
}

// send pushes one notification through a provider's circuit breaker, with a
// bounded exponential-backoff retry for transient failures inside it. A
// *PermanentError short-circuits the retry immediately.
func (s *Service) send(ctx context.Context, name string, provider Provider, n Notification) error {
	breaker := s.breakers[name]
	_, err := breaker.Execute(func() (any, error) {
		return backoff.Retry(ctx, func() (any, error) {
			sendErr := provider.Send(ctx, n)
			if sendErr == nil {
				return nil, nil
			}
			var perm *PermanentError
			if errors.As(sendErr, &perm) {
				return nil, backoff.Permanent(sendErr)
			}
			return nil, sendErr
		}, backoff.WithMaxTries(5))
	})
	return err
}

// recipientsFor resolves the configured destinations for a client, falling
// back to the deployment-wide Slack webhook when the client hasn't
// configured its own.
func (s *Service) recipientsFor(settings clientsettings.Settings) []recipient {
	var out []recipient
	switch {
	case settings.SlackWebhookURL != nil && *settings.SlackWebhookURL != "":
		out = append(out, recipient{provider: "slack", address: *settings.SlackWebhookURL})
	case s.cfg.DefaultSlackWebhook != "":
		out = append(out, recipient{provider: "slack", address: s.cfg.DefaultSlackWebhook})
	}
	if settings.NotificationEmail != nil && *settings.NotificationEmail != "" {
		out = append(out, recipient{provider: "email", address: *settings.NotificationEmail})
	}
	return out
}
