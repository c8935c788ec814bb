// Package slackprovider sends notifier notifications to a Slack incoming
// webhook, one per-client URL resolved by the caller from ClientSettings.
package slackprovider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goslack "github.com/slack-go/slack"

	"github.com/pulsegrid/pulsegrid/pkg/notifier"
)

// Provider posts to a Slack incoming webhook URL taken from the
// notification's recipient address (resolved per-client by the caller).
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "slack" }

func (p *Provider) Send(ctx context.Context, n notifier.Notification) error {
	if n.Recipient == "" {
		return notifier.Permanent(fmt.Errorf("slack: no webhook URL configured"))
	}

	msg := &goslack.WebhookMessage{
		Text: formatText(n),
	}

	err := goslack.PostWebhookContext(ctx, n.Recipient, msg)
	if err == nil {
		return nil
	}

	// A non-429 4xx (bad webhook URL, decommissioned channel, malformed
	// payload) will never succeed on retry, per §7's PERMANENT_PROVIDER
	// path; 429 and 5xx are left transient for the caller's backoff.
	var statusErr goslack.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 && statusErr.Code != http.StatusTooManyRequests {
		return notifier.Permanent(fmt.Errorf("posting slack webhook: %w", err))
	}
	return fmt.Errorf("posting slack webhook: %w", err)
}

func formatText(n notifier.Notification) string {
	switch n.Kind {
	case "open":
		return fmt.Sprintf(":rotating_light: *Incident opened* on %s `%s`", n.SubjectKind, n.SubjectName)
	case "reminder":
		return fmt.Sprintf(":bell: *Still firing* since %s: %s `%s`", n.OpenedAt.Format("15:04 MST"), n.SubjectKind, n.SubjectName)
	case "resolve":
		return fmt.Sprintf(":white_check_mark: *Resolved* %s `%s`", n.SubjectKind, n.SubjectName)
	default:
		return fmt.Sprintf("%s: %s `%s`", n.Kind, n.SubjectKind, n.SubjectName)
	}
}
