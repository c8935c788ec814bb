// Package emailprovider sends notifier notifications over SMTP with
// STARTTLS, grounded in the submission style of a plugin mail bot: one
// message per send, dialed fresh rather than pooled, since notify volume is
// low and retries already live one layer up in pkg/notifier.
package emailprovider

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"

	"gopkg.in/mail.v2"

	"github.com/pulsegrid/pulsegrid/pkg/notifier"
)

// Config holds the SMTP submission settings for outbound email.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Provider sends notifications via SMTP using gopkg.in/mail.v2.
type Provider struct {
	cfg Config
}

func New(cfg Config) *Provider { return &Provider{cfg: cfg} }

func (p *Provider) Name() string { return "email" }

func (p *Provider) Send(ctx context.Context, n notifier.Notification) error {
	if n.Recipient == "" {
		return notifier.Permanent(fmt.Errorf("email: no recipient address configured"))
	}

	m := mail.NewMessage()
	m.SetHeader("From", p.cfg.From)
	m.SetHeader("To", n.Recipient)
	m.SetHeader("Subject", subjectFor(n))
	m.SetBody("text/plain", bodyFor(n))

	dialer := mail.NewDialer(p.cfg.Host, p.cfg.Port, p.cfg.Username, p.cfg.Password)
	if err := dialer.DialAndSend(m); err != nil {
		// A 5yz SMTP reply (mailbox unknown, relay refused) is a permanent
		// rejection of this recipient per §7; a 4yz reply is transient and
		// left to the caller's backoff.
		var protoErr *textproto.Error
		if errors.As(err, &protoErr) && protoErr.Code >= 500 && protoErr.Code < 600 {
			return notifier.Permanent(fmt.Errorf("sending email via smtp: %w", err))
		}
		return fmt.Errorf("sending email via smtp: %w", err)
	}
	return nil
}

func subjectFor(n notifier.Notification) string {
	switch n.Kind {
	case "open":
		return fmt.Sprintf("[PulseGrid] Incident opened: %s %s", n.SubjectKind, n.SubjectName)
	case "reminder":
		return fmt.Sprintf("[PulseGrid] Still firing: %s %s", n.SubjectKind, n.SubjectName)
	case "resolve":
		return fmt.Sprintf("[PulseGrid] Resolved: %s %s", n.SubjectKind, n.SubjectName)
	default:
		return fmt.Sprintf("[PulseGrid] %s: %s %s", n.Kind, n.SubjectKind, n.SubjectName)
	}
}

func bodyFor(n notifier.Notification) string {
	return fmt.Sprintf("%s\n\nSubject: %s %s\nOpened at: %s\n", subjectFor(n), n.SubjectKind, n.SubjectName, n.OpenedAt.Format("2006-01-02 15:04:05 MST"))
}
