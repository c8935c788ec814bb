package incident

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegrid/pulsegrid/internal/telemetry"
)

// IntentKind distinguishes the three notify intents the Incident Manager
// can emit, per §4.4/§4.5.
type IntentKind string

const (
	IntentOpen     IntentKind = "open"
	IntentReminder IntentKind = "reminder"
	IntentResolve  IntentKind = "resolve"
)

// NotifyIntent is handed off to the notify queue; pkg/notifier consumes it.
type NotifyIntent struct {
	Kind       IntentKind
	IncidentID uuid.UUID
	Subject    Subject
}

// Emitter hands a NotifyIntent to the scheduler/worker runtime's notify
// queue. internal/queue provides the concrete implementation.
type Emitter interface {
	EmitNotify(ctx context.Context, intent NotifyIntent) error
}

// Manager implements the Incident Manager: open/resolve with the
// single-OPEN-per-subject invariant, emitting notify intents.
type Manager struct {
	store   *Store
	emitter Emitter
	logger  *slog.Logger
}

// NewManager creates an Incident Manager backed by the given pool. emitter
// may be nil at construction time and supplied later via SetEmitter, since
// the scheduler/worker runtime that implements Emitter is itself built from
// this Manager — see internal/app's two-phase wiring.
func NewManager(pool *pgxpool.Pool, emitter Emitter, logger *slog.Logger) *Manager {
	return &Manager{store: NewStore(pool), emitter: emitter, logger: logger}
}

// SetEmitter assigns the Emitter a Manager built with a nil emitter will
// hand NotifyIntents to.
func (m *Manager) SetEmitter(emitter Emitter) {
	m.emitter = emitter
}

// Open handles an open_incident(subject) intent per §4.4: first-open emits
// IntentOpen, a conflicting re-open (already OPEN) emits IntentReminder.
func (m *Manager) Open(ctx context.Context, subject Subject) (OpenOutcome, error) {
	outcome, err := m.store.Open(ctx, subject)
	if err != nil {
		return OpenOutcome{}, fmt.Errorf("opening incident: %w", err)
	}

	kind := IntentOpen
	if outcome.AlreadyOpen {
		kind = IntentReminder
	} else {
		telemetry.IncidentsOpenedTotal.WithLabelValues(subject.kindLabel()).Inc()
	}

	if err := m.emitter.EmitNotify(ctx, NotifyIntent{Kind: kind, IncidentID: outcome.Incident.ID, Subject: subject}); err != nil {
		m.logger.Error("emitting notify intent", "error", err, "incident_id", outcome.Incident.ID, "kind", kind)
	}

	return outcome, nil
}

// Resolve handles a resolve_incident(subject) intent per §4.4. notifyOnResolve
// comes from the client's ClientSettings.
func (m *Manager) Resolve(ctx context.Context, subject Subject, notifyOnResolve bool) (ResolveOutcome, error) {
	outcome, err := m.store.Resolve(ctx, subject)
	if err != nil {
		return ResolveOutcome{}, fmt.Errorf("resolving incident: %w", err)
	}

	if outcome.Incident != nil {
		telemetry.IncidentsResolvedTotal.WithLabelValues(subject.kindLabel()).Inc()
		if notifyOnResolve {
			if err := m.emitter.EmitNotify(ctx, NotifyIntent{Kind: IntentResolve, IncidentID: outcome.Incident.ID, Subject: subject}); err != nil {
				m.logger.Error("emitting resolve notify intent", "error", err, "incident_id", outcome.Incident.ID)
			}
		}
	}

	return outcome, nil
}

// MarkNotified records that a notification was successfully delivered for
// an incident, used by the cooldown computation in pkg/notifier.
func (m *Manager) MarkNotified(ctx context.Context, id uuid.UUID) error {
	return m.store.MarkNotified(ctx, id)
}

// Get returns an incident by ID.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	return m.store.Get(ctx, id)
}

// ListByClient returns incidents for a client, optionally filtered by status.
func (m *Manager) ListByClient(ctx context.Context, clientID uuid.UUID, status *Status, params ListParams) ([]Row, int, error) {
	return m.store.ListByClient(ctx, clientID, status, params)
}
