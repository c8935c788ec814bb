package queue

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EvaluateTask asks the evaluate worker pool to re-evaluate one
// MetricInstance against its Threshold, per §4.3.
type EvaluateTask struct {
	ClientID         uuid.UUID `json:"client_id"`
	MetricInstanceID uuid.UUID `json:"metric_instance_id"`
}

// NotifyTask mirrors incident.NotifyIntent on the wire; the notify worker
// pool decodes it back into one for pkg/notifier to dispatch.
type NotifyTask struct {
	Kind             string     `json:"kind"`
	IncidentID       uuid.UUID  `json:"incident_id"`
	ClientID         uuid.UUID  `json:"client_id"`
	HTTPTargetID     *uuid.UUID `json:"http_target_id,omitempty"`
	MetricInstanceID *uuid.UUID `json:"metric_instance_id,omitempty"`
}

// HeartbeatTask asks the heartbeat worker pool to evaluate one machine's
// liveness, per §4.6.
type HeartbeatTask struct {
	ClientID  uuid.UUID `json:"client_id"`
	MachineID uuid.UUID `json:"machine_id"`
	Stale     bool      `json:"stale"`
}

// OutboxEvent mirrors one row of the outbox_events table for the outbox
// worker pool's drain loop.
type OutboxEvent struct {
	ID      uuid.UUID       `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
