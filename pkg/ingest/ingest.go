// Package ingest implements the agent-facing metric ingestion pipeline:
// authentication, machine upsert, metric definition/instance resolution,
// sample append, and the evaluate-intent handoff described in spec §4.1.
package ingest

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// MachinePayload is the `machine` object in the ingest request body.
type MachinePayload struct {
	Hostname    string `json:"hostname" validate:"required"`
	OS          string `json:"os"`
	Fingerprint string `json:"fingerprint" validate:"required"`
}

// MetricPayload is one entry in the `metrics` array of the ingest request
// body. Value is decoded against Type once the definition's kind is known.
type MetricPayload struct {
	Name  string          `json:"name" validate:"required"`
	Type  metric.ValueType `json:"type" validate:"required,oneof=number bool string"`
	Value json.RawMessage `json:"value" validate:"required"`
	Unit  *string         `json:"unit,omitempty"`
}

// Request is the JSON body for POST /ingest/metrics.
type Request struct {
	SentAt  *time.Time      `json:"sent_at"`
	Machine MachinePayload  `json:"machine" validate:"required"`
	Metrics []MetricPayload `json:"metrics" validate:"required,min=1,dive"`
}

// Response is the JSON body for a successful ingest, per §4.1.
type Response struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
}

// Subject identifies a MetricInstance affected by one ingest batch, used to
// emit one evaluate intent per instance after the batch commits.
type Subject struct {
	ClientID   uuid.UUID
	InstanceID uuid.UUID
}
