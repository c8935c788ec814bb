// Package incident implements the Incident Manager: it enforces the
// single-open-incident-per-subject invariant and turns evaluator state
// transitions into notify intents.
package incident

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of an Incident.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Subject identifies what an Incident is about: exactly one of
// HTTPTargetID or MetricInstanceID is set, per §3.
type Subject struct {
	ClientID         uuid.UUID
	HTTPTargetID     *uuid.UUID
	MetricInstanceID *uuid.UUID
}

// Key returns a stable string key for this subject, used for single-flight
// locking and notification subject matching (§5).
func (s Subject) Key() string {
	switch {
	case s.HTTPTargetID != nil:
		return "http_target:" + s.HTTPTargetID.String()
	case s.MetricInstanceID != nil:
		return "metric_instance:" + s.MetricInstanceID.String()
	default:
		return "unknown:" + s.ClientID.String()
	}
}

// kindLabel returns the subject_kind label used for telemetry counters.
func (s Subject) kindLabel() string {
	if s.HTTPTargetID != nil {
		return "http_target"
	}
	return "metric_instance"
}

// Row is a row from the incidents table.
type Row struct {
	ID               uuid.UUID
	ClientID         uuid.UUID
	HTTPTargetID     *uuid.UUID
	MetricInstanceID *uuid.UUID
	Status           Status
	OpenedAt         time.Time
	ResolvedAt       *time.Time
	LastObservedAt   time.Time
	LastNotifiedAt   *time.Time
}

// Subject reconstructs the Subject this Row belongs to.
func (r *Row) Subject() Subject {
	return Subject{ClientID: r.ClientID, HTTPTargetID: r.HTTPTargetID, MetricInstanceID: r.MetricInstanceID}
}

// Response is the JSON representation of an Incident.
type Response struct {
	ID               uuid.UUID  `json:"id"`
	ClientID         uuid.UUID  `json:"client_id"`
	HTTPTargetID     *uuid.UUID `json:"http_target_id,omitempty"`
	MetricInstanceID *uuid.UUID `json:"metric_instance_id,omitempty"`
	Status           Status     `json:"status"`
	OpenedAt         time.Time  `json:"opened_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	LastNotifiedAt   *time.Time `json:"last_notified_at,omitempty"`
}

// ToResponse converts a Row to its public DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:               r.ID,
		ClientID:         r.ClientID,
		HTTPTargetID:     r.HTTPTargetID,
		MetricInstanceID: r.MetricInstanceID,
		Status:           r.Status,
		OpenedAt:         r.OpenedAt,
		ResolvedAt:       r.ResolvedAt,
		LastNotifiedAt:   r.LastNotifiedAt,
	}
}

// OpenOutcome reports what kind of notify intent an Open call produced.
type OpenOutcome struct {
	Incident    Row
	AlreadyOpen bool // true on conflict: re-open attempt on an existing OPEN incident
}

// ResolveOutcome reports whether a Resolve call actually resolved anything.
type ResolveOutcome struct {
	Incident *Row // nil if no OPEN incident existed for the subject
}
