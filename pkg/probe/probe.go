// Package probe manages the HttpTarget entity and the HTTP Prober that
// polls it on a schedule, per §4.2.
package probe

import (
	"time"

	"github.com/google/uuid"

	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// Row is a row from the http_targets table.
type Row struct {
	ID                  uuid.UUID
	ClientID            uuid.UUID
	Name                string
	URL                 string
	Method              string
	AcceptedStatusCodes []int32
	TimeoutMs           int
	CheckIntervalS      int
	IsActive            bool
	LastCheckAt         *time.Time
	LastStatus          *int
	LastLatencyMs       *int
	State               metric.State
	PendingSince        *time.Time
	ConsecutiveFailures int
}

// CreateRequest is the JSON body for POST /http-targets.
type CreateRequest struct {
	Name                string `json:"name" validate:"required"`
	URL                 string `json:"url" validate:"required,url"`
	Method              string `json:"method" validate:"required,oneof=GET HEAD POST"`
	AcceptedStatusCodes []int  `json:"accepted_status_codes"`
	TimeoutSeconds      int    `json:"timeout_seconds" validate:"required,gt=0"`
	CheckIntervalSeconds int   `json:"check_interval_seconds" validate:"required,gt=0"`
	IsActive            bool  `json:"is_active"`
}

// Response is the JSON representation of an HttpTarget.
type Response struct {
	ID                  uuid.UUID `json:"id"`
	ClientID            uuid.UUID `json:"client_id"`
	Name                string    `json:"name"`
	URL                 string    `json:"url"`
	Method              string    `json:"method"`
	AcceptedStatusCodes []int32   `json:"accepted_status_codes"`
	TimeoutMs           int       `json:"timeout_ms"`
	CheckIntervalS      int       `json:"check_interval_s"`
	IsActive            bool      `json:"is_active"`
	LastCheckAt         *time.Time `json:"last_check_at,omitempty"`
	LastStatus          *int      `json:"last_status,omitempty"`
	LastLatencyMs       *int      `json:"last_latency_ms,omitempty"`
	State               metric.State `json:"state"`
}

// ToResponse converts a Row to its public DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:                  r.ID,
		ClientID:            r.ClientID,
		Name:                r.Name,
		URL:                 r.URL,
		Method:              r.Method,
		AcceptedStatusCodes: r.AcceptedStatusCodes,
		TimeoutMs:           r.TimeoutMs,
		CheckIntervalS:      r.CheckIntervalS,
		IsActive:            r.IsActive,
		LastCheckAt:         r.LastCheckAt,
		LastStatus:          r.LastStatus,
		LastLatencyMs:       r.LastLatencyMs,
		State:               r.State,
	}
}

// Outcome is a probe result, per §4.2's `{client_id, http_target_id, ok,
// status, latency_ms, ts}`.
type Outcome struct {
	ClientID     uuid.UUID
	TargetID     uuid.UUID
	OK           bool
	Status       int
	LatencyMs    int
	Timestamp    time.Time
}
