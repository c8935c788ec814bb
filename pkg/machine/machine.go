// Package machine manages the Machine entity: a monitored host identified
// by (client_id, fingerprint).
package machine

import (
	"time"

	"github.com/google/uuid"
)

// Row is a row from the machines table.
type Row struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	Hostname     string
	OS           string
	Fingerprint  string
	IsActive     bool
	RegisteredAt time.Time
	LastSeen     *time.Time
}

// Response is the JSON representation of a Machine, including the
// clock-skew diagnostic supplemented in SPEC_FULL.md.
type Response struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     uuid.UUID  `json:"client_id"`
	Hostname     string     `json:"hostname"`
	OS           string     `json:"os"`
	Fingerprint  string     `json:"fingerprint"`
	IsActive     bool       `json:"is_active"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	ClockSkewMs  *float64   `json:"clock_skew_ms,omitempty"`
}

// ToResponse converts a Row to its public DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:           r.ID,
		ClientID:     r.ClientID,
		Hostname:     r.Hostname,
		OS:           r.OS,
		Fingerprint:  r.Fingerprint,
		IsActive:     r.IsActive,
		RegisteredAt: r.RegisteredAt,
		LastSeen:     r.LastSeen,
	}
}
