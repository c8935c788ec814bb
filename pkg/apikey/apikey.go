// Package apikey manages the ApiKey entity: opaque bearer tokens used by
// agents (and operators) to authenticate against the ingest and read APIs.
package apikey

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the JSON body for POST /api/v1/api-keys.
type CreateRequest struct {
	Name      string     `json:"name" validate:"required"`
	MachineID *uuid.UUID `json:"machine_id,omitempty"`
}

// Response is the JSON response for a single API key (without the raw key).
type Response struct {
	ID         uuid.UUID  `json:"id"`
	ClientID   uuid.UUID  `json:"client_id"`
	Name       string     `json:"name"`
	IsActive   bool       `json:"is_active"`
	MachineID  *uuid.UUID `json:"machine_id,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateResponse includes the raw key, shown only once at creation.
type CreateResponse struct {
	Response
	RawKey string `json:"raw_key"`
}

// Row is a row from the api_keys table.
type Row struct {
	ID         uuid.UUID
	ClientID   uuid.UUID
	KeyHash    string
	Name       string
	IsActive   bool
	MachineID  *uuid.UUID
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// ToResponse converts a Row to its public Response DTO.
func (r *Row) ToResponse() Response {
	return Response{
		ID:         r.ID,
		ClientID:   r.ClientID,
		Name:       r.Name,
		IsActive:   r.IsActive,
		MachineID:  r.MachineID,
		LastUsedAt: r.LastUsedAt,
		CreatedAt:  r.CreatedAt,
	}
}
