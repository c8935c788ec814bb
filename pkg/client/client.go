// Package client manages the Client entity, the tenant root that every
// other per-tenant entity is scoped to.
package client

import (
	"time"

	"github.com/google/uuid"
)

// CreateRequest is the JSON body for POST /clients.
type CreateRequest struct {
	Name string `json:"name" validate:"required"`
}

// Response is the JSON representation of a Client.
type Response struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Row is a row from the clients table.
type Row struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// ToResponse converts a Row to its public Response DTO.
func (r *Row) ToResponse() Response {
	return Response{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}
