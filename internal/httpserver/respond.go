// Package httpserver provides the shared HTTP plumbing used by every
// domain package: JSON responses, request validation, pagination helpers,
// and the chi-based router with health/metrics endpoints.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes a JSON error response.
func RespondError(w http.ResponseWriter, status int, err string, message string) {
	Respond(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// ConflictDetail is the body of a 409 response for an idempotent-create
// conflict: the winning row's id alongside a human-readable message, per
// §6 ("409 carries existing_id for idempotent create conflicts").
type ConflictDetail struct {
	Message    string    `json:"message"`
	ExistingID uuid.UUID `json:"existing_id"`
}

// RespondConflict writes the `{"detail": {message, existing_id}}` envelope
// §6 requires for a uniqueness-violation create conflict.
func RespondConflict(w http.ResponseWriter, message string, existingID uuid.UUID) {
	Respond(w, http.StatusConflict, map[string]ConflictDetail{
		"detail": {Message: message, ExistingID: existingID},
	})
}
