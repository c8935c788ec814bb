// Package authctx authenticates agents and operators via the ApiKey
// entity and carries the resolved Identity through the request context.
//
// Session-based operator login is an external collaborator (see the
// out-of-scope list); every caller that reaches this service presents an
// X-API-Key header, agent and operator alike. The difference between the
// two is whether the key is bound to a single machine.
package authctx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// MethodAPIKey identifies requests authenticated with an ApiKey.
const MethodAPIKey = "api_key"

// Identity is the resolved caller attached to the request context.
type Identity struct {
	ClientID  uuid.UUID
	APIKeyID  uuid.UUID
	MachineID *uuid.UUID // set when the key is bound to a single machine
	Method    string
}

type contextKey struct{}

// NewContext returns a context carrying the given Identity.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the Identity stored on ctx, or nil if unauthenticated.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(contextKey{}).(*Identity)
	return id
}

// FromRequest returns the Identity stored on r's context.
func FromRequest(r *http.Request) *Identity {
	return FromContext(r.Context())
}
