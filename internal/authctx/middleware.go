package authctx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Middleware authenticates every request via the X-API-Key header and
// attaches the resolved Identity to the request context. A request that
// carries no key is passed through without an Identity; a request whose key
// is invalid or disabled is rejected with 401. Pair it with RequireAuth on
// routes that need a caller, and leave it off public routes like GET /health.
func Middleware(auth *Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := auth.Authenticate(r.Context(), rawKey)
			if err != nil {
				logger.Warn("api key authentication failed", "error", err)
				respondUnauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

// RequireAuth rejects any request that did not resolve an Identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			respondUnauthorized(w, "missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
