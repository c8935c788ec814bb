package clientsettings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pulsegrid/pulsegrid/internal/authctx"
	"github.com/pulsegrid/pulsegrid/internal/httpserver"
)

// Handler provides HTTP handlers for GET/PUT /settings.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// Routes returns a chi.Router with the settings routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleGet)
	r.Put("/", h.handleUpdate)
	return r
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	settings, err := h.store.GetOrDefault(r.Context(), id.ClientID)
	if err != nil {
		h.logger.Error("loading client settings", "error", err, "client_id", id.ClientID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to load settings")
		return
	}

	httpserver.Respond(w, http.StatusOK, settings)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	settings, err := h.store.Update(r.Context(), id.ClientID, req)
	if err != nil {
		h.logger.Error("updating client settings", "error", err, "client_id", id.ClientID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update settings")
		return
	}

	httpserver.Respond(w, http.StatusOK, settings)
}
