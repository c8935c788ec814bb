package machine

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pulsegrid/pulsegrid/internal/authctx"
	"github.com/pulsegrid/pulsegrid/internal/httpserver"
)

// Handler provides HTTP handlers for the operator machine read API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with all machine routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Delete("/{id}", h.handleDelete)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	items, err := h.service.ListByClient(r.Context(), id.ClientID)
	if err != nil {
		h.logger.Error("listing machines", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list machines")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"machines": items,
		"count":    len(items),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	machineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid machine ID")
		return
	}

	resp, err := h.service.Get(r.Context(), machineID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "machine not found")
			return
		}
		h.logger.Error("getting machine", "error", err, "id", machineID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get machine")
		return
	}

	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	machineID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid machine ID")
		return
	}

	if err := h.service.Delete(r.Context(), machineID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "machine not found")
			return
		}
		h.logger.Error("deleting machine", "error", err, "id", machineID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete machine")
		return
	}

	httpserver.Respond(w, http.StatusNoContent, nil)
}
