package client

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pulsegrid/pulsegrid/internal/httpserver"
)

// Handler provides HTTP handlers for the clients API. The routes make no
// operator/agent distinction: any authenticated ApiKey, machine-bound or
// not, can create, list and read clients.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler creates a client Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with all client routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("creating client", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to create client")
		return
	}

	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("listing clients", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list clients")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"clients": items,
		"count":   len(items),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid client ID")
		return
	}

	resp, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "client not found")
			return
		}
		h.logger.Error("getting client", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get client")
		return
	}

	httpserver.Respond(w, http.StatusOK, resp)
}
