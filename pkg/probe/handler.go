package probe

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

// Handler provides HTTP handlers for HttpTarget CRUD.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with all http-target routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
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
		h.logger.Error("listing http targets", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list http targets")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"http_targets": items,
		"count":        len(items),
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Create(r.Context(), id.ClientID, req)
	if err != nil {
		h.respondCreateError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid http target ID")
		return
	}

	resp, err := h.service.Get(r.Context(), id.ClientID, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "http target not found")
			return
		}
		h.logger.Error("getting http target", "error", err, "id", targetID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get http target")
		return
	}

	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid http target ID")
		return
	}

	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service.Update(r.Context(), id.ClientID, targetID, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "http target not found")
			return
		}
		h.respondCreateError(w, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid http target ID")
		return
	}

	if err := h.service.Delete(r.Context(), id.ClientID, targetID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "http target not found")
			return
		}
		h.logger.Error("deleting http target", "error", err, "id", targetID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to delete http target")
		return
	}

	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) respondCreateError(w http.ResponseWriter, err error) {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		httpserver.RespondConflict(w, "an http target for this url already exists", conflict.ExistingID)
	case errors.Is(err, ErrConflict):
		httpserver.RespondConflict(w, "an http target for this url already exists", uuid.Nil)
	case errors.Is(err, ErrInvalidURL), errors.Is(err, ErrInvalidMethod):
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		h.logger.Error("creating http target", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to save http target")
	}
}
