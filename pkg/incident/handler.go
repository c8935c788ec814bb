package incident

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

// Handler provides HTTP handlers for the operator incident read API.
type Handler struct {
	logger  *slog.Logger
	manager *Manager
}

func NewHandler(logger *slog.Logger, manager *Manager) *Handler {
	return &Handler{logger: logger, manager: manager}
}

// Routes returns a chi.Router with all incident routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing authentication")
		return
	}

	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var status *Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := Status(s)
		status = &st
	}

	rows, total, err := h.manager.ListByClient(r.Context(), id.ClientID, status, ListParams{Limit: params.PageSize, Offset: params.Offset})
	if err != nil {
		h.logger.Error("listing incidents", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list incidents")
		return
	}

	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	incidentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid incident ID")
		return
	}

	row, err := h.manager.Get(r.Context(), incidentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "incident not found")
			return
		}
		h.logger.Error("getting incident", "error", err, "id", incidentID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to get incident")
		return
	}

	httpserver.Respond(w, http.StatusOK, row.ToResponse())
}
