package notifier

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulsegrid/pulsegrid/internal/authctx"
	"github.com/pulsegrid/pulsegrid/internal/httpserver"
)

// validStatus reports whether s is one of notification_log's status enum
// values, per §3's ClientSettings/NotificationLog data model.
func validStatus(s string) bool {
	switch s {
	case "pending", "success", "failed":
		return true
	default:
		return false
	}
}

// Handler provides the HTTP handler for the notification log read API.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// Routes returns a chi.Router with GET /notifications mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
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

	listParams := ListParams{Limit: params.PageSize, Offset: params.Offset}

	if status := r.URL.Query().Get("status"); status != "" {
		if !validStatus(status) {
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "status must be one of pending, success, failed")
			return
		}
		listParams.Status = &status
	}

	if raw := r.URL.Query().Get("incident_id"); raw != "" {
		incidentID, err := uuid.Parse(raw)
		if err != nil {
			httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid incident_id")
			return
		}
		listParams.IncidentID = &incidentID
	}

	rows, total, err := h.store.List(r.Context(), id.ClientID, listParams)
	if err != nil {
		h.logger.Error("listing notifications", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list notifications")
		return
	}

	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewOffsetPage(items, params, total))
}
