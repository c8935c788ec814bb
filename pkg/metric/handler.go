package metric

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pulsegrid/pulsegrid/internal/httpserver"
)

// Handler provides HTTP handlers for the metrics read/control API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with all metric routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleListByMachine)
	r.Patch("/{id}/alerting", h.handleSetAlerting)
	r.Patch("/{id}/pause", h.handleSetPause)
	r.Post("/{id}/thresholds/default", h.handleInstallDefaultThreshold)
	return r
}

func (h *Handler) handleListByMachine(w http.ResponseWriter, r *http.Request) {
	machineID, err := uuid.Parse(r.URL.Query().Get("machine_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "machine_id query parameter is required")
		return
	}

	items, err := h.service.ListByMachine(r.Context(), machineID)
	if err != nil {
		h.logger.Error("listing metrics", "error", err, "machine_id", machineID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to list metrics")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"metrics": items,
		"count":   len(items),
	})
}

type toggleRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *Handler) handleSetAlerting(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid metric instance ID")
		return
	}

	var req toggleRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SetAlertEnabled(r.Context(), id, *req.Enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "metric instance not found")
			return
		}
		h.logger.Error("setting alert_enabled", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update metric")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]bool{"alert_enabled": *req.Enabled})
}

func (h *Handler) handleSetPause(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid metric instance ID")
		return
	}

	var req toggleRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SetPaused(r.Context(), id, *req.Enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "metric instance not found")
			return
		}
		h.logger.Error("setting paused", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to update metric")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]bool{"paused": *req.Enabled})
}

func (h *Handler) handleInstallDefaultThreshold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid metric instance ID")
		return
	}

	var raw struct {
		Comparison Comparison      `json:"comparison" validate:"required"`
		Value      json.RawMessage `json:"value" validate:"required"`
		Severity   Severity        `json:"severity" validate:"required"`
	}
	if !httpserver.DecodeAndValidate(w, r, &raw) {
		return
	}

	var value any
	if err := json.Unmarshal(raw.Value, &value); err != nil {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "validation_error", "invalid threshold value")
		return
	}

	row, err := h.service.InstallDefaultThreshold(r.Context(), id, ThresholdRequest{
		Comparison: raw.Comparison,
		Value:      value,
		Severity:   raw.Severity,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "metric instance not found")
			return
		}
		h.logger.Warn("installing default threshold", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	httpserver.Respond(w, http.StatusCreated, row.ToResponse())
}
