package ingest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pulsegrid/pulsegrid/internal/authctx"
	"github.com/pulsegrid/pulsegrid/internal/httpserver"
	"github.com/pulsegrid/pulsegrid/internal/telemetry"
	"github.com/pulsegrid/pulsegrid/pkg/metric"
)

// Handler provides the HTTP handler for POST /ingest/metrics.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Routes returns a chi.Router with the ingest route mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/metrics", h.handleIngest)
	return r
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	id := authctx.FromRequest(r)
	if id == nil {
		telemetry.IngestBatchesTotal.WithLabelValues("auth_error").Inc()
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid X-API-Key")
		return
	}

	var req Request
	if !httpserver.DecodeAndValidate(w, r, &req) {
		telemetry.IngestBatchesTotal.WithLabelValues("validation_error").Inc()
		return
	}

	var ingestID *uuid.UUID
	if raw := r.Header.Get("X-Ingest-Id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			telemetry.IngestBatchesTotal.WithLabelValues("validation_error").Inc()
			httpserver.RespondError(w, http.StatusUnprocessableEntity, "validation_error", "X-Ingest-Id must be a UUID")
			return
		}
		ingestID = &parsed
	}

	resp, err := h.service.Ingest(r.Context(), id.ClientID, id.MachineID, ingestID, req)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}

	outcome := "accepted"
	if resp.Duplicate {
		outcome = "duplicate"
	}
	telemetry.IngestBatchesTotal.WithLabelValues(outcome).Inc()
	telemetry.IngestSamplesTotal.Add(float64(len(req.Metrics)))

	httpserver.Respond(w, http.StatusAccepted, resp)
}

func (h *Handler) respondIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrMachineMismatch):
		telemetry.IngestBatchesTotal.WithLabelValues("auth_error").Inc()
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, metric.ErrTypeMismatch):
		telemetry.IngestBatchesTotal.WithLabelValues("validation_error").Inc()
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
	default:
		telemetry.IngestBatchesTotal.WithLabelValues("error").Inc()
		h.logger.Error("ingesting metrics batch", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "failed to ingest metrics")
	}
}
