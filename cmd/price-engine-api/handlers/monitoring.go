package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seunghun2/daedaesonson/internal/monitoring"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

const defaultRunLimit = 20

// MonitoringBackend is the service surface the monitoring handlers need.
type MonitoringBackend interface {
	Runs(ctx context.Context, facilityID string, limit int) ([]storage.Run, error)
	CheckDrift(ctx context.Context) (*monitoring.DriftCheckResult, error)
}

// MonitoringHandler serves processing history and drift reports.
type MonitoringHandler struct {
	logger  *observability.Logger
	backend MonitoringBackend
}

// NewMonitoringHandler creates a new monitoring handler.
func NewMonitoringHandler(logger *observability.Logger, backend MonitoringBackend) *MonitoringHandler {
	return &MonitoringHandler{logger: logger, backend: backend}
}

// RunDTO is one processing run.
type RunDTO struct {
	ID              string    `json:"id"`
	JobID           string    `json:"jobId,omitempty"`
	Status          string    `json:"status"`
	Items           int       `json:"items"`
	Documents       int       `json:"documents"`
	FailedDocuments int       `json:"failedDocuments"`
	Warnings        []string  `json:"warnings,omitempty"`
	Error           string    `json:"error,omitempty"`
	DurationMs      int64     `json:"durationMs"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// Runs handles GET /facilities/{facilityId}/runs?limit=.
func (h *MonitoringHandler) Runs(w http.ResponseWriter, r *http.Request) {
	facilityID := chi.URLParam(r, "facilityId")

	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		limit = n
	}

	runs, err := h.backend.Runs(r.Context(), facilityID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, RunDTO{
			ID:              run.ID.String(),
			JobID:           run.JobID,
			Status:          run.Status,
			Items:           run.Items,
			Documents:       run.Documents,
			FailedDocuments: run.FailedDocuments,
			Warnings:        run.Warnings,
			Error:           run.Error,
			DurationMs:      run.Duration.Milliseconds(),
			OccurredAt:      run.OccurredAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"facilityId": facilityID, "runs": out})
}

// Drift handles GET /drift.
func (h *MonitoringHandler) Drift(w http.ResponseWriter, r *http.Request) {
	result, err := h.backend.CheckDrift(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
