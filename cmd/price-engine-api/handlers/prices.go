// Package handlers provides HTTP handlers for the price engine API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seunghun2/daedaesonson/internal/export"
	"github.com/seunghun2/daedaesonson/internal/ingest"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/pricing"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

// maxBodyBytes bounds request bodies carrying inline documents.
const maxBodyBytes = 32 << 20

// Backend is the service surface the price handlers need.
type Backend interface {
	Process(ctx context.Context, req ingest.FacilityRequest) (*ingest.FacilityResult, error)
	Table(ctx context.Context, facilityID string) (*pricing.FacilityPriceTable, error)
	Tables(ctx context.Context) ([]storage.TableSummary, error)
	SetStructured(ctx context.Context, facilityID string, items []pricing.LineItem) error
	Structured(ctx context.Context, facilityID string) ([]pricing.LineItem, error)
}

// PriceHandler handles price table requests.
type PriceHandler struct {
	logger  *observability.Logger
	backend Backend
}

// NewPriceHandler creates a new price handler.
func NewPriceHandler(logger *observability.Logger, backend Backend) *PriceHandler {
	return &PriceHandler{logger: logger, backend: backend}
}

// ProcessRequestDTO is the body of a process request. Omitting structured
// uses the facility's stored structured rows.
type ProcessRequestDTO struct {
	FacilityName string                   `json:"facilityName,omitempty"`
	Institution  string                   `json:"institution,omitempty"`
	Documents    []ingest.DocumentPayload `json:"documents"`
	Structured   []ingest.StructuredRow   `json:"structured"`
}

// ProcessResponseDTO is the result of a process request.
type ProcessResponseDTO struct {
	FacilityID     string          `json:"facilityId"`
	Prices         json.RawMessage `json:"prices"`
	Representative export.Summary  `json:"representative"`
	Report         ingest.Report   `json:"report"`
	Warnings       []string        `json:"warnings,omitempty"`
	DurationMs     int64           `json:"durationMs"`
}

// StructuredDTO is the body and response of the structured rows endpoints.
type StructuredDTO struct {
	Items []ingest.StructuredRow `json:"items"`
}

// Process handles POST /facilities/{facilityId}/process.
func (h *PriceHandler) Process(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	facilityID := chi.URLParam(r, "facilityId")

	var body ProcessRequestDTO
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(body.Documents) == 0 && body.Structured == nil {
		writeError(w, http.StatusBadRequest, "documents or structured rows are required", "")
		return
	}

	req, err := ingest.PayloadRequest(facilityID, body.FacilityName, body.Institution, body.Documents, body.Structured)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document", err.Error())
		return
	}

	result, err := h.backend.Process(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("facility_id", facilityID).Msg("Processing failed")
		writeServiceError(w, err)
		return
	}

	prices, err := export.MarshalPriceTable(result.Table)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ProcessResponseDTO{
		FacilityID:     facilityID,
		Prices:         prices,
		Representative: export.NewSummary(result.Table),
		Report:         result.Report,
		Warnings:       result.Warnings,
		DurationMs:     result.Duration.Milliseconds(),
	})
}

// Prices handles GET /facilities/{facilityId}/prices. The body is the
// category object keyed by display name.
func (h *PriceHandler) Prices(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}
	prices, err := export.MarshalPriceTable(table)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(prices)
}

// Representative handles GET /facilities/{facilityId}/representative.
func (h *PriceHandler) Representative(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, export.NewSummary(table))
}

// Tables handles GET /tables.
func (h *PriceHandler) Tables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.backend.Tables(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tables == nil {
		tables = []storage.TableSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

// GetStructured handles GET /facilities/{facilityId}/structured.
func (h *PriceHandler) GetStructured(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend.Structured(r.Context(), chi.URLParam(r, "facilityId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := StructuredDTO{Items: make([]ingest.StructuredRow, len(items))}
	for i, item := range items {
		resp.Items[i] = ingest.StructuredRowOf(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutStructured handles PUT /facilities/{facilityId}/structured. The rows
// replace the stored ones and take effect on the next process request.
func (h *PriceHandler) PutStructured(w http.ResponseWriter, r *http.Request) {
	facilityID := chi.URLParam(r, "facilityId")

	var body StructuredDTO
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	items := make([]pricing.LineItem, 0, len(body.Items))
	for i, row := range body.Items {
		if strings.TrimSpace(row.Name) == "" || row.Price <= 0 {
			writeError(w, http.StatusBadRequest, "invalid structured row", "row "+strconv.Itoa(i+1)+" needs a name and a positive price")
			return
		}
		items = append(items, row.LineItem())
	}

	if err := h.backend.SetStructured(r.Context(), facilityID, items); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facilityId": facilityID, "items": len(items)})
}

func (h *PriceHandler) table(w http.ResponseWriter, r *http.Request) (*pricing.FacilityPriceTable, bool) {
	table, err := h.backend.Table(r.Context(), chi.URLParam(r, "facilityId"))
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return table, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "price table not found", err.Error())
	case errors.Is(err, ingest.ErrMissingFacilityID), errors.Is(err, ingest.ErrUnsupportedDocument):
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
