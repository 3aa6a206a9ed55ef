package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seunghun2/daedaesonson/internal/facility"
	"github.com/seunghun2/daedaesonson/internal/observability"
)

// FacilityHandler serves the facility registry.
type FacilityHandler struct {
	logger   *observability.Logger
	registry *facility.Registry
}

// NewFacilityHandler creates a new facility handler. A nil registry serves
// empty results.
func NewFacilityHandler(logger *observability.Logger, registry *facility.Registry) *FacilityHandler {
	return &FacilityHandler{logger: logger, registry: registry}
}

// FacilityDTO is one registry entry with its resolved institution type.
type FacilityDTO struct {
	facility.Facility
	ResolvedInstitution string `json:"resolvedInstitution"`
}

// Search handles GET /facilities?q=.
func (h *FacilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	found := h.registry.Search(r.URL.Query().Get("q"))
	out := make([]FacilityDTO, 0, len(found))
	for _, f := range found {
		out = append(out, h.dto(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"facilities": out, "total": len(out)})
}

// Get handles GET /facilities/{facilityId}.
func (h *FacilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.registry.Get(chi.URLParam(r, "facilityId"))
	if errors.Is(err, facility.ErrNotFound) {
		writeError(w, http.StatusNotFound, "facility not found", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.dto(f))
}

func (h *FacilityHandler) dto(f facility.Facility) FacilityDTO {
	return FacilityDTO{
		Facility:            f,
		ResolvedInstitution: string(h.registry.InstitutionType(f.ID, f.Name)),
	}
}
