package ingest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// Document payload kinds accepted over the network.
const (
	PayloadText       = "text"
	PayloadFragments  = "fragments"
	PayloadCandidates = "candidates"
)

// DocumentPayload is an inline document sent to the API. Text carries the
// text kind; Data carries fragment or candidate JSON.
type DocumentPayload struct {
	ID   string          `json:"id,omitempty"`
	Kind string          `json:"kind"`
	Text string          `json:"text,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Source converts the payload into a pipeline source. An empty kind is
// inferred from which field is set.
func (p DocumentPayload) Source() (Source, error) {
	kind := strings.ToLower(strings.TrimSpace(p.Kind))
	if kind == "" {
		switch {
		case p.Text != "":
			kind = PayloadText
		case looksLikeFragments(p.Data):
			kind = PayloadFragments
		case len(p.Data) > 0:
			kind = PayloadCandidates
		}
	}

	switch kind {
	case PayloadText:
		return &TextSource{DocID: p.ID, Text: p.Text}, nil
	case PayloadFragments:
		return &FragmentSource{DocID: p.ID, Data: p.Data}, nil
	case PayloadCandidates:
		return &CandidateSource{DocID: p.ID, Data: p.Data}, nil
	}
	return nil, fmt.Errorf("kind %q: %w", p.Kind, ErrUnsupportedDocument)
}

// StructuredRow is an operator-entered price row as sent to the API.
type StructuredRow struct {
	Name       string   `json:"name"`
	Price      int64    `json:"price"`
	Detail     string   `json:"detail,omitempty"`
	Category   string   `json:"category,omitempty"`
	Group      string   `json:"group,omitempty"`
	SizePyeong *float64 `json:"size_pyeong,omitempty"`
}

// LineItem converts the row into a structured-channel item.
func (r StructuredRow) LineItem() pricing.LineItem {
	item := pricing.LineItem{
		Name:       strings.TrimSpace(r.Name),
		Price:      r.Price,
		Detail:     r.Detail,
		Group:      r.Group,
		SourceType: pricing.SourceStructured,
	}
	if key, ok := pricing.ParseCategoryKey(r.Category); ok {
		item.Category = key
	}
	if r.SizePyeong != nil {
		size := *r.SizePyeong
		item.SizeValue = &size
		item.SizeUnit = pricing.UnitPyeong
	}
	return item
}

// StructuredRowOf is the inverse of StructuredRow.LineItem.
func StructuredRowOf(item pricing.LineItem) StructuredRow {
	row := StructuredRow{
		Name:     item.Name,
		Price:    item.Price,
		Detail:   item.Detail,
		Category: string(item.Category),
		Group:    item.Group,
	}
	if item.HasSize() {
		size := *item.SizeValue
		row.SizePyeong = &size
	}
	return row
}

// PayloadRequest builds a facility request from inline documents and rows.
// A document that cannot be converted is returned as an error.
func PayloadRequest(facilityID, facilityName, institution string, docs []DocumentPayload, rows []StructuredRow) (FacilityRequest, error) {
	req := FacilityRequest{
		FacilityID:   facilityID,
		FacilityName: facilityName,
		Institution:  pricing.ParseInstitutionType(institution),
	}
	for i, d := range docs {
		if d.ID == "" {
			d.ID = fmt.Sprintf("doc-%d", i+1)
		}
		src, err := d.Source()
		if err != nil {
			return FacilityRequest{}, fmt.Errorf("document %s: %w", d.ID, err)
		}
		req.Documents = append(req.Documents, src)
	}
	if rows != nil {
		req.Structured = make([]pricing.LineItem, len(rows))
		for i, r := range rows {
			req.Structured[i] = r.LineItem()
		}
	}
	return req, nil
}
