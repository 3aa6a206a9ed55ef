// Package pricing holds the price-schedule domain model shared by every
// stage of the extraction pipeline.
package pricing

import (
	"fmt"

	"github.com/google/uuid"
)

// SourceType identifies the channel a line item arrived through.
type SourceType string

const (
	SourceStructured SourceType = "structured"
	SourceExtracted  SourceType = "extracted"
)

// UnitPyeong is the only area unit stored on line items.
const UnitPyeong = "평"

// Correction names recorded on a LineItem when a normalization changed it.
const (
	CorrectionTrailingDigit = "trailing_digit"
	CorrectionAreaToPyeong  = "area_to_pyeong"
)

// RawLine is one logical line produced by the segmenter.
type RawLine struct {
	Text        string   `json:"text"`
	SourceDocID string   `json:"source_doc_id"`
	PageIndex   int      `json:"page_index"`
	YPosition   *float64 `json:"y_position,omitempty"`
}

// PriceCandidate is a line split into a name and a detected price.
type PriceCandidate struct {
	NamePart string  `json:"name_part"`
	Price    int64   `json:"price"`
	Detail   string  `json:"detail,omitempty"`
	RawLine  RawLine `json:"raw_line"`
}

// LineItem is the canonical priced row of a facility price table.
type LineItem struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Price         int64       `json:"price"`
	OriginalPrice *int64      `json:"original_price,omitempty"`
	Detail        string      `json:"detail,omitempty"`
	SizeValue     *float64    `json:"size_value,omitempty"`
	SizeUnit      string      `json:"size_unit,omitempty"`
	Category      CategoryKey `json:"category"`
	Group         string      `json:"group,omitempty"`
	SourceType    SourceType  `json:"source_type"`
	SourceDocID   string      `json:"source_doc_id,omitempty"`
	PageIndex     int         `json:"page_index"`
	Corrections   []string    `json:"corrections,omitempty"`
}

// HasSize reports whether a parsed area is attached to the item.
func (li LineItem) HasSize() bool {
	return li.SizeValue != nil && li.SizeUnit == UnitPyeong
}

// Corrected reports whether the named correction was applied.
func (li LineItem) Corrected(name string) bool {
	for _, c := range li.Corrections {
		if c == name {
			return true
		}
	}
	return false
}

// PriceCategory is one taxonomy bucket of a facility table.
type PriceCategory struct {
	Key         CategoryKey `json:"key"`
	DisplayName string      `json:"display_name"`
	OrderIndex  int         `json:"order_index"`
	Items       []LineItem  `json:"items"`
}

// FacilityPriceTable is the derived price schedule of one facility.
// It is rebuilt wholesale on every run and never edited in place.
type FacilityPriceTable struct {
	FacilityID     string                  `json:"facility_id"`
	Categories     []PriceCategory         `json:"categories"`
	Representative map[SuperGroup]LineItem `json:"representative"`
}

// Category returns the category with the given key, if present.
func (t *FacilityPriceTable) Category(key CategoryKey) (PriceCategory, bool) {
	for _, c := range t.Categories {
		if c.Key == key {
			return c, true
		}
	}
	return PriceCategory{}, false
}

// ItemCount returns the number of items across all categories.
func (t *FacilityPriceTable) ItemCount() int {
	n := 0
	for _, c := range t.Categories {
		n += len(c.Items)
	}
	return n
}

// itemNamespace scopes deterministic line item IDs.
var itemNamespace = uuid.MustParse("0b7c5d8e-2f4a-5c1e-9d3b-6a8f1e2c4b7d")

// ItemID derives a stable ID from the facility and the item's identity,
// so re-running the pipeline on identical input yields identical IDs.
func ItemID(facilityID string, source SourceType, position int, name string, price int64) uuid.UUID {
	data := fmt.Sprintf("%s:%s:%d:%s:%d", facilityID, source, position, name, price)
	return uuid.NewSHA1(itemNamespace, []byte(data))
}
