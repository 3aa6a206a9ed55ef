// Package export renders facility price tables for downstream consumers.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// UnitWon is the currency label on every emitted category.
const UnitWon = "원"

// Row is one emitted price row.
type Row struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
	Grade string `json:"grade"`
}

// CategoryBlock is the emitted form of one category.
type CategoryBlock struct {
	Unit     string `json:"unit"`
	Category string `json:"category"`
	Rows     []Row  `json:"rows"`
}

// Summary is the representative price summary for list and card views.
type Summary struct {
	Burial      *pricing.LineItem `json:"burial,omitempty"`
	Columbarium *pricing.LineItem `json:"columbarium,omitempty"`
	Natural     *pricing.LineItem `json:"natural,omitempty"`
}

// Block converts a category into its emitted form.
func Block(c pricing.PriceCategory) CategoryBlock {
	rows := make([]Row, 0, len(c.Items))
	for _, item := range c.Items {
		rows = append(rows, Row{Name: item.Name, Price: item.Price, Grade: item.Group})
	}
	return CategoryBlock{Unit: UnitWon, Category: c.Key.Normalized(), Rows: rows}
}

// MarshalPriceTable encodes table as an object keyed by category display
// name. Keys follow taxonomy order and empty categories are omitted, which a
// Go map cannot express, so the object is written key by key.
func MarshalPriceTable(table *pricing.FacilityPriceTable) ([]byte, error) {
	byKey := make(map[pricing.CategoryKey]pricing.PriceCategory)
	if table != nil {
		for _, c := range table.Categories {
			byKey[c.Key] = c
		}
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, key := range pricing.Categories() {
		c, ok := byKey[key]
		if !ok || len(c.Items) == 0 {
			continue
		}
		name, err := json.Marshal(key.DisplayName())
		if err != nil {
			return nil, err
		}
		block, err := json.Marshal(Block(c))
		if err != nil {
			return nil, fmt.Errorf("marshal category %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(block)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewSummary collects the representative items of table.
func NewSummary(table *pricing.FacilityPriceTable) Summary {
	var s Summary
	if table == nil {
		return s
	}
	pick := func(g pricing.SuperGroup) *pricing.LineItem {
		item, ok := table.Representative[g]
		if !ok {
			return nil
		}
		return &item
	}
	s.Burial = pick(pricing.SuperGroupBurial)
	s.Columbarium = pick(pricing.SuperGroupColumbarium)
	s.Natural = pick(pricing.SuperGroupNatural)
	return s
}

// MarshalSummary encodes the representative summary of table.
func MarshalSummary(table *pricing.FacilityPriceTable) ([]byte, error) {
	return json.Marshal(NewSummary(table))
}

// Document is the full emitted form of one facility: the category object
// alongside its representative summary.
type Document struct {
	FacilityID     string          `json:"facility_id"`
	Prices         json.RawMessage `json:"prices"`
	Representative Summary         `json:"representative"`
}

// MarshalDocument encodes table with its summary.
func MarshalDocument(table *pricing.FacilityPriceTable) ([]byte, error) {
	prices, err := MarshalPriceTable(table)
	if err != nil {
		return nil, err
	}
	doc := Document{Prices: prices, Representative: NewSummary(table)}
	if table != nil {
		doc.FacilityID = table.FacilityID
	}
	return json.Marshal(doc)
}
