package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// Sheet names of the exported workbook.
const (
	PricesSheet         = "Prices"
	RepresentativeSheet = "Representative"
)

var priceHeaders = []string{
	"Facility", "Category", "Group", "Name", "Price", "Original Price",
	"Detail", "Size (평)", "Source", "Document", "Page", "Corrections",
}

var representativeHeaders = []string{"Facility", "Family", "Category", "Name", "Price", "Size (평)"}

// Workbook builds an xlsx workbook with one row per item across tables and
// one row per representative pick.
func Workbook(tables []*pricing.FacilityPriceTable) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", PricesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(RepresentativeSheet); err != nil {
		return nil, err
	}

	writeRow(f, PricesSheet, 1, toValues(priceHeaders))
	row := 2
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Categories {
			for _, item := range c.Items {
				writeRow(f, PricesSheet, row, []any{
					t.FacilityID, c.DisplayName, item.Group, item.Name, item.Price,
					optionalInt(item.OriginalPrice), item.Detail, optionalFloat(item.SizeValue),
					string(item.SourceType), item.SourceDocID, item.PageIndex,
					strings.Join(item.Corrections, ","),
				})
				row++
			}
		}
	}

	writeRow(f, RepresentativeSheet, 1, toValues(representativeHeaders))
	row = 2
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, g := range pricing.SuperGroups() {
			item, ok := t.Representative[g]
			if !ok {
				continue
			}
			writeRow(f, RepresentativeSheet, row, []any{
				t.FacilityID, string(g), item.Category.DisplayName(), item.Name, item.Price,
				optionalFloat(item.SizeValue),
			})
			row++
		}
	}

	_ = f.SetColWidth(PricesSheet, "A", "C", 14)
	_ = f.SetColWidth(PricesSheet, "D", "D", 28)
	_ = f.SetColWidth(PricesSheet, "E", "F", 14)
	_ = f.SetColWidth(PricesSheet, "G", "G", 36)
	_ = f.SetColWidth(RepresentativeSheet, "A", "F", 16)
	return f, nil
}

// WriteWorkbook writes the workbook for tables to w.
func WriteWorkbook(w io.Writer, tables []*pricing.FacilityPriceTable) error {
	f, err := Workbook(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toValues(headers []string) []any {
	out := make([]any, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

func optionalInt(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}

func optionalFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
