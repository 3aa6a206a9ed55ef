package ingest

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/seunghun2/daedaesonson/internal/cache"
)

// PDFSource reads the text layer of a PDF. Positioned glyph runs come from
// ledongthuc/pdf; when that parser fails, MuPDF plain text is used with its
// own line breaks.
type PDFSource struct {
	DocID string
	Path  string
	// RowTolerance groups glyphs into one visual row.
	RowTolerance float64
}

// ID returns the document ID.
func (s *PDFSource) ID() string { return docID(s.DocID, s.Path) }

// Load extracts positioned fragments from every page.
func (s *PDFSource) Load(ctx context.Context) (*Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}

	frags, err := s.positionedFragments(ctx)
	if err != nil || len(frags) == 0 {
		frags, err = s.plainFragments(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(frags) == 0 {
		return nil, ErrNoDocumentContent
	}

	return &Document{
		ID:        s.ID(),
		Checksum:  cache.ContentChecksum(data),
		Fragments: frags,
	}, nil
}

// positionedFragments joins glyph runs into row fragments carrying Y. The
// pdf package panics on some malformed files, so that is turned into an
// error.
func (s *PDFSource) positionedFragments(ctx context.Context) (frags []Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text layer: %v", r)
		}
	}()

	f, r, err := pdf.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	tolerance := s.RowTolerance
	if tolerance <= 0 {
		tolerance = 2.0
	}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		frags = append(frags, rowsToFragments(page.Content().Text, i-1, tolerance)...)
	}
	return frags, nil
}

// plainFragments falls back to MuPDF's text extraction, one fragment per page.
func (s *PDFSource) plainFragments(ctx context.Context) ([]Fragment, error) {
	doc, err := fitz.New(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var frags []Fragment
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("page %d text: %w", i+1, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		frags = append(frags, Fragment{Text: text, PageIndex: i})
	}
	return frags, nil
}

type glyphRow struct {
	y      float64
	glyphs []pdf.Text
}

// rowsToFragments groups glyphs by baseline, orders rows top to bottom and
// glyphs left to right, and emits one fragment per row.
func rowsToFragments(texts []pdf.Text, pageIndex int, tolerance float64) []Fragment {
	var rows []glyphRow
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" && t.S != " " {
			continue
		}
		placed := false
		for i := range rows {
			if math.Abs(rows[i].y-t.Y) < tolerance {
				rows[i].glyphs = append(rows[i].glyphs, t)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, glyphRow{y: t.Y, glyphs: []pdf.Text{t}})
		}
	}

	// PDF Y grows upwards.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	frags := make([]Fragment, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row.glyphs, func(i, j int) bool { return row.glyphs[i].X < row.glyphs[j].X })

		var b strings.Builder
		for i, g := range row.glyphs {
			if i > 0 {
				prev := row.glyphs[i-1]
				gap := g.X - (prev.X + prev.W)
				if gap > prev.FontSize*0.25 {
					b.WriteByte(' ')
				}
			}
			b.WriteString(g.S)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		// Segmenter Y grows downwards, like OCR output.
		y := -row.y
		frags = append(frags, Fragment{Text: text, PageIndex: pageIndex, Y: &y})
	}
	return frags
}
