// Package ingest turns price-list documents into classified line items.
package ingest

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// DefaultLineYThreshold is the vertical distance above which two fragments
// are treated as separate rows.
const DefaultLineYThreshold = 3.0

// Fragment is a piece of extracted text with an optional vertical position.
type Fragment struct {
	Text      string   `json:"text"`
	PageIndex int      `json:"page_index"`
	Y         *float64 `json:"y,omitempty"`
}

// SegmenterConfig holds segmenter configuration.
type SegmenterConfig struct {
	YThreshold float64
}

// Segmenter rebuilds logical lines from extracted fragments.
type Segmenter struct {
	yThreshold float64
}

// fusedAmountPattern finds comma-grouped amounts that may have a label
// glued onto their tail.
var fusedAmountPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:원)?`)

// NewSegmenter creates a new line segmenter.
func NewSegmenter(cfg SegmenterConfig) *Segmenter {
	if cfg.YThreshold <= 0 {
		cfg.YThreshold = DefaultLineYThreshold
	}
	return &Segmenter{yThreshold: cfg.YThreshold}
}

// Segment converts ordered fragments into logical lines. It has no side
// effects; identical input always yields identical lines.
func (s *Segmenter) Segment(docID string, fragments []Fragment) []pricing.RawLine {
	var (
		lines   []pricing.RawLine
		current strings.Builder
		curPage int
		curY    *float64
		prev    *Fragment
	)

	flush := func() {
		if current.Len() == 0 {
			return
		}
		lines = append(lines, s.splitPhysical(docID, curPage, curY, current.String())...)
		current.Reset()
		curY = nil
	}

	for i := range fragments {
		frag := &fragments[i]
		text := norm.NFC.String(frag.Text)

		if frag.Y == nil {
			// No coordinates: trust the source's own line breaks.
			flush()
			for _, l := range strings.Split(text, "\n") {
				lines = append(lines, s.splitPhysical(docID, frag.PageIndex, nil, l)...)
			}
			prev = nil
			continue
		}

		if prev != nil && (prev.PageIndex != frag.PageIndex || math.Abs(*prev.Y-*frag.Y) > s.yThreshold) {
			flush()
		}

		if current.Len() == 0 {
			curPage = frag.PageIndex
			y := *frag.Y
			curY = &y
		} else {
			current.WriteByte(' ')
		}
		current.WriteString(strings.ReplaceAll(text, "\n", " "))
		prev = frag
	}
	flush()

	return lines
}

// SegmentText splits plain text into lines using its own line breaks.
func (s *Segmenter) SegmentText(docID string, text string) []pricing.RawLine {
	return s.Segment(docID, []Fragment{{Text: text}})
}

// splitPhysical applies cell separators and fused-amount repair to one
// physical line.
func (s *Segmenter) splitPhysical(docID string, page int, y *float64, text string) []pricing.RawLine {
	var out []pricing.RawLine
	cells := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\t' || r == '|' || r == '\n' || r == '\r'
	})
	for _, cell := range cells {
		for _, piece := range splitFusedAmounts(cell) {
			piece = collapseSpaces(piece)
			if piece == "" {
				continue
			}
			out = append(out, pricing.RawLine{
				Text:        piece,
				SourceDocID: docID,
				PageIndex:   page,
				YPosition:   y,
			})
		}
	}
	return out
}

// splitFusedAmounts breaks text right after an amount that is immediately
// followed by a Hangul syllable, e.g. "570,000원개인단 1,500,000원".
func splitFusedAmounts(text string) []string {
	var parts []string
	start := 0
	for _, loc := range fusedAmountPattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 {
			before, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
			if unicode.IsDigit(before) || before == ',' || before == '.' {
				continue
			}
		}
		if loc[1] >= len(text) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[loc[1]:])
		// "1,000만원" is a single amount, not a fused label.
		if !unicode.Is(unicode.Hangul, next) || next == '만' {
			continue
		}
		parts = append(parts, text[start:loc[1]])
		start = loc[1]
	}
	return append(parts, text[start:])
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
