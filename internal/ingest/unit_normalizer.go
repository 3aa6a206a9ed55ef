package ingest

import (
	"math"
	"regexp"
	"strconv"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

// SquareMeterToPyeong is the 평 per m² factor.
const SquareMeterToPyeong = 0.3025

// UnitNormalizerConfig holds unit normalizer configuration.
type UnitNormalizerConfig struct {
	SquareMeterToPyeong float64
	TrailingDigitFix    bool
}

// UnitNormalizer rewrites area units and repairs fused quantity digits.
type UnitNormalizer struct {
	factor           float64
	trailingDigitFix bool
}

var (
	squareMeterPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:㎡|m²|M²|m2|M2|제곱미터)`)
	pyeongPattern      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*평`)
)

// NewUnitNormalizer creates a new unit normalizer.
func NewUnitNormalizer(cfg UnitNormalizerConfig) *UnitNormalizer {
	if cfg.SquareMeterToPyeong <= 0 {
		cfg.SquareMeterToPyeong = SquareMeterToPyeong
	}
	return &UnitNormalizer{
		factor:           cfg.SquareMeterToPyeong,
		trailingDigitFix: cfg.TrailingDigitFix,
	}
}

// Normalize turns a candidate into an unclassified extracted line item.
func (n *UnitNormalizer) Normalize(c pricing.PriceCandidate) pricing.LineItem {
	item := pricing.LineItem{
		Name:        c.NamePart,
		Price:       c.Price,
		Detail:      c.Detail,
		SourceType:  pricing.SourceExtracted,
		SourceDocID: c.RawLine.SourceDocID,
		PageIndex:   c.RawLine.PageIndex,
	}

	name, nameChanged := n.convertArea(item.Name)
	detail, detailChanged := n.convertArea(item.Detail)
	if nameChanged || detailChanged {
		item.Name, item.Detail = name, detail
		item.Corrections = append(item.Corrections, pricing.CorrectionAreaToPyeong)
	}

	if n.trailingDigitFix {
		if fixed, ok := CorrectTrailingDigit(item.Price); ok {
			original := item.Price
			item.OriginalPrice = &original
			item.Price = fixed
			item.Corrections = append(item.Corrections, pricing.CorrectionTrailingDigit)
		}
	}

	if size, ok := ExtractPyeong(item.Name); ok {
		item.SizeValue, item.SizeUnit = &size, pricing.UnitPyeong
	} else if size, ok := ExtractPyeong(item.Detail); ok {
		item.SizeValue, item.SizeUnit = &size, pricing.UnitPyeong
	}

	return item
}

// CorrectTrailingDigit reports the corrected price when a fused quantity
// "1" sits on the end of an otherwise round price.
func CorrectTrailingDigit(price int64) (int64, bool) {
	if price%10 == 1 && price > 1000 && (price/10)%10 == 0 {
		return price / 10, true
	}
	return price, false
}

// ExtractPyeong returns the first "<number>평" value found in s.
func ExtractPyeong(s string) (float64, bool) {
	m := pyeongPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// convertArea rewrites every m² quantity in s as 평.
func (n *UnitNormalizer) convertArea(s string) (string, bool) {
	changed := false
	out := squareMeterPattern.ReplaceAllStringFunc(s, func(tok string) string {
		m := squareMeterPattern.FindStringSubmatch(tok)
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return tok
		}
		changed = true
		return FormatPyeong(ToPyeong(v, n.factor)) + pricing.UnitPyeong
	})
	return out, changed
}

// ToPyeong converts square metres to 평, rounded to one decimal.
func ToPyeong(sqm, factor float64) float64 {
	return math.Round(sqm*factor*10) / 10
}

// FormatPyeong renders a 평 value without trailing zeros.
func FormatPyeong(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
