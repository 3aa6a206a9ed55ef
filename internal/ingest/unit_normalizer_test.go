package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

func candidate(name string, price int64, detail string) pricing.PriceCandidate {
	return pricing.PriceCandidate{
		NamePart: name,
		Price:    price,
		Detail:   detail,
		RawLine:  pricing.RawLine{Text: name, SourceDocID: "doc", PageIndex: 2},
	}
}

func TestUnitNormalizer_SquareMetersToPyeong(t *testing.T) {
	n := NewUnitNormalizer(UnitNormalizerConfig{TrailingDigitFix: true})

	item := n.Normalize(candidate("10㎡ 묘지사용료", 3000000, ""))

	assert.Equal(t, "3평 묘지사용료", item.Name)
	require.NotNil(t, item.SizeValue)
	assert.InDelta(t, 3.0, *item.SizeValue, 1e-9)
	assert.Equal(t, pricing.UnitPyeong, item.SizeUnit)
	assert.Equal(t, int64(3000000), item.Price)
	assert.True(t, item.Corrected(pricing.CorrectionAreaToPyeong))
	assert.Equal(t, pricing.SourceExtracted, item.SourceType)
	assert.Equal(t, "doc", item.SourceDocID)
	assert.Equal(t, 2, item.PageIndex)
}

func TestUnitNormalizer_AreaSpellings(t *testing.T) {
	n := NewUnitNormalizer(UnitNormalizerConfig{})

	tests := []struct {
		name string
		want string
		size float64
	}{
		{"매장묘 33m2", "매장묘 10평", 10},
		{"매장묘 5 m²", "매장묘 1.5평", 1.5},
		{"매장묘 30제곱미터", "매장묘 9.1평", 9.1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := n.Normalize(candidate(tc.name, 1000000, ""))
			assert.Equal(t, tc.want, item.Name)
			require.NotNil(t, item.SizeValue)
			assert.InDelta(t, tc.size, *item.SizeValue, 1e-9)
		})
	}
}

func TestUnitNormalizer_TrailingDigit(t *testing.T) {
	n := NewUnitNormalizer(UnitNormalizerConfig{TrailingDigitFix: true})

	fixed := n.Normalize(candidate("개인단", 3594401, ""))
	assert.Equal(t, int64(359440), fixed.Price)
	require.NotNil(t, fixed.OriginalPrice)
	assert.Equal(t, int64(3594401), *fixed.OriginalPrice)
	assert.True(t, fixed.Corrected(pricing.CorrectionTrailingDigit))

	kept := n.Normalize(candidate("개인단", 123451, ""))
	assert.Equal(t, int64(123451), kept.Price)
	assert.Nil(t, kept.OriginalPrice)
	assert.Empty(t, kept.Corrections)
}

func TestUnitNormalizer_TrailingDigitDisabled(t *testing.T) {
	n := NewUnitNormalizer(UnitNormalizerConfig{TrailingDigitFix: false})

	item := n.Normalize(candidate("개인단", 3594401, ""))
	assert.Equal(t, int64(3594401), item.Price)
	assert.Nil(t, item.OriginalPrice)
}

func TestCorrectTrailingDigit(t *testing.T) {
	tests := []struct {
		price  int64
		want   int64
		wantOK bool
	}{
		{3594401, 359440, true},
		{1001, 100, true},
		{2001, 200, true},
		{123451, 123451, false},
		{1500000, 1500000, false},
		{991, 991, false},
	}

	for _, tc := range tests {
		got, ok := CorrectTrailingDigit(tc.price)
		assert.Equal(t, tc.wantOK, ok, "price %d", tc.price)
		if ok {
			assert.Equal(t, tc.want, got)
		} else {
			assert.Equal(t, tc.price, got)
		}
	}
}

func TestUnitNormalizer_SizeFromDetail(t *testing.T) {
	n := NewUnitNormalizer(UnitNormalizerConfig{})

	item := n.Normalize(candidate("사용료", 3000000, "(1평형 기준)"))

	require.NotNil(t, item.SizeValue)
	assert.InDelta(t, 1.0, *item.SizeValue, 1e-9)
	assert.Empty(t, item.Corrections)
}
