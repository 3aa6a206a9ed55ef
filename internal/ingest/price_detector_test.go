package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

func TestPriceDetector_Detect(t *testing.T) {
	d := NewPriceDetector(PriceDetectorConfig{})

	tests := []struct {
		name       string
		line       string
		wantOK     bool
		wantName   string
		wantPrice  int64
		wantDetail string
	}{
		{"comma grouped with won", "개인단 1,500,000원", true, "개인단", 1500000, ""},
		{"bare comma grouped", "관리비 50,000", true, "관리비", 50000, ""},
		{"plain digits with won", "봉안당 900000원", true, "봉안당", 900000, ""},
		{"man-won multiplier", "부부단 300만원", true, "부부단", 3000000, ""},
		{"man-won with decimal", "가족단 1.5만원", true, "가족단", 15000, ""},
		{"grouped man-won", "특실 1,200만원", true, "특실", 12000000, ""},
		{"trailing qualifier", "사용료 3,000,000원 (1평형 기준)", true, "사용료", 3000000, "(1평형 기준)"},
		{"last token wins", "상석 2.5자 570,000원", true, "상석 2.5자", 570000, ""},
		{"leading size token ignored", "10㎡ 묘지사용료 3,000,000원", true, "10㎡ 묘지사용료", 3000000, ""},
		{"trailing year after marked amount", "개인단 1,500,000원 2025", true, "개인단", 1500000, "2025"},
		{"trailing count after marked amount", "개인단 1,500,000원 120", true, "개인단", 1500000, "120"},
		{"bare number without marked amount", "봉안당 2층 450000", true, "봉안당 2층", 450000, ""},
		{"separator trimmed", "관리비 : 50,000원", true, "관리비", 50000, ""},
		{"below minimum", "주차 50원", false, "", 0, ""},
		{"above ceiling", "토지 9,000,000,000원", false, "", 0, ""},
		{"no name", "1,500,000원", false, "", 0, ""},
		{"punctuation name", "- 1,500,000원", false, "", 0, ""},
		{"numeric name", "12 1,500,000원", false, "", 0, ""},
		{"no price", "개인단 안내", false, "", 0, ""},
		{"year is not a price", "2024년 가격표", false, "", 0, ""},
		{"area is not a price", "묘역 100㎡", false, "", 0, ""},
		{"pyeong is not a price", "매장묘 300평", false, "", 0, ""},
		{"phone number line", "대표전화 031-123-4567 1,000,000원", false, "", 0, ""},
		{"copyright line", "Copyright 2024 추모공원 1,000원", false, "", 0, ""},
		{"update line", "업데이트 2024.01.01 100,000", false, "", 0, ""},
		{"registration number", "사업자등록번호 123-45-67890", false, "", 0, ""},
		{"malformed grouping", "개인단 1,2345", false, "", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := d.Detect(pricing.RawLine{Text: tc.line, SourceDocID: "doc"})
			assert.Equal(t, tc.wantOK, ok)
			if !tc.wantOK {
				return
			}
			assert.Equal(t, tc.wantName, got.NamePart)
			assert.Equal(t, tc.wantPrice, got.Price)
			assert.Equal(t, tc.wantDetail, got.Detail)
			assert.Equal(t, "doc", got.RawLine.SourceDocID)
		})
	}
}

func TestPriceDetector_CustomBounds(t *testing.T) {
	d := NewPriceDetector(PriceDetectorConfig{MinPrice: 1000, MaxPrice: 10000})

	_, ok := d.Detect(pricing.RawLine{Text: "관리비 500원"})
	assert.False(t, ok)

	got, ok := d.Detect(pricing.RawLine{Text: "관리비 5,000원"})
	assert.True(t, ok)
	assert.Equal(t, int64(5000), got.Price)

	assert.True(t, d.InRange(1000))
	assert.False(t, d.InRange(10001))
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"3,000,000원", 3000000, true},
		{"300만원", 3000000, true},
		{"300 만원", 3000000, true},
		{"450000", 450000, true},
		{" 1,500,000 ", 1500000, true},
		{"별도", 0, false},
		{"약 3,000,000원", 0, false},
		{"3,000,000원 이상", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParsePrice(tc.input)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
