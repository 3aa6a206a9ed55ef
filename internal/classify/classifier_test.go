package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seunghun2/daedaesonson/internal/pricing"
)

func TestClassifier_Category(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		input    string
		expected pricing.CategoryKey
	}{
		{"labor beats columbarium", "석물 작업비 봉안당 세트", pricing.CategoryBurial},
		{"stonework beats niche keyword", "상석 (봉안묘용)", pricing.CategoryBurial},
		{"stonework beats natural keyword", "비석 수목형", pricing.CategoryBurial},
		{"occupancy prefix skips stonework", "개인단 화병 포함", pricing.CategoryColumbarium},
		{"exact basic fee", "관리비", pricing.CategoryBasic},
		{"substring basic fee does not fire", "화병관리비포함", pricing.CategoryBurial},
		{"fee mention in product", "특실 관리비 별도", pricing.CategoryOther},
		{"basic fee with size prefix", "3평 묘지사용료", pricing.CategoryBasic},
		{"basic fee with basis suffix", "묘지사용료 1평형 기준", pricing.CategoryBasic},
		{"basic fee with remark", "사용료 (1평형 기준)", pricing.CategoryBasic},
		{"stonework remark on a plot", "매장묘 3평 (상석 포함)", pricing.CategoryBurial},
		{"facility fee", "시설사용료", pricing.CategoryBasic},
		{"indoor columbarium", "개인단", pricing.CategoryColumbarium},
		{"tower columbarium", "탑형 부부", pricing.CategoryColumbarium},
		{"niche grave", "부부 봉안묘", pricing.CategoryNicheGrave},
		{"natural", "수목장 개인", pricing.CategoryNatural},
		{"flat burial", "평장 부부형", pricing.CategoryNatural},
		{"relocation", "개장 유골", pricing.CategoryBurial},
		{"burial plot", "매장묘 3평", pricing.CategoryBurial},
		{"plot keyword does not steal base fee", "묘지관리비", pricing.CategoryBasic},
		{"fallback", "주차권", pricing.CategoryOther},
		{"whitespace inside keyword", "봉안 당 1기", pricing.CategoryColumbarium},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Category(tc.input))
		})
	}
}

func TestClassifier_Match_ReportsRule(t *testing.T) {
	c := New()

	category, rule := c.Match("석물 작업비 봉안당 세트")
	assert.Equal(t, pricing.CategoryBurial, category)
	assert.Equal(t, "labor", rule)

	_, rule = c.Match("매장묘 3평 (상석 포함)")
	assert.Equal(t, "burial_plot", rule)

	category, rule = c.Match("알 수 없음")
	assert.Equal(t, pricing.CategoryOther, category)
	assert.Equal(t, "fallback", rule)
}

func TestClassifier_Classify_GroupAndQualifiers(t *testing.T) {
	c := New()

	tests := []struct {
		name         string
		item         pricing.LineItem
		wantName     string
		wantCategory pricing.CategoryKey
		wantGroup    string
		wantDetail   string
		wantSize     *float64
	}{
		{
			name:         "basic fee canonical name",
			item:         pricing.LineItem{Name: "묘지사용료 1평형 기준", Price: 3000000},
			wantName:     "사용료",
			wantCategory: pricing.CategoryBasic,
			wantGroup:    "사용료",
			wantDetail:   "1평형 기준",
			wantSize:     ptr(1),
		},
		{
			name:         "stonework size token",
			item:         pricing.LineItem{Name: "상석 2.5자", Price: 570000},
			wantName:     "상석",
			wantCategory: pricing.CategoryBurial,
			wantGroup:    "상석",
			wantDetail:   "2.5자",
		},
		{
			name:         "occupancy group first",
			item:         pricing.LineItem{Name: "부부단", Price: 2000000},
			wantName:     "부부단",
			wantCategory: pricing.CategoryColumbarium,
			wantGroup:    "부부",
		},
		{
			name:         "default group is category name",
			item:         pricing.LineItem{Name: "봉안당 1기", Price: 900000},
			wantName:     "봉안당 1기",
			wantCategory: pricing.CategoryColumbarium,
			wantGroup:    "봉안당",
		},
		{
			name:         "plot keeps its size in the name",
			item:         pricing.LineItem{Name: "매장묘 3평 (1기)", Price: 4000000},
			wantName:     "매장묘 3평",
			wantCategory: pricing.CategoryBurial,
			wantGroup:    "매장묘",
			wantDetail:   "(1기)",
			wantSize:     ptr(3),
		},
		{
			name:         "accessory remark does not set the group",
			item:         pricing.LineItem{Name: "매장묘 3평 (상석 포함)", Price: 5000000},
			wantName:     "매장묘 3평",
			wantCategory: pricing.CategoryBurial,
			wantGroup:    "매장묘",
			wantDetail:   "(상석 포함)",
			wantSize:     ptr(3),
		},
		{
			name:         "occupancy remark sets the group",
			item:         pricing.LineItem{Name: "매장묘 (부부, 상석 포함)", Price: 6000000},
			wantName:     "매장묘",
			wantCategory: pricing.CategoryBurial,
			wantGroup:    "부부",
			wantDetail:   "(부부, 상석 포함)",
		},
		{
			name:         "structured category kept",
			item:         pricing.LineItem{Name: "사용료", Price: 100000, Category: pricing.CategoryBurial, SourceType: pricing.SourceStructured},
			wantName:     "사용료",
			wantCategory: pricing.CategoryBurial,
			wantGroup:    "매장묘",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.item)
			assert.Equal(t, tc.wantName, got.Name)
			assert.Equal(t, tc.wantCategory, got.Category)
			assert.Equal(t, tc.wantGroup, got.Group)
			assert.Equal(t, tc.wantDetail, got.Detail)
			if tc.wantSize != nil {
				require.NotNil(t, got.SizeValue)
				assert.InDelta(t, *tc.wantSize, *got.SizeValue, 1e-9)
				assert.Equal(t, pricing.UnitPyeong, got.SizeUnit)
			}
		})
	}
}

func TestClassifier_Classify_Idempotent(t *testing.T) {
	c := New()
	item := pricing.LineItem{Name: "사용료 (1평형 기준)", Price: 3000000, Detail: "부가세 포함"}

	once := c.Classify(item)
	twice := c.Classify(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, "(1평형 기준) 부가세 포함", once.Detail)
}

func TestClassifier_WithRules(t *testing.T) {
	c := New(WithRules([]Rule{{
		Name:     "everything",
		Category: pricing.CategoryNatural,
		Match:    func(Name) bool { return true },
	}}))
	assert.Equal(t, pricing.CategoryNatural, c.Category("관리비"))
}

func TestStripQualifiers(t *testing.T) {
	clean, removed := StripQualifiers("10평형 묘지사용료 (부가세 별도)")
	assert.Equal(t, "묘지사용료", clean)
	assert.Equal(t, []string{"(부가세 별도)", "10평형"}, removed)

	clean, removed = StripQualifiers("개인단")
	assert.Equal(t, "개인단", clean)
	assert.Empty(t, removed)
}

func ptr(v float64) *float64 { return &v }
