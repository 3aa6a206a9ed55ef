package representative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seunghun2/daedaesonson/internal/classify"
	"github.com/seunghun2/daedaesonson/internal/pricing"
)

func plot(name string, size float64, price int64) pricing.LineItem {
	return pricing.LineItem{
		Name:      name,
		Price:     price,
		SizeValue: &size,
		SizeUnit:  pricing.UnitPyeong,
		Category:  pricing.CategoryBurial,
	}
}

func TestSelector_BurialExactTarget(t *testing.T) {
	s := NewSelector(Config{})
	items := []pricing.LineItem{
		plot("매장묘 1평", 1, 900000),
		plot("매장묘 3평", 3, 4000000),
		plot("매장묘 5평", 5, 3500000),
	}

	got := s.Select(items, pricing.InstitutionPrivate)

	require.Contains(t, got, pricing.SuperGroupBurial)
	assert.Equal(t, "매장묘 3평", got[pricing.SuperGroupBurial].Name)
}

func TestSelector_BurialLargerFallback(t *testing.T) {
	s := NewSelector(Config{})
	items := []pricing.LineItem{
		plot("매장묘 2평", 2, 500000),
		plot("매장묘 5평", 5, 3500000),
		plot("매장묘 7평", 7, 5000000),
	}

	got := s.Select(items, pricing.InstitutionPrivate)
	assert.Equal(t, "매장묘 5평", got[pricing.SuperGroupBurial].Name)
}

func TestSelector_BurialClosestSmaller(t *testing.T) {
	s := NewSelector(Config{})
	items := []pricing.LineItem{
		plot("매장묘 1평", 1, 300000),
		plot("매장묘 2평", 2, 800000),
	}

	got := s.Select(items, pricing.InstitutionPrivate)
	assert.Equal(t, "매장묘 2평", got[pricing.SuperGroupBurial].Name)
}

func TestSelector_BurialPublicTarget(t *testing.T) {
	s := NewSelector(Config{})
	items := []pricing.LineItem{
		plot("매장묘 1.5평", 1.5, 1200000),
		plot("매장묘 3평", 3, 1000000),
	}

	got := s.Select(items, pricing.InstitutionPublic)
	assert.Equal(t, "매장묘 1.5평", got[pricing.SuperGroupBurial].Name)
}

func TestSelector_BurialWithoutSizes(t *testing.T) {
	s := NewSelector(Config{})
	items := []pricing.LineItem{
		{Name: "개인묘", Price: 2000000, Category: pricing.CategoryBurial},
		{Name: "부부묘", Price: 3500000, Category: pricing.CategoryBurial},
	}

	got := s.Select(items, pricing.InstitutionPrivate)
	assert.Equal(t, "개인묘", got[pricing.SuperGroupBurial].Name)
}

func TestSelector_ExcludesBlacklistedItems(t *testing.T) {
	s := NewSelector(Config{})
	items := []pricing.LineItem{
		{Name: "상석", Price: 570000, Category: pricing.CategoryBurial, Group: "상석"},
		{Name: "작업비", Price: 200000, Category: pricing.CategoryBurial},
		{Name: "봉안당 관리비", Price: 10000, Category: pricing.CategoryColumbarium},
		{Name: "봉안당 연장", Price: 50000, Category: pricing.CategoryColumbarium},
		{Name: "개인단", Price: 1500000, Category: pricing.CategoryColumbarium},
	}

	got := s.Select(items, pricing.InstitutionPrivate)

	assert.NotContains(t, got, pricing.SuperGroupBurial)
	assert.NotContains(t, got, pricing.SuperGroupNatural)
	assert.Equal(t, "개인단", got[pricing.SuperGroupColumbarium].Name)
}

func TestSelector_PlotWithAccessoryRemarkStaysEligible(t *testing.T) {
	s := NewSelector(Config{})
	item := classify.New().Classify(pricing.LineItem{Name: "매장묘 3평 (상석 포함)", Price: 5000000})

	got := s.Select([]pricing.LineItem{item}, pricing.InstitutionPrivate)

	require.Contains(t, got, pricing.SuperGroupBurial)
	assert.Equal(t, "매장묘 3평", got[pricing.SuperGroupBurial].Name)
	assert.Equal(t, int64(5000000), got[pricing.SuperGroupBurial].Price)
}

func TestSelector_CheapestForColumbariumAndNatural(t *testing.T) {
	s := NewSelector(Config{})
	items := []pricing.LineItem{
		{Name: "부부단", Price: 2500000, Category: pricing.CategoryColumbarium},
		{Name: "부부 봉안묘", Price: 1800000, Category: pricing.CategoryNicheGrave},
		{Name: "수목장 부부", Price: 2000000, Category: pricing.CategoryNatural},
		{Name: "수목장 개인", Price: 1000000, Category: pricing.CategoryNatural},
		{Name: "사용료", Price: 100, Category: pricing.CategoryBasic},
	}

	got := s.Select(items, pricing.InstitutionPrivate)

	require.Len(t, got, 2)
	assert.Equal(t, "부부 봉안묘", got[pricing.SuperGroupColumbarium].Name)
	assert.Equal(t, "수목장 개인", got[pricing.SuperGroupNatural].Name)
}

func TestSelector_Target(t *testing.T) {
	s := NewSelector(Config{PublicTarget: 2, PrivateTarget: 4})
	assert.Equal(t, 2.0, s.Target(pricing.InstitutionPublic))
	assert.Equal(t, 4.0, s.Target(pricing.InstitutionPrivate))
	assert.Equal(t, 4.0, s.Target(pricing.InstitutionUnknown))
}
