package ingest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seunghun2/daedaesonson/internal/cache"
	"github.com/seunghun2/daedaesonson/internal/facility"
	"github.com/seunghun2/daedaesonson/internal/pricing"
)

const scenarioText = "묘지사용료 1평형 기준 3,000,000원\n상석 2.5자 570,000원\n개인단 1,500,000원\n"

func newTestProcessor(opts ...ProcessorOption) *Processor {
	return NewProcessor(nil, DefaultProcessorConfig(), opts...)
}

type rowView struct {
	Name  string
	Price int64
}

func rowsByCategory(table *pricing.FacilityPriceTable) map[pricing.CategoryKey][]rowView {
	out := make(map[pricing.CategoryKey][]rowView)
	for _, c := range table.Categories {
		for _, it := range c.Items {
			out[c.Key] = append(out[c.Key], rowView{it.Name, it.Price})
		}
	}
	return out
}

func TestProcessor_EndToEndScenario(t *testing.T) {
	p := newTestProcessor()

	res, err := p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "F001",
		Documents:  []Source{&TextSource{DocID: "price.txt", Text: scenarioText}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[pricing.CategoryKey][]rowView{
		pricing.CategoryBasic:       {{"사용료", 3000000}},
		pricing.CategoryBurial:      {{"상석", 570000}},
		pricing.CategoryColumbarium: {{"개인단", 1500000}},
	}, rowsByCategory(res.Table))

	require.Len(t, res.Table.Categories, 3)
	assert.Equal(t, pricing.CategoryBasic, res.Table.Categories[0].Key)
	assert.Equal(t, pricing.CategoryBurial, res.Table.Categories[1].Key)
	assert.Equal(t, pricing.CategoryColumbarium, res.Table.Categories[2].Key)

	assert.NotContains(t, res.Table.Representative, pricing.SuperGroupBurial)
	assert.Equal(t, "개인단", res.Table.Representative[pricing.SuperGroupColumbarium].Name)

	assert.Equal(t, 3, res.Report.Lines)
	assert.Equal(t, 3, res.Report.Candidates)
	assert.Equal(t, 0, res.Report.DroppedLines)
	assert.Equal(t, 1, res.Report.ItemsByCategory["basic"])
	assert.Empty(t, res.Warnings)
}

func TestProcessor_UnitConversionScenario(t *testing.T) {
	p := newTestProcessor()

	res, err := p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "F002",
		Documents:  []Source{&TextSource{Text: "10㎡ 묘지사용료 3,000,000원"}},
	})
	require.NoError(t, err)

	basic, ok := res.Table.Category(pricing.CategoryBasic)
	require.True(t, ok)
	require.Len(t, basic.Items, 1)
	item := basic.Items[0]
	assert.Equal(t, int64(3000000), item.Price)
	require.NotNil(t, item.SizeValue)
	assert.InDelta(t, 3.0, *item.SizeValue, 1e-9)
	assert.Equal(t, pricing.UnitPyeong, item.SizeUnit)
}

func TestProcessor_Idempotent(t *testing.T) {
	p := newTestProcessor()
	req := FacilityRequest{
		FacilityID: "F001",
		Documents: []Source{
			&TextSource{DocID: "a", Text: scenarioText},
			&FragmentSource{DocID: "b", Fragments: []Fragment{
				{Text: "매장묘 3평", Y: y(10)},
				{Text: "4,000,000원", Y: y(11)},
				{Text: "매장묘 5평 3,500,000원", Y: y(30)},
			}},
		},
		Structured: []pricing.LineItem{{Name: "사용료", Price: 3000000}},
	}

	first, err := p.ProcessFacility(context.Background(), req)
	require.NoError(t, err)
	second, err := p.ProcessFacility(context.Background(), req)
	require.NoError(t, err)

	a, err := json.Marshal(first.Table)
	require.NoError(t, err)
	b, err := json.Marshal(second.Table)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	assert.Equal(t, "매장묘 3평", first.Table.Representative[pricing.SuperGroupBurial].Name)
}

func TestProcessor_StructuredWins(t *testing.T) {
	p := newTestProcessor()

	res, err := p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "F003",
		Documents:  []Source{&TextSource{Text: "사용료 (1평형 기준) 3,000,000원"}},
		Structured: []pricing.LineItem{{Name: "사용료", Price: 3000000}},
	})
	require.NoError(t, err)

	basic, ok := res.Table.Category(pricing.CategoryBasic)
	require.True(t, ok)
	require.Len(t, basic.Items, 1)
	assert.Equal(t, pricing.SourceStructured, basic.Items[0].SourceType)
	assert.Equal(t, 1, res.Report.Duplicates)
}

func TestProcessor_DocumentFailureDegrades(t *testing.T) {
	p := newTestProcessor()

	res, err := p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "F004",
		Documents: []Source{
			&TextSource{Path: filepath.Join(t.TempDir(), "missing.txt")},
			&TextSource{DocID: "empty", Text: "   "},
		},
		Structured: []pricing.LineItem{{Name: "개인단", Price: 1500000}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Report.FailedDocuments)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, 1, res.Table.ItemCount())
}

func TestProcessor_MissingFacilityID(t *testing.T) {
	_, err := newTestProcessor().ProcessFacility(context.Background(), FacilityRequest{})
	assert.ErrorIs(t, err, ErrMissingFacilityID)
}

func TestProcessor_CandidateJSONSkipsLineStages(t *testing.T) {
	p := newTestProcessor()
	data := []byte(`{"items":[
		{"name":"부부단","price":"250만원","detail":null},
		{"name":"관리비","price":40000},
		{"name":"개인단","price":3594401},
		{"name":"상담","price":"별도"}
	]}`)

	res, err := p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "F005",
		Documents:  []Source{&CandidateSource{DocID: "llm.json", Data: data}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[pricing.CategoryKey][]rowView{
		pricing.CategoryBasic:       {{"관리비", 40000}},
		pricing.CategoryColumbarium: {{"부부단", 2500000}, {"개인단", 3594401}},
	}, rowsByCategory(res.Table))
	assert.Equal(t, 0, res.Report.Lines)
	assert.Equal(t, 3, res.Report.Candidates)
}

func TestProcessor_CandidateCategoryHintIgnored(t *testing.T) {
	p := newTestProcessor()
	data := []byte(`{"items":[
		{"name":"상석","price":570000,"category":"봉안당"},
		{"name":"관리비 포함 개인묘","price":4000000,"category":"기본비용"}
	]}`)

	res, err := p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "F006",
		Documents:  []Source{&CandidateSource{DocID: "llm.json", Data: data}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[pricing.CategoryKey][]rowView{
		pricing.CategoryBurial: {{"상석", 570000}, {"관리비 포함 개인묘", 4000000}},
	}, rowsByCategory(res.Table))
}

func TestProcessor_InstitutionFromRegistry(t *testing.T) {
	reg := facility.NewRegistry([]facility.Facility{
		{ID: "PUB", Name: "하늘공원", Institution: pricing.InstitutionPublic},
	})
	p := newTestProcessor(WithRegistry(reg))
	text := "매장묘 1.5평 1,200,000원\n매장묘 3평 1,000,000원\n"

	res, err := p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "PUB",
		Documents:  []Source{&TextSource{Text: text}},
	})
	require.NoError(t, err)
	assert.Equal(t, "매장묘 1.5평", res.Table.Representative[pricing.SuperGroupBurial].Name)

	res, err = p.ProcessFacility(context.Background(), FacilityRequest{
		FacilityID: "PRIV",
		Documents:  []Source{&TextSource{Text: text}},
	})
	require.NoError(t, err)
	assert.Equal(t, "매장묘 3평", res.Table.Representative[pricing.SuperGroupBurial].Name)
}

func TestProcessor_ExtractionCacheIsTransparent(t *testing.T) {
	client := cache.NewMemoryClient(100)
	defer client.Close()
	ec := cache.NewExtractionCache(client, time.Hour)

	cached := newTestProcessor(WithExtractionCache(ec))
	plain := newTestProcessor()
	req := FacilityRequest{
		FacilityID: "F006",
		Documents:  []Source{&TextSource{DocID: "price.txt", Text: scenarioText + "개인단 3594401\n"}},
	}

	want, err := plain.ProcessFacility(context.Background(), req)
	require.NoError(t, err)

	first, err := cached.ProcessFacility(context.Background(), req)
	require.NoError(t, err)
	second, err := cached.ProcessFacility(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 0, first.Report.CachedDocuments)
	assert.Equal(t, 1, second.Report.CachedDocuments)
	assert.Equal(t, want.Table, first.Table)
	assert.Equal(t, want.Table, second.Table)
}

func TestBuildTable_UnknownCategoryFallsBackToOther(t *testing.T) {
	table := BuildTable("F", []pricing.LineItem{
		{Name: "a", Price: 100},
		{Name: "b", Price: 200, Category: pricing.CategoryNatural},
	})

	require.Len(t, table.Categories, 2)
	assert.Equal(t, pricing.CategoryNatural, table.Categories[0].Key)
	assert.Equal(t, pricing.CategoryOther, table.Categories[1].Key)
	assert.Equal(t, 5, table.Categories[1].OrderIndex)
	assert.NotEqual(t, table.Categories[0].Items[0].ID, table.Categories[1].Items[0].ID)
}
