package service

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seunghun2/daedaesonson/internal/config"
	"github.com/seunghun2/daedaesonson/internal/ingest"
	"github.com/seunghun2/daedaesonson/internal/pricing"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

const priceText = "묘지사용료 1평형 기준 3,000,000원\n상석 2.5자 570,000원\n개인단 1,500,000원\n"

func newTestService(t *testing.T) *Service {
	t.Helper()
	return newTestServiceWith(t, nil)
}

func newTestServiceWith(t *testing.T, mutate func(*config.Config)) *Service {
	t.Helper()
	dir := t.TempDir()
	registry := filepath.Join(dir, "facilities.yaml")
	require.NoError(t, os.WriteFile(registry, []byte(`facilities:
  - id: F001
    name: 하늘공원 시립묘지
    region: 서울
`), 0o644))

	cfg := config.DefaultConfig()
	cfg.Database.SQLite.Path = ":memory:"
	cfg.Registry.Path = registry
	if mutate != nil {
		mutate(cfg)
	}

	svc, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestService_ProcessStoresTable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	res, err := svc.Process(ctx, ingest.FacilityRequest{
		FacilityID: "F001",
		Documents:  []ingest.Source{&ingest.TextSource{DocID: "price.txt", Text: priceText}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Table.ItemCount())

	stored, err := svc.Table(ctx, "F001")
	require.NoError(t, err)
	assert.Equal(t, res.Table, stored)

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "F001", tables[0].FacilityID)
}

func TestService_StructuredRowsFromStorage(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	size := 1.5
	require.NoError(t, svc.SetStructured(ctx, "F001", []pricing.LineItem{
		{Name: "매장묘", Price: 4000000, SizeValue: &size},
	}))

	res, err := svc.Process(ctx, ingest.FacilityRequest{
		FacilityID: "F001",
		Documents:  []ingest.Source{&ingest.TextSource{Text: priceText}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Structured)
	rep, ok := res.Table.Representative[pricing.SuperGroupBurial]
	require.True(t, ok)
	assert.Equal(t, int64(4000000), rep.Price)
	assert.Equal(t, pricing.SourceStructured, rep.SourceType)
}

func TestService_MissingTable(t *testing.T) {
	_, err := newTestService(t).Table(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	reqs := []ingest.FacilityRequest{
		{FacilityID: "F001", Documents: []ingest.Source{&ingest.TextSource{Text: priceText}}},
		{FacilityID: ""},
		{FacilityID: "F002", Documents: []ingest.Source{&ingest.TextSource{Text: "개인단 1,200,000원"}}},
	}

	var done int32
	res, err := svc.ProcessBatch(ctx, reqs, func(ingest.BatchItem) { atomic.AddInt32(&done, 1) })
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&done))
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	runs, err := svc.Runs(ctx, "F002", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.JobID.String(), runs[0].JobID)
	assert.Equal(t, storage.RunSucceeded, runs[0].Status)
}

func TestService_ProcessRecordsRuns(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for i := 0; i < 2; i++ {
		_, err := svc.Process(ctx, ingest.FacilityRequest{
			FacilityID: "F001",
			Documents:  []ingest.Source{&ingest.TextSource{DocID: "price.txt", Text: priceText}},
		})
		require.NoError(t, err)
	}

	runs, err := svc.Runs(ctx, "F001", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 3, runs[0].Items)
	assert.Equal(t, 1, runs[0].Documents)
	assert.Empty(t, runs[0].JobID)
	assert.False(t, runs[0].OccurredAt.Before(runs[1].OccurredAt))

	latest, err := svc.Runs(ctx, "F001", 1)
	require.NoError(t, err)
	assert.Len(t, latest, 1)

	// A rejected request never reaches the pipeline and leaves no run.
	_, err = svc.Process(ctx, ingest.FacilityRequest{})
	assert.ErrorIs(t, err, ingest.ErrMissingFacilityID)
}

func TestService_CheckDrift(t *testing.T) {
	ctx := context.Background()
	svc := newTestServiceWith(t, func(cfg *config.Config) {
		cfg.Monitoring.FreshnessThreshold = time.Nanosecond
	})

	result, err := svc.CheckDrift(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.TotalAlerts)

	_, err = svc.Process(ctx, ingest.FacilityRequest{
		FacilityID: "F001",
		Documents:  []ingest.Source{&ingest.TextSource{Text: priceText}},
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	result, err = svc.CheckDrift(ctx)
	require.NoError(t, err)
	require.Len(t, result.StaleTables, 1)
	assert.Equal(t, "F001", result.StaleTables[0].FacilityID)
	assert.Empty(t, result.FailingFacilities)
}

func TestService_PurgeCacheAndPing(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	assert.NoError(t, svc.Ping(ctx))
	_, err := svc.Process(ctx, ingest.FacilityRequest{
		FacilityID: "F001",
		Documents:  []ingest.Source{&ingest.TextSource{DocID: "price.txt", Text: priceText}},
	})
	require.NoError(t, err)

	purged, err := svc.PurgeCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Equal(t, 1, svc.Registry().Len())
}

func TestProcessorConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Extraction.MinPriceWon = 1000
	cfg.Selection.PublicTargetPyeong = 2

	pc := ProcessorConfig(cfg)
	assert.Equal(t, int64(1000), pc.MinPrice)
	assert.Equal(t, 2.0, pc.PublicTarget)
	assert.True(t, pc.TrailingDigitFix)
}
