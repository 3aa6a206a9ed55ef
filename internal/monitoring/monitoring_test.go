package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seunghun2/daedaesonson/internal/ingest"
	"github.com/seunghun2/daedaesonson/internal/pricing"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

type recordingStore struct {
	runs []storage.Run
	err  error
}

func (s *recordingStore) Insert(_ context.Context, run *storage.Run) error {
	if s.err != nil {
		return s.err
	}
	s.runs = append(s.runs, *run)
	return nil
}

func sampleResult() *ingest.FacilityResult {
	return &ingest.FacilityResult{
		Table: &pricing.FacilityPriceTable{
			FacilityID: "F001",
			Categories: []pricing.PriceCategory{
				{Key: pricing.CategoryBurial, Items: []pricing.LineItem{{Name: "매장묘"}, {Name: "평장묘"}}},
			},
		},
		Report:   ingest.Report{Documents: 3, FailedDocuments: 1},
		Warnings: []string{"scan.pdf: no content"},
		Duration: 2 * time.Second,
	}
}

func TestNewRun(t *testing.T) {
	run := NewRun("F001", sampleResult(), nil)
	assert.Equal(t, storage.RunSucceeded, run.Status)
	assert.Equal(t, 2, run.Items)
	assert.Equal(t, 3, run.Documents)
	assert.Equal(t, 1, run.FailedDocuments)
	assert.Equal(t, []string{"scan.pdf: no content"}, run.Warnings)
	assert.Equal(t, 2*time.Second, run.Duration)

	failed := NewRun("F002", nil, errors.New("store price table: disk full"))
	assert.Equal(t, storage.RunFailed, failed.Status)
	assert.Equal(t, "store price table: disk full", failed.Error)
	assert.Zero(t, failed.Items)
}

func TestAuditLogger_LogProcess(t *testing.T) {
	store := &recordingStore{}
	audit := NewAuditLogger(nil, store)
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	audit.now = func() time.Time { return fixed }

	require.NoError(t, audit.LogProcess(context.Background(), "F001", sampleResult(), nil))
	require.Len(t, store.runs, 1)
	assert.NotEqual(t, uuid.Nil, store.runs[0].ID)
	assert.Equal(t, fixed, store.runs[0].OccurredAt)

	store.err = errors.New("database is locked")
	assert.Error(t, audit.LogProcess(context.Background(), "F001", nil, errors.New("boom")))
}

func TestAuditLogger_LogBatch(t *testing.T) {
	store := &recordingStore{}
	audit := NewAuditLogger(nil, store)
	jobID := uuid.New()

	err := audit.LogBatch(context.Background(), &ingest.BatchResult{
		JobID: jobID,
		Items: []ingest.BatchItem{
			{FacilityID: "F001", Result: sampleResult()},
			{FacilityID: "", Err: ingest.ErrMissingFacilityID},
			{FacilityID: "F002", Err: errors.New("timeout")},
		},
	})
	require.NoError(t, err)
	require.Len(t, store.runs, 2)
	for _, run := range store.runs {
		assert.Equal(t, jobID.String(), run.JobID)
	}
	assert.Equal(t, storage.RunSucceeded, store.runs[0].Status)
	assert.Equal(t, storage.RunFailed, store.runs[1].Status)
}

func TestAuditLogger_NilStoreOnlyLogs(t *testing.T) {
	audit := NewAuditLogger(nil, nil)
	assert.NoError(t, audit.LogProcess(context.Background(), "F001", sampleResult(), nil))
}

type fakeTables struct {
	tables []storage.TableSummary
	err    error
}

func (f fakeTables) ListFacilities(context.Context) ([]storage.TableSummary, error) {
	return f.tables, f.err
}

type fakeRuns struct {
	runs []storage.Run
	err  error
}

func (f fakeRuns) Latest(context.Context) ([]storage.Run, error) {
	return f.runs, f.err
}

func TestDriftRunner_RunCheck(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	tables := fakeTables{tables: []storage.TableSummary{
		{FacilityID: "F001", UpdatedAt: now.Add(-100 * 24 * time.Hour)},
		{FacilityID: "F002", UpdatedAt: now.Add(-time.Hour)},
	}}
	runs := fakeRuns{runs: []storage.Run{
		{FacilityID: "F002", Status: storage.RunSucceeded},
		{FacilityID: "F003", Status: storage.RunFailed, Error: "no documents", OccurredAt: now.Add(-time.Minute), JobID: "job-7"},
	}}

	runner := NewDriftRunner(nil, tables, runs, DriftConfig{})
	runner.now = func() time.Time { return now }

	result, err := runner.RunCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, result.Threshold)
	require.Len(t, result.StaleTables, 1)
	assert.Equal(t, "F001", result.StaleTables[0].FacilityID)
	assert.Equal(t, 100*24*time.Hour, result.StaleTables[0].Age)
	require.Len(t, result.FailingFacilities, 1)
	assert.Equal(t, FailingFacility{
		FacilityID: "F003",
		Error:      "no documents",
		FailedAt:   now.Add(-time.Minute),
		JobID:      "job-7",
	}, result.FailingFacilities[0])
	assert.Equal(t, 2, result.TotalAlerts)
}

func TestDriftRunner_RunCheckClean(t *testing.T) {
	runner := NewDriftRunner(nil, fakeTables{}, fakeRuns{}, DriftConfig{FreshnessThreshold: time.Hour})

	result, err := runner.RunCheck(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, result.StaleTables)
	assert.NotNil(t, result.FailingFacilities)
	assert.Zero(t, result.TotalAlerts)
}

func TestDriftRunner_RunCheckErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewDriftRunner(nil, fakeTables{err: boom}, fakeRuns{}, DriftConfig{}).RunCheck(context.Background())
	assert.ErrorIs(t, err, boom)

	_, err = NewDriftRunner(nil, fakeTables{}, fakeRuns{err: boom}, DriftConfig{}).RunCheck(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDriftRunner_ScheduleStopsOnCancel(t *testing.T) {
	runner := NewDriftRunner(nil, fakeTables{}, fakeRuns{}, DriftConfig{CheckInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		runner.Schedule(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("schedule did not stop after cancel")
	}

	// A zero interval returns immediately.
	NewDriftRunner(nil, fakeTables{}, fakeRuns{}, DriftConfig{}).Schedule(context.Background())
}
