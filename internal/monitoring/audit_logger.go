// Package monitoring records processing runs and detects stale or failing
// facility price tables.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/seunghun2/daedaesonson/internal/ingest"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

// RunStore persists processing runs.
type RunStore interface {
	Insert(ctx context.Context, run *storage.Run) error
}

// AuditLogger writes every processing attempt to the log and the run store.
type AuditLogger struct {
	logger *observability.Logger
	store  RunStore
	now    func() time.Time
}

// NewAuditLogger creates a new audit logger. A nil store only logs.
func NewAuditLogger(logger *observability.Logger, store RunStore) *AuditLogger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AuditLogger{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

// LogRun records run, filling in its id and timestamp when unset.
func (a *AuditLogger) LogRun(ctx context.Context, run *storage.Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.OccurredAt.IsZero() {
		run.OccurredAt = a.now()
	}

	event := a.logger.Info()
	if run.Status == storage.RunFailed {
		event = a.logger.Warn().Str("error", run.Error)
	}
	event.
		Str("run_id", run.ID.String()).
		Str("job_id", run.JobID).
		Str("facility_id", run.FacilityID).
		Str("status", run.Status).
		Int("items", run.Items).
		Int("failed_documents", run.FailedDocuments).
		Dur("duration", run.Duration).
		Msg("Processing run")

	if a.store == nil {
		return nil
	}
	return a.store.Insert(ctx, run)
}

// LogProcess records the outcome of processing one facility.
func (a *AuditLogger) LogProcess(ctx context.Context, facilityID string, result *ingest.FacilityResult, err error) error {
	return a.LogRun(ctx, NewRun(facilityID, result, err))
}

// LogBatch records one run per batch item, tagged with the job id. Items
// without a facility id are skipped since they cannot be attributed.
func (a *AuditLogger) LogBatch(ctx context.Context, res *ingest.BatchResult) error {
	var errs []error
	for _, item := range res.Items {
		if item.FacilityID == "" {
			continue
		}
		run := NewRun(item.FacilityID, item.Result, item.Err)
		run.JobID = res.JobID.String()
		if err := a.LogRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewRun builds the run of one facility from a pipeline result or error.
func NewRun(facilityID string, result *ingest.FacilityResult, err error) *storage.Run {
	run := &storage.Run{
		FacilityID: facilityID,
		Status:     storage.RunSucceeded,
	}
	if result != nil {
		run.Documents = result.Report.Documents
		run.FailedDocuments = result.Report.FailedDocuments
		run.Warnings = result.Warnings
		run.Duration = result.Duration
		if result.Table != nil {
			run.Items = result.Table.ItemCount()
		}
	}
	if err != nil {
		run.Status = storage.RunFailed
		run.Error = err.Error()
	}
	return run
}
