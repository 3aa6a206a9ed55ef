package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

// TableLister lists stored price tables.
type TableLister interface {
	ListFacilities(ctx context.Context) ([]storage.TableSummary, error)
}

// LatestRuns returns the newest run of every facility.
type LatestRuns interface {
	Latest(ctx context.Context) ([]storage.Run, error)
}

// DriftConfig holds drift detection configuration.
type DriftConfig struct {
	FreshnessThreshold time.Duration
	CheckInterval      time.Duration
}

// DriftRunner detects stale price tables and facilities whose last run failed.
type DriftRunner struct {
	logger *observability.Logger
	tables TableLister
	runs   LatestRuns
	config DriftConfig
	now    func() time.Time
}

// DriftCheckResult contains the results of a drift check.
type DriftCheckResult struct {
	CheckedAt         time.Time         `json:"checked_at"`
	Threshold         time.Duration     `json:"threshold"`
	StaleTables       []StaleTable      `json:"stale_tables"`
	FailingFacilities []FailingFacility `json:"failing_facilities"`
	TotalAlerts       int               `json:"total_alerts"`
}

// StaleTable is a price table not rebuilt within the freshness threshold.
type StaleTable struct {
	FacilityID string        `json:"facility_id"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Age        time.Duration `json:"age"`
}

// FailingFacility is a facility whose most recent run failed.
type FailingFacility struct {
	FacilityID string    `json:"facility_id"`
	Error      string    `json:"error"`
	FailedAt   time.Time `json:"failed_at"`
	JobID      string    `json:"job_id,omitempty"`
}

// NewDriftRunner creates a new drift runner.
func NewDriftRunner(logger *observability.Logger, tables TableLister, runs LatestRuns, cfg DriftConfig) *DriftRunner {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.FreshnessThreshold == 0 {
		cfg.FreshnessThreshold = 90 * 24 * time.Hour
	}
	return &DriftRunner{
		logger: logger,
		tables: tables,
		runs:   runs,
		config: cfg,
		now:    time.Now,
	}
}

// RunCheck executes one drift check.
func (d *DriftRunner) RunCheck(ctx context.Context) (*DriftCheckResult, error) {
	now := d.now()
	result := &DriftCheckResult{
		CheckedAt:         now,
		Threshold:         d.config.FreshnessThreshold,
		StaleTables:       []StaleTable{},
		FailingFacilities: []FailingFacility{},
	}

	tables, err := d.tables.ListFacilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list price tables: %w", err)
	}
	for _, t := range tables {
		age := now.Sub(t.UpdatedAt)
		if age > d.config.FreshnessThreshold {
			result.StaleTables = append(result.StaleTables, StaleTable{
				FacilityID: t.FacilityID,
				UpdatedAt:  t.UpdatedAt,
				Age:        age,
			})
		}
	}

	runs, err := d.runs.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("list latest runs: %w", err)
	}
	for _, run := range runs {
		if run.Status != storage.RunFailed {
			continue
		}
		result.FailingFacilities = append(result.FailingFacilities, FailingFacility{
			FacilityID: run.FacilityID,
			Error:      run.Error,
			FailedAt:   run.OccurredAt,
			JobID:      run.JobID,
		})
	}

	result.TotalAlerts = len(result.StaleTables) + len(result.FailingFacilities)

	event := d.logger.Info()
	if result.TotalAlerts > 0 {
		event = d.logger.Warn()
	}
	event.
		Int("tables", len(tables)).
		Int("stale_tables", len(result.StaleTables)).
		Int("failing_facilities", len(result.FailingFacilities)).
		Dur("threshold", d.config.FreshnessThreshold).
		Msg("Drift check completed")

	return result, nil
}

// Schedule runs the check every CheckInterval until ctx is done. It returns
// immediately when the interval is not positive.
func (d *DriftRunner) Schedule(ctx context.Context) {
	if d.config.CheckInterval <= 0 {
		return
	}
	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Stopping scheduled drift checks")
			return
		case <-ticker.C:
			if _, err := d.RunCheck(ctx); err != nil {
				d.logger.Error().Err(err).Msg("Scheduled drift check failed")
			}
		}
	}
}
