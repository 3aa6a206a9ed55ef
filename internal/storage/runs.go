package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// runTimeLayout is fixed width so occurred_at sorts as text.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded facility processing attempt.
type Run struct {
	ID              uuid.UUID     `json:"id"`
	JobID           string        `json:"job_id,omitempty"`
	FacilityID      string        `json:"facility_id"`
	Status          string        `json:"status"`
	Items           int           `json:"items"`
	Documents       int           `json:"documents"`
	FailedDocuments int           `json:"failed_documents"`
	Warnings        []string      `json:"warnings,omitempty"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

// RunRepository stores the processing history of facilities.
type RunRepository struct {
	db DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert records run.
func (r *RunRepository) Insert(ctx context.Context, run *Run) error {
	if run.FacilityID == "" {
		return fmt.Errorf("insert run: missing facility id")
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	encoded, err := json.Marshal(warnings)
	if err != nil {
		return fmt.Errorf("encode warnings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO processing_runs (
			id, job_id, facility_id, status, items, documents, failed_documents,
			warnings, error, duration_ms, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		run.ID.String(), run.JobID, run.FacilityID, run.Status, run.Items, run.Documents, run.FailedDocuments,
		string(encoded), run.Error, run.Duration.Milliseconds(), run.OccurredAt.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListByFacility returns the newest runs of a facility first. A limit of
// zero or less returns every run.
func (r *RunRepository) ListByFacility(ctx context.Context, facilityID string, limit int) ([]Run, error) {
	query := `
		SELECT id, job_id, facility_id, status, items, documents, failed_documents,
		       warnings, error, duration_ms, occurred_at
		FROM processing_runs
		WHERE facility_id = $1
		ORDER BY occurred_at DESC, id
	`
	args := []any{facilityID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// Latest returns the newest run of every facility, ordered by facility id.
func (r *RunRepository) Latest(ctx context.Context) ([]Run, error) {
	return r.query(ctx, `
		SELECT r.id, r.job_id, r.facility_id, r.status, r.items, r.documents, r.failed_documents,
		       r.warnings, r.error, r.duration_ms, r.occurred_at
		FROM processing_runs r
		WHERE r.occurred_at = (
			SELECT MAX(l.occurred_at) FROM processing_runs l WHERE l.facility_id = r.facility_id
		)
		ORDER BY r.facility_id, r.id
	`)
}

func (r *RunRepository) query(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run        Run
			rawID      string
			warnings   string
			durationMs int64
			occurredAt string
		)
		err := rows.Scan(&rawID, &run.JobID, &run.FacilityID, &run.Status, &run.Items, &run.Documents,
			&run.FailedDocuments, &warnings, &run.Error, &durationMs, &occurredAt)
		if err != nil {
			return nil, err
		}
		if run.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse run id: %w", err)
		}
		if err := json.Unmarshal([]byte(warnings), &run.Warnings); err != nil {
			return nil, fmt.Errorf("decode warnings: %w", err)
		}
		if len(run.Warnings) == 0 {
			run.Warnings = nil
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		run.OccurredAt = parseTime(occurredAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
