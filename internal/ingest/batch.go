package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seunghun2/daedaesonson/internal/observability"
)

// BatchProcessor fans facilities out over a bounded worker pool. Facilities
// share no mutable state, so results are independent of scheduling.
type BatchProcessor struct {
	processor  *Processor
	logger     *observability.Logger
	maxWorkers int
}

// BatchItem is the outcome for one facility in a batch.
type BatchItem struct {
	FacilityID string
	Result     *FacilityResult
	Err        error
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	JobID       uuid.UUID
	Items       []BatchItem
	Succeeded   int
	Failed      int
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(processor *Processor, logger *observability.Logger, maxWorkers int) *BatchProcessor {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &BatchProcessor{
		processor:  processor,
		logger:     logger,
		maxWorkers: maxWorkers,
	}
}

// Process runs every request and returns results in request order. The
// optional onDone callback is invoked once per finished facility, from
// worker goroutines.
func (bp *BatchProcessor) Process(ctx context.Context, reqs []FacilityRequest, onDone func(BatchItem)) *BatchResult {
	result := &BatchResult{
		JobID:     uuid.New(),
		Items:     make([]BatchItem, len(reqs)),
		StartedAt: time.Now(),
	}
	log := bp.logger.WithJob(result.JobID.String())
	log.Info().Int("facilities", len(reqs)).Int("workers", bp.maxWorkers).Msg("Starting batch")

	type workItem struct {
		index int
		req   FacilityRequest
	}

	workChan := make(chan workItem, len(reqs))
	for i, req := range reqs {
		workChan <- workItem{index: i, req: req}
	}
	close(workChan)

	var wg sync.WaitGroup
	for i := 0; i < bp.maxWorkers && i < len(reqs); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workChan {
				out := BatchItem{FacilityID: item.req.FacilityID}
				if err := ctx.Err(); err != nil {
					out.Err = err
				} else {
					out.Result, out.Err = bp.processor.ProcessFacility(ctx, item.req)
				}
				// Each worker writes a distinct index.
				result.Items[item.index] = out
				if onDone != nil {
					onDone(out)
				}
			}
		}()
	}
	wg.Wait()

	for _, item := range result.Items {
		if item.Err != nil {
			result.Failed++
			log.Error().Err(item.Err).Str("facility_id", item.FacilityID).Msg("Facility failed")
			continue
		}
		result.Succeeded++
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(result.StartedAt)

	log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Batch completed")

	return result
}
