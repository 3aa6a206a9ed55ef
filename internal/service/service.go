// Package service wires storage, caching, facility metadata and the
// extraction pipeline into the operations exposed by the CLI and the API.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seunghun2/daedaesonson/internal/cache"
	"github.com/seunghun2/daedaesonson/internal/config"
	"github.com/seunghun2/daedaesonson/internal/facility"
	"github.com/seunghun2/daedaesonson/internal/ingest"
	"github.com/seunghun2/daedaesonson/internal/monitoring"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/pricing"
	"github.com/seunghun2/daedaesonson/internal/storage"
)

// Service owns the long-lived collaborators of one process.
type Service struct {
	cfg       *config.Config
	logger    *observability.Logger
	db        *sql.DB
	repos     *storage.Repositories
	cache     cache.Client
	extracted *cache.ExtractionCache
	registry  *facility.Registry
	processor *ingest.Processor
	batch     *ingest.BatchProcessor
	audit     *monitoring.AuditLogger
	drift     *monitoring.DriftRunner
}

// ProcessorConfig maps configuration onto pipeline thresholds.
func ProcessorConfig(cfg *config.Config) ingest.ProcessorConfig {
	return ingest.ProcessorConfig{
		LineYThreshold:      cfg.Extraction.LineYThreshold,
		MinPrice:            cfg.Extraction.MinPriceWon,
		MaxPrice:            cfg.Extraction.MaxPriceWon,
		TrailingDigitFix:    cfg.Extraction.TrailingDigitFix,
		SquareMeterToPyeong: cfg.Extraction.SquareMeterToPyeong,
		PublicTarget:        cfg.Selection.PublicTargetPyeong,
		PrivateTarget:       cfg.Selection.PrivateTargetPyeong,
		DocumentTimeout:     cfg.Batch.DocumentTimeout,
	}
}

// New opens the database, applies pending migrations, connects the cache and
// loads the facility registry.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Service, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applied, err := storage.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if len(applied) > 0 {
		logger.Info().Strs("migrations", applied).Msg("Applied database migrations")
	}

	client, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect cache: %w", err)
	}

	var registry *facility.Registry
	if cfg.Registry.Path != "" {
		registry, err = facility.LoadRegistry(cfg.Registry.Path)
		if err != nil {
			db.Close()
			if client != nil {
				client.Close()
			}
			return nil, fmt.Errorf("load facility registry: %w", err)
		}
		logger.Info().Int("facilities", registry.Len()).Str("path", cfg.Registry.Path).Msg("Loaded facility registry")
	}

	return build(cfg, logger, db, client, registry), nil
}

func build(cfg *config.Config, logger *observability.Logger, db *sql.DB, client cache.Client, registry *facility.Registry) *Service {
	s := &Service{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		repos:    storage.NewRepositories(db),
		cache:    client,
		registry: registry,
	}

	opts := []ingest.ProcessorOption{ingest.WithRegistry(registry)}
	if client != nil {
		s.extracted = cache.NewExtractionCache(client, cfg.Cache.TTL)
		opts = append(opts, ingest.WithExtractionCache(s.extracted))
	}
	s.processor = ingest.NewProcessor(logger, ProcessorConfig(cfg), opts...)
	s.batch = ingest.NewBatchProcessor(s.processor, logger, cfg.Batch.MaxConcurrentFacilities)
	s.audit = monitoring.NewAuditLogger(logger, s.repos.Runs)
	s.drift = monitoring.NewDriftRunner(logger, s.repos.PriceTables, s.repos.Runs, monitoring.DriftConfig{
		FreshnessThreshold: cfg.Monitoring.FreshnessThreshold,
		CheckInterval:      cfg.Monitoring.CheckInterval,
	})
	return s
}

// Close releases the database and cache connections.
func (s *Service) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Ping checks database and cache connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// Registry returns the loaded facility registry, which may be empty.
func (s *Service) Registry() *facility.Registry {
	return s.registry
}

// Process runs the pipeline for one facility and stores the resulting table.
// Structured rows are read from storage when the request carries none.
func (s *Service) Process(ctx context.Context, req ingest.FacilityRequest) (*ingest.FacilityResult, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return nil, err
	}

	result, err := s.processor.ProcessFacility(ctx, req)
	if err == nil {
		if storeErr := s.repos.PriceTables.Replace(ctx, result.Table); storeErr != nil {
			err = fmt.Errorf("store price table: %w", storeErr)
		}
	}
	s.recordRun(ctx, req.FacilityID, result, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("facility_id", req.FacilityID).
		Int("items", result.Table.ItemCount()).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("Price table stored")
	return result, nil
}

// ProcessBatch runs many facilities through the worker pool and stores each
// successful table. onDone is called as each facility finishes processing.
func (s *Service) ProcessBatch(ctx context.Context, reqs []ingest.FacilityRequest, onDone func(ingest.BatchItem)) (*ingest.BatchResult, error) {
	for i := range reqs {
		if reqs[i].FacilityID == "" {
			continue
		}
		if err := s.prepare(ctx, &reqs[i]); err != nil {
			return nil, err
		}
	}

	res := s.batch.Process(ctx, reqs, onDone)

	for i := range res.Items {
		item := &res.Items[i]
		if item.Err != nil || item.Result == nil {
			continue
		}
		if err := s.repos.PriceTables.Replace(ctx, item.Result.Table); err != nil {
			item.Err = fmt.Errorf("store price table: %w", err)
			res.Succeeded--
			res.Failed++
		}
	}
	if err := s.audit.LogBatch(ctx, res); err != nil {
		s.logger.Warn().Err(err).Str("job_id", res.JobID.String()).Msg("Failed to record batch runs")
	}
	return res, nil
}

// recordRun stores the processing attempt. Failing to record never fails
// the processing itself.
func (s *Service) recordRun(ctx context.Context, facilityID string, result *ingest.FacilityResult, err error) {
	if auditErr := s.audit.LogProcess(ctx, facilityID, result, err); auditErr != nil {
		s.logger.Warn().Err(auditErr).Str("facility_id", facilityID).Msg("Failed to record processing run")
	}
}

func (s *Service) prepare(ctx context.Context, req *ingest.FacilityRequest) error {
	if req.FacilityID == "" {
		return ingest.ErrMissingFacilityID
	}
	if req.Structured == nil {
		items, err := s.repos.StructuredItems.ListByFacility(ctx, req.FacilityID)
		if err != nil {
			return fmt.Errorf("load structured items: %w", err)
		}
		req.Structured = items
	}
	if req.FacilityName == "" {
		if f, err := s.registry.Get(req.FacilityID); err == nil {
			req.FacilityName = f.Name
		}
	}
	return nil
}

// Table returns the stored table of a facility.
func (s *Service) Table(ctx context.Context, facilityID string) (*pricing.FacilityPriceTable, error) {
	return s.repos.PriceTables.Get(ctx, facilityID)
}

// Tables lists every stored table.
func (s *Service) Tables(ctx context.Context) ([]storage.TableSummary, error) {
	return s.repos.PriceTables.ListFacilities(ctx)
}

// SetStructured replaces the operator-entered rows of a facility.
func (s *Service) SetStructured(ctx context.Context, facilityID string, items []pricing.LineItem) error {
	return s.repos.StructuredItems.Replace(ctx, facilityID, items)
}

// Structured returns the operator-entered rows of a facility.
func (s *Service) Structured(ctx context.Context, facilityID string) ([]pricing.LineItem, error) {
	return s.repos.StructuredItems.ListByFacility(ctx, facilityID)
}

// Runs returns the processing history of a facility, newest first.
func (s *Service) Runs(ctx context.Context, facilityID string, limit int) ([]storage.Run, error) {
	return s.repos.Runs.ListByFacility(ctx, facilityID, limit)
}

// CheckDrift reports stale price tables and facilities whose last run failed.
func (s *Service) CheckDrift(ctx context.Context) (*monitoring.DriftCheckResult, error) {
	return s.drift.RunCheck(ctx)
}

// ScheduleDriftChecks runs the drift check periodically until ctx is done.
func (s *Service) ScheduleDriftChecks(ctx context.Context) {
	s.drift.Schedule(ctx)
}

// PurgeCache drops every cached document extraction and reports how many
// entries were removed.
func (s *Service) PurgeCache(ctx context.Context) (int, error) {
	if s.extracted == nil {
		return 0, nil
	}
	return s.extracted.Purge(ctx)
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}
