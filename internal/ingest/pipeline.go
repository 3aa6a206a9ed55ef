package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/seunghun2/daedaesonson/internal/cache"
	"github.com/seunghun2/daedaesonson/internal/classify"
	"github.com/seunghun2/daedaesonson/internal/facility"
	"github.com/seunghun2/daedaesonson/internal/observability"
	"github.com/seunghun2/daedaesonson/internal/pricing"
	"github.com/seunghun2/daedaesonson/internal/reconcile"
	"github.com/seunghun2/daedaesonson/internal/representative"
)

// ErrMissingFacilityID is returned for requests without a facility ID.
var ErrMissingFacilityID = errors.New("facility id is required")

// ProcessorConfig holds pipeline configuration.
type ProcessorConfig struct {
	LineYThreshold      float64
	MinPrice            int64
	MaxPrice            int64
	TrailingDigitFix    bool
	SquareMeterToPyeong float64
	PublicTarget        float64
	PrivateTarget       float64
	DocumentTimeout     time.Duration
}

// DefaultProcessorConfig returns the stock thresholds.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		LineYThreshold:      DefaultLineYThreshold,
		MinPrice:            DefaultMinPrice,
		MaxPrice:            DefaultMaxPrice,
		TrailingDigitFix:    true,
		SquareMeterToPyeong: SquareMeterToPyeong,
		PublicTarget:        representative.DefaultPublicTarget,
		PrivateTarget:       representative.DefaultPrivateTarget,
	}
}

// Processor runs the extraction pipeline for one facility at a time. It is
// safe for concurrent use across facilities.
type Processor struct {
	logger     *observability.Logger
	config     ProcessorConfig
	segmenter  *Segmenter
	detector   *PriceDetector
	normalizer *UnitNormalizer
	classifier *classify.Classifier
	selector   *representative.Selector
	registry   *facility.Registry
	cache      *cache.ExtractionCache
}

// ProcessorOption configures optional collaborators.
type ProcessorOption func(*Processor)

// WithRegistry resolves institution types from facility metadata.
func WithRegistry(r *facility.Registry) ProcessorOption {
	return func(p *Processor) { p.registry = r }
}

// WithExtractionCache reuses normalized items of unchanged documents.
func WithExtractionCache(c *cache.ExtractionCache) ProcessorOption {
	return func(p *Processor) { p.cache = c }
}

// WithClassifier overrides the default rule tables.
func WithClassifier(c *classify.Classifier) ProcessorOption {
	return func(p *Processor) { p.classifier = c }
}

// NewProcessor creates a new pipeline processor.
func NewProcessor(logger *observability.Logger, cfg ProcessorConfig, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	p := &Processor{
		logger:     logger,
		config:     cfg,
		segmenter:  NewSegmenter(SegmenterConfig{YThreshold: cfg.LineYThreshold}),
		detector:   NewPriceDetector(PriceDetectorConfig{MinPrice: cfg.MinPrice, MaxPrice: cfg.MaxPrice}),
		normalizer: NewUnitNormalizer(UnitNormalizerConfig{SquareMeterToPyeong: cfg.SquareMeterToPyeong, TrailingDigitFix: cfg.TrailingDigitFix}),
		classifier: classify.New(),
		selector:   representative.NewSelector(representative.Config{PublicTarget: cfg.PublicTarget, PrivateTarget: cfg.PrivateTarget}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FacilityRequest is the input for one facility.
type FacilityRequest struct {
	FacilityID   string
	FacilityName string
	Institution  pricing.InstitutionType
	Documents    []Source
	Structured   []pricing.LineItem
}

// Report counts what happened to a facility's input.
type Report struct {
	Documents       int            `json:"documents"`
	FailedDocuments int            `json:"failed_documents"`
	CachedDocuments int            `json:"cached_documents"`
	Lines           int            `json:"lines"`
	Candidates      int            `json:"candidates"`
	DroppedLines    int            `json:"dropped_lines"`
	Corrections     int            `json:"corrections"`
	Structured      int            `json:"structured"`
	Duplicates      int            `json:"duplicates"`
	Noise           int            `json:"noise"`
	ItemsByCategory map[string]int `json:"items_by_category"`
}

// FacilityResult is the output for one facility.
type FacilityResult struct {
	Table    *pricing.FacilityPriceTable `json:"table"`
	Report   Report                      `json:"report"`
	Warnings []string                    `json:"warnings,omitempty"`
	Duration time.Duration               `json:"duration"`
}

// ProcessFacility builds the facility's price table from scratch. Document
// failures become warnings and contribute no lines; the only error is an
// invalid request.
func (p *Processor) ProcessFacility(ctx context.Context, req FacilityRequest) (*FacilityResult, error) {
	if req.FacilityID == "" {
		return nil, ErrMissingFacilityID
	}
	start := time.Now()
	log := p.logger.WithContext(ctx).WithFacility(req.FacilityID)
	result := &FacilityResult{}

	log.Debug().
		Int("documents", len(req.Documents)).
		Int("structured", len(req.Structured)).
		Msg("Processing facility")

	// Step 1: Extract items from every document
	var extracted []pricing.LineItem
	for _, src := range req.Documents {
		items, err := p.extractDocument(ctx, src, &result.Report)
		result.Report.Documents++
		if err != nil {
			result.Report.FailedDocuments++
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", src.ID(), err))
			log.Warn().Err(err).Str("document", src.ID()).Msg("Document yielded no lines")
			continue
		}
		extracted = append(extracted, items...)
	}

	// Step 2: Classify both channels
	structured := make([]pricing.LineItem, len(req.Structured))
	for i, item := range req.Structured {
		item.SourceType = pricing.SourceStructured
		structured[i] = p.classifier.Classify(item)
	}
	extracted = p.classifier.ClassifyAll(extracted)
	result.Report.Structured = len(structured)

	// Step 3: Reconcile
	merged := reconcile.Merge(structured, extracted)
	result.Report.Duplicates = merged.Duplicates
	result.Report.Noise = merged.Noise

	// Step 4: Assemble the table and pick representatives
	inst := req.Institution
	if inst == pricing.InstitutionUnknown {
		inst = p.registry.InstitutionType(req.FacilityID, p.facilityName(req))
	}
	result.Table = BuildTable(req.FacilityID, merged.Items)
	result.Table.Representative = p.selector.Select(itemsOf(result.Table), inst)

	result.Report.ItemsByCategory = make(map[string]int, len(result.Table.Categories))
	for _, c := range result.Table.Categories {
		result.Report.ItemsByCategory[c.Key.Normalized()] = len(c.Items)
	}
	result.Duration = time.Since(start)

	log.Debug().
		Int("items", result.Table.ItemCount()).
		Int("duplicates", merged.Duplicates).
		Int("representatives", len(result.Table.Representative)).
		Str("institution", string(inst)).
		Dur("duration", result.Duration).
		Msg("Facility processed")

	return result, nil
}

// extractDocument runs segmentation, detection and normalization, or
// converts candidate JSON directly.
func (p *Processor) extractDocument(ctx context.Context, src Source, report *Report) ([]pricing.LineItem, error) {
	docCtx := ctx
	if p.config.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(ctx, p.config.DocumentTimeout)
		defer cancel()
	}

	doc, err := src.Load(docCtx)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		items, err := p.cache.Get(ctx, doc.Checksum, p.fingerprint(doc))
		if err == nil {
			report.CachedDocuments++
			return withDocID(items, doc.ID), nil
		}
		if !cache.IsMiss(err) {
			p.logger.Warn().Err(err).Str("document", doc.ID).Msg("Extraction cache read failed")
		}
	}

	var items []pricing.LineItem
	if doc.IsCandidate() {
		for _, c := range doc.Candidates {
			if !p.detector.InRange(c.Price) {
				report.DroppedLines++
				continue
			}
			items = append(items, c.LineItem(doc.ID))
		}
		report.Candidates += len(items)
	} else {
		lines := p.segmenter.Segment(doc.ID, doc.Fragments)
		report.Lines += len(lines)
		for _, line := range lines {
			cand, ok := p.detector.Detect(line)
			if !ok {
				report.DroppedLines++
				continue
			}
			report.Candidates++
			item := p.normalizer.Normalize(cand)
			report.Corrections += len(item.Corrections)
			items = append(items, item)
		}
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, doc.Checksum, p.fingerprint(doc), items); err != nil {
			p.logger.Warn().Err(err).Str("document", doc.ID).Msg("Extraction cache write failed")
		}
	}
	return items, nil
}

// fingerprint identifies the settings that shape extraction output.
func (p *Processor) fingerprint(doc *Document) string {
	kind := "text"
	if doc.IsCandidate() {
		kind = "candidate"
	}
	return kind + "-" +
		strconv.FormatFloat(p.config.LineYThreshold, 'f', -1, 64) + "-" +
		strconv.FormatInt(p.config.MinPrice, 10) + "-" +
		strconv.FormatInt(p.config.MaxPrice, 10) + "-" +
		strconv.FormatBool(p.config.TrailingDigitFix) + "-" +
		strconv.FormatFloat(p.config.SquareMeterToPyeong, 'f', -1, 64)
}

func (p *Processor) facilityName(req FacilityRequest) string {
	if req.FacilityName != "" {
		return req.FacilityName
	}
	if f, err := p.registry.Get(req.FacilityID); err == nil {
		return f.Name
	}
	return ""
}

// BuildTable groups items into taxonomy order and assigns deterministic IDs.
// Empty categories are omitted.
func BuildTable(facilityID string, items []pricing.LineItem) *pricing.FacilityPriceTable {
	buckets := make(map[pricing.CategoryKey][]pricing.LineItem)
	for i, item := range items {
		if !item.Category.Valid() {
			item.Category = pricing.CategoryOther
		}
		item.ID = pricing.ItemID(facilityID, item.SourceType, i, item.Name, item.Price)
		buckets[item.Category] = append(buckets[item.Category], item)
	}

	table := &pricing.FacilityPriceTable{
		FacilityID:     facilityID,
		Representative: map[pricing.SuperGroup]pricing.LineItem{},
	}
	for _, key := range pricing.Categories() {
		list := buckets[key]
		if len(list) == 0 {
			continue
		}
		table.Categories = append(table.Categories, pricing.PriceCategory{
			Key:         key,
			DisplayName: key.DisplayName(),
			OrderIndex:  key.OrderIndex(),
			Items:       list,
		})
	}
	return table
}

func itemsOf(t *pricing.FacilityPriceTable) []pricing.LineItem {
	out := make([]pricing.LineItem, 0, t.ItemCount())
	for _, c := range t.Categories {
		out = append(out, c.Items...)
	}
	return out
}

// withDocID re-stamps cached items, which are keyed by content and may have
// been produced under another document name.
func withDocID(items []pricing.LineItem, docID string) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	for i, item := range items {
		item.SourceDocID = docID
		out[i] = item
	}
	return out
}
