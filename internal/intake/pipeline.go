package intake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/medregs/guidance-intake/internal/metrics"
)

// SourceJob pairs a configured source with the adapter that discovers its
// candidates.
type SourceJob struct {
	Source  Source
	Adapter Adapter
}

// PipelineConfig carries the program-level constants the orchestrator needs.
type PipelineConfig struct {
	ProgramID string
	// UploadPrefix is the object-storage folder root for persisted
	// artifacts (empty disables upload).
	UploadPrefix string
	// Topic is the event topic for ingest notifications (empty disables
	// publishing).
	Topic string
}

// Pipeline drives one ingestion run: discover, normalize, fetch, decide,
// persist, clean up. Processing is sequential by design; identifier
// monotonicity and high-water correctness are easier to reason about without
// interleaving, and per-run volumes are small.
type Pipeline struct {
	store     DocumentStore
	cache     FileCache
	engine    *Engine
	alloc     *Allocator
	norm      *Normalizer
	clock     Clock
	uploader  Uploader
	publisher Publisher
	cfg       PipelineConfig
	logger    *zap.Logger
}

// NewPipeline wires the orchestrator. Uploader and publisher may be nil.
func NewPipeline(
	store DocumentStore,
	cache FileCache,
	engine *Engine,
	alloc *Allocator,
	norm *Normalizer,
	clock Clock,
	uploader Uploader,
	publisher Publisher,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:     store,
		cache:     cache,
		engine:    engine,
		alloc:     alloc,
		norm:      norm,
		clock:     clock,
		uploader:  uploader,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// sourceCounters tracks per-source outcomes for the run summary log line.
type sourceCounters struct {
	Discovered int
	Persisted  int
	Duplicate  int
	Stale      int
	Failed     int
}

// Run processes every job in order. A failure in one source never blocks the
// others, and no failure kind aborts the run.
func (p *Pipeline) Run(ctx context.Context, jobs []SourceJob) {
	for _, job := range jobs {
		if ctx.Err() != nil {
			p.logger.Warn("run canceled", zap.Error(ctx.Err()))
			return
		}
		p.runSource(ctx, job)
	}
}

func (p *Pipeline) runSource(ctx context.Context, job SourceJob) {
	src := job.Source
	log := p.logger.With(
		zap.String("source", src.Name),
		zap.String("country", src.Country),
	)

	scope, err := p.loadScope(ctx, src)
	if err != nil {
		log.Error("load scope state failed, skipping source", zap.Error(err))
		metrics.RecordSourceFailure(src.Country)
		return
	}
	p.alloc.Seed(p.cfg.ProgramID, src.Country, scope.LastDocketID)

	candidates, err := job.Adapter.Discover(ctx)
	if err != nil {
		log.Error("discovery failed, skipping source",
			zap.Error(&DiscoveryError{Source: src.Name, Err: err}))
		metrics.RecordSourceFailure(src.Country)
		return
	}

	counters := sourceCounters{Discovered: len(candidates)}
	log.Info("discovered candidates",
		zap.Int("count", len(candidates)),
		zap.String("high_water", FormatDate(scope.HighWater)),
		zap.Int64("last_docket_id", scope.LastDocketID),
	)

	for _, cand := range candidates {
		if ctx.Err() != nil {
			log.Warn("source processing canceled", zap.Error(ctx.Err()))
			return
		}
		p.processCandidate(ctx, src, scope, cand, &counters, log)
	}

	log.Info("source finished",
		zap.Int("discovered", counters.Discovered),
		zap.Int("persisted", counters.Persisted),
		zap.Int("duplicate", counters.Duplicate),
		zap.Int("stale", counters.Stale),
		zap.Int("failed", counters.Failed),
	)
}

// loadScope reads the persisted scope state once, at the start of a source's
// processing.
func (p *Pipeline) loadScope(ctx context.Context, src Source) (ScopeState, error) {
	last, ok, err := p.store.MaxDocketID(ctx, p.cfg.ProgramID, src.Country)
	if err != nil {
		return ScopeState{}, err
	}
	if !ok {
		last = src.StartingDocketID - 1
	}
	highWater, err := p.store.LatestDate(ctx, p.cfg.ProgramID, src.Country)
	if err != nil {
		return ScopeState{}, err
	}
	return ScopeState{LastDocketID: last, HighWater: StripSentinel(highWater)}, nil
}

func (p *Pipeline) processCandidate(
	ctx context.Context,
	src Source,
	scope ScopeState,
	cand Candidate,
	counters *sourceCounters,
	log *zap.Logger,
) {
	doc, err := p.norm.Normalize(cand, src)
	if err != nil {
		log.Warn("candidate rejected", zap.Error(err))
		counters.Failed++
		metrics.RecordDocument(src.Country, "invalid")
		return
	}
	log = log.With(zap.String("title", doc.Title), zap.String("url", doc.URL))

	cached, err := p.cache.Fetch(ctx, doc.URL, doc.Title)
	if err != nil {
		log.Warn("retrieval failed, skipping candidate", zap.Error(err))
		counters.Failed++
		metrics.RecordDocument(src.Country, "fetch_failed")
		return
	}

	decision, err := p.engine.Decide(ctx, doc, scope)
	if err != nil {
		log.Warn("decision failed, skipping candidate", zap.Error(err))
		counters.Failed++
		metrics.RecordDocument(src.Country, "decide_failed")
		p.cleanup(cached.Path, log)
		return
	}

	switch decision {
	case DecisionAlreadySeen:
		log.Info("duplicate document, skipping")
		counters.Duplicate++
		metrics.RecordDocument(src.Country, "duplicate")
		p.cleanup(cached.Path, log)
	case DecisionStale:
		log.Info("stale document, skipping")
		counters.Stale++
		metrics.RecordDocument(src.Country, "stale")
		p.cleanup(cached.Path, log)
	case DecisionNew:
		p.persist(ctx, src, doc, cached, counters, log)
	}
}

func (p *Pipeline) persist(
	ctx context.Context,
	src Source,
	doc Document,
	cached CachedFile,
	counters *sourceCounters,
	log *zap.Logger,
) {
	docketID, err := p.alloc.Next(p.cfg.ProgramID, src.Country)
	if err != nil {
		log.Error("identifier allocation failed", zap.Error(err))
		counters.Failed++
		metrics.RecordDocument(src.Country, "alloc_failed")
		return
	}

	doc.DocketID = strconv.FormatInt(docketID, 10)
	doc.DocID = DocID(docketID)
	doc.InElastic = false
	doc.CreateDate = p.clock.Now()

	if err := p.store.Insert(ctx, doc); err != nil {
		// The cached artifact is deliberately kept: persistence may be
		// retried on a later run and re-fetching is the expensive part.
		log.Error("insert failed",
			zap.Error(&PersistenceError{Title: doc.Title, Err: err}))
		counters.Failed++
		metrics.RecordDocument(src.Country, "persist_failed")
		return
	}
	p.alloc.Advance(p.cfg.ProgramID, src.Country)
	counters.Persisted++
	metrics.RecordDocument(src.Country, "persisted")
	log.Info("document persisted",
		zap.String("docket_id", doc.DocketID),
		zap.String("doc_id", doc.DocID),
	)

	p.uploadArtifact(ctx, doc, cached, log)
	p.publishEvent(ctx, doc, log)
	p.cleanup(cached.Path, log)
}

// uploadArtifact copies the cached file to object storage. Best effort: the
// record is already persisted, so failures only log.
func (p *Pipeline) uploadArtifact(ctx context.Context, doc Document, cached CachedFile, log *zap.Logger) {
	if p.uploader == nil || p.cfg.UploadPrefix == "" || cached.Path == "" {
		return
	}
	data, err := os.ReadFile(cached.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("read cached artifact for upload failed", zap.Error(err))
		}
		return
	}
	ext := filepath.Ext(cached.Path)
	if ext == "" {
		ext = ".pdf"
	}
	objectName := p.cfg.UploadPrefix + "/" + doc.Country + "/" + doc.DocketID + "/" + doc.DocID + ext
	if err := p.uploader.Save(ctx, objectName, data); err != nil {
		log.Warn("artifact upload failed", zap.String("object", objectName), zap.Error(err))
		return
	}
	log.Debug("artifact uploaded", zap.String("object", objectName))
}

func (p *Pipeline) publishEvent(ctx context.Context, doc Document, log *zap.Logger) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"program_id":  doc.ProgramID,
		"country":     doc.Country,
		"docket_id":   doc.DocketID,
		"doc_id":      doc.DocID,
		"title":       doc.Title,
		"url":         doc.URL,
		"fingerprint": doc.Fingerprint,
		"timestamp":   p.clock.Now().Format(time.RFC3339),
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, payload); err != nil {
		log.Warn("ingest event publish failed", zap.Error(err))
	}
}

// cleanup deletes a transient cached file. Deletion failure is logged, never
// propagated.
func (p *Pipeline) cleanup(path string, log *zap.Logger) {
	if path == "" {
		return
	}
	if err := p.cache.Remove(path); err != nil {
		log.Warn("cached file cleanup failed", zap.String("path", path), zap.Error(err))
	}
}
