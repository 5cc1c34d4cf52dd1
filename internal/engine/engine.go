// Package engine is the retrieval facade: it ties the store, snapshot
// persistence, keyword index, and directory ingestion together behind
// one API used by the server, the CLI, and the MCP tool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/ingest"
	"github.com/hyperjump/tansaku/internal/keyword"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/snapshot"
	"github.com/hyperjump/tansaku/internal/store"
)

// rrfK is the rank constant for reciprocal rank fusion in hybrid
// search.
const rrfK = 60

// Engine is the top-level retrieval engine. All methods are safe for
// concurrent use.
type Engine struct {
	store    *store.Store
	backend  snapshot.Backend
	keyword  *keyword.Index
	logger   *zap.Logger
	autoSave bool

	defaultTopK int
	maxTopK     int
	threshold   float64
	hybrid      bool

	saveMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshot enables persistence through backend. The engine owns
// the backend and closes it on Close.
func WithSnapshot(b snapshot.Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// WithKeyword enables hybrid search backed by idx. The engine owns the
// index and closes it on Close.
func WithKeyword(idx *keyword.Index) Option {
	return func(e *Engine) { e.keyword = idx }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSearchDefaults sets the default and maximum top-k and the
// minimum similarity score for vector hits. threshold 0 disables the
// score filter.
func WithSearchDefaults(defaultTopK, maxTopK int, threshold float64) Option {
	return func(e *Engine) {
		if defaultTopK > 0 {
			e.defaultTopK = defaultTopK
		}
		if maxTopK > 0 {
			e.maxTopK = maxTopK
		}
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// WithHybridDefault makes hybrid search the default for queries that
// do not specify it. Ignored without a keyword index.
func WithHybridDefault(enabled bool) Option {
	return func(e *Engine) { e.hybrid = enabled }
}

// WithAutoSave saves a snapshot after every mutation and after each
// completed ingestion. Requires a snapshot backend.
func WithAutoSave(enabled bool) Option {
	return func(e *Engine) { e.autoSave = enabled }
}

// New creates an engine over the given embedder.
func New(embedder embedding.Embedder, opts ...Option) (*Engine, error) {
	st, err := store.New(embedder)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		store:       st,
		logger:      zap.NewNop(),
		defaultTopK: 5,
		maxTopK:     100,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.autoSave && e.backend == nil {
		return nil, fmt.Errorf("auto-save requires a snapshot backend")
	}
	return e, nil
}

// Insert adds or replaces a document.
func (e *Engine) Insert(ctx context.Context, doc models.Document) error {
	if err := e.store.Insert(ctx, doc); err != nil {
		return err
	}
	if e.keyword != nil {
		if err := e.keyword.Index(ctx, doc); err != nil {
			return fmt.Errorf("keyword index %q: %w", doc.ID, err)
		}
	}
	e.maybeAutoSave()
	return nil
}

// Delete removes a document. Returns false when it did not exist.
func (e *Engine) Delete(ctx context.Context, id string) (bool, error) {
	removed := e.store.Delete(id)
	if e.keyword != nil {
		if err := e.keyword.Delete(ctx, id); err != nil {
			return removed, fmt.Errorf("keyword delete %q: %w", id, err)
		}
	}
	if removed {
		e.maybeAutoSave()
	}
	return removed, nil
}

// Get returns the document stored under id.
func (e *Engine) Get(id string) (models.Document, bool) {
	return e.store.Get(id)
}

// Search answers q. TopK at or below zero uses the default; values
// above the maximum are clamped to it. Hybrid searches fuse vector and
// keyword rankings with reciprocal rank fusion; their scores are fusion
// scores, not cosine similarities.
func (e *Engine) Search(ctx context.Context, q models.SearchQuery) (models.SearchResponse, error) {
	topK := q.TopK
	if topK <= 0 {
		topK = e.defaultTopK
	}
	if topK > e.maxTopK {
		topK = e.maxTopK
	}
	hybrid := e.hybrid
	if q.Hybrid != nil {
		hybrid = *q.Hybrid
	}
	if e.keyword == nil {
		hybrid = false
	}

	vecHits, err := e.store.Query(ctx, q.Query, topK)
	if err != nil {
		return models.SearchResponse{}, err
	}
	if e.threshold > 0 {
		filtered := vecHits[:0]
		for _, h := range vecHits {
			if h.Score >= e.threshold {
				filtered = append(filtered, h)
			}
		}
		vecHits = filtered
	}

	hits := vecHits
	if hybrid {
		hits, err = e.fuse(ctx, q.Query, vecHits, topK)
		if err != nil {
			return models.SearchResponse{}, err
		}
	}

	return models.SearchResponse{
		Query: q.Query,
		Hits:  hits,
		Total: len(hits),
	}, nil
}

// fuse merges the vector ranking with a keyword ranking using
// reciprocal rank fusion.
func (e *Engine) fuse(ctx context.Context, query string, vecHits []models.RetrievedHit, topK int) ([]models.RetrievedHit, error) {
	kwHits, err := e.keyword.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	docs := make(map[string]models.Document)
	for rank, h := range vecHits {
		scores[h.Document.ID] += 1.0 / float64(rrfK+rank+1)
		docs[h.Document.ID] = h.Document
	}
	for rank, h := range kwHits {
		scores[h.ID] += 1.0 / float64(rrfK+rank+1)
		if _, ok := docs[h.ID]; !ok {
			if doc, found := e.store.Get(h.ID); found {
				docs[h.ID] = doc
			}
		}
	}

	fused := make([]models.RetrievedHit, 0, len(scores))
	for id, score := range scores {
		doc, ok := docs[id]
		if !ok {
			continue
		}
		fused = append(fused, models.RetrievedHit{Document: doc, Score: score})
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Document.ID < fused[j].Document.ID
	})
	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// IndexDirectory starts a background ingestion of the directory tree
// at root. When the job completes, the keyword index is synchronized
// and, with auto-save on, a snapshot is written.
func (e *Engine) IndexDirectory(ctx context.Context, root string, opts ...ingest.Option) *ingest.Job {
	opts = append(opts, ingest.WithLogger(e.logger))
	job := ingest.Start(ctx, e.store, root, opts...)
	go func() {
		if _, err := job.Wait(context.Background()); err != nil {
			return
		}
		if e.keyword != nil {
			e.syncKeyword(ctx)
		}
		e.maybeAutoSave()
	}()
	return job
}

// syncKeyword reindexes every stored document into the keyword index.
// Ingestion writes to the store directly, so the keyword side catches
// up here.
func (e *Engine) syncKeyword(ctx context.Context) {
	for _, entry := range e.store.Index().Entries() {
		if err := e.keyword.Index(ctx, entry.Document); err != nil {
			e.logger.Warn("keyword sync failed",
				zap.String("id", entry.Document.ID),
				zap.Error(err))
		}
	}
}

// SaveIndex writes a snapshot of the current index.
func (e *Engine) SaveIndex() error {
	if e.backend == nil {
		return fmt.Errorf("no snapshot backend configured")
	}
	e.saveMu.Lock()
	defer e.saveMu.Unlock()
	idx := e.store.Index()
	if err := e.backend.Save(idx.Dimension(), idx.Entries()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadIndex replaces the index contents from the latest snapshot. A
// missing snapshot is not an error and leaves the index empty; a
// snapshot with a different embedding dimension is rejected and the
// index is left untouched.
func (e *Engine) LoadIndex(ctx context.Context) error {
	if e.backend == nil {
		return fmt.Errorf("no snapshot backend configured")
	}
	dim, entries, err := e.backend.Load()
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	idx := e.store.Index()
	if dim != idx.Dimension() {
		return fmt.Errorf("snapshot dimension %d does not match embedder dimension %d", dim, idx.Dimension())
	}
	if err := idx.ReplaceAll(entries); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if e.keyword != nil {
		e.syncKeyword(ctx)
	}
	e.logger.Info("index restored from snapshot", zap.Int("documents", len(entries)))
	return nil
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	return e.store.Len()
}

// Status describes the engine for health and status endpoints.
type Status struct {
	Documents int  `json:"documents"`
	Dimension int  `json:"dimension"`
	Keyword   bool `json:"keyword"`
	Snapshot  bool `json:"snapshot"`
}

// Status reports the current engine state.
func (e *Engine) Status() Status {
	return Status{
		Documents: e.store.Len(),
		Dimension: e.store.Index().Dimension(),
		Keyword:   e.keyword != nil,
		Snapshot:  e.backend != nil,
	}
}

func (e *Engine) maybeAutoSave() {
	if !e.autoSave {
		return
	}
	if err := e.SaveIndex(); err != nil {
		e.logger.Warn("auto-save failed", zap.Error(err))
	}
}

// Close releases the embedder, keyword index, and snapshot backend.
func (e *Engine) Close() error {
	var errs []error
	if err := e.store.Embedder().Close(); err != nil {
		errs = append(errs, fmt.Errorf("close embedder: %w", err))
	}
	if e.keyword != nil {
		if err := e.keyword.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close keyword index: %w", err))
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close snapshot backend: %w", err))
		}
	}
	return errors.Join(errs...)
}
