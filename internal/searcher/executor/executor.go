// Package executor owns the serving index snapshot and evaluates parsed
// query plans against it with the boolean, phrase and fuzzy engines.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BronsonLau/NLP-Course/internal/corpus"
	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
	"github.com/BronsonLau/NLP-Course/internal/searcher/fuzzy"
	"github.com/BronsonLau/NLP-Course/internal/searcher/parser"
	"github.com/BronsonLau/NLP-Course/internal/searcher/phrase"
	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
	"github.com/BronsonLau/NLP-Course/pkg/metrics"
	"github.com/BronsonLau/NLP-Course/pkg/resilience"
)

const (
	PhraseIndex = "index"
	PhraseScan  = "scan"
)

type SearchResult struct {
	Query      string        `json:"query"`
	Mode       parser.Mode   `json:"mode"`
	DocIDs     []int         `json:"doc_ids"`
	TotalHits  int           `json:"total_hits"`
	LatencyMs  float64       `json:"latency_ms"`
	Generation uint64        `json:"generation"`
	IndexID    string        `json:"index_id"`
	Expansions []fuzzy.Match `json:"expansions,omitempty"`
}

// BuildStats describes a completed index build.
type BuildStats struct {
	Generation uint64        `json:"generation"`
	IndexID    string        `json:"index_id"`
	Documents  int           `json:"documents"`
	Terms      int           `json:"terms"`
	Tokens     int           `json:"tokens"`
	Duration   time.Duration `json:"duration_ns"`
}

// Snapshot is an immutable index together with the corpus it was built
// from. The executor swaps whole snapshots.
type Snapshot struct {
	Index   *index.InvertedIndex
	Docs    map[int]string
	BuiltAt time.Time
}

type Options struct {
	BuildWorkers   int
	BuildTimeout   time.Duration
	FuzzyCacheSize int
	PhraseStrategy string
	// Metrics may be nil.
	Metrics *metrics.Metrics
	// OnRebuild, if set, runs after every successful snapshot swap.
	OnRebuild func(ctx context.Context, stats BuildStats)
}

type Executor struct {
	tok       tokenizer.Tokenizer
	phrase    *phrase.Engine
	fuzzy     *fuzzy.Engine
	opts      Options
	current   atomic.Pointer[Snapshot]
	rebuildMu sync.Mutex
	logger    *slog.Logger
}

// New creates an executor with no index. Execute fails with
// ErrIndexNotReady until the first Rebuild succeeds.
func New(tok tokenizer.Tokenizer, opts Options) *Executor {
	if opts.BuildWorkers < 1 {
		opts.BuildWorkers = 1
	}
	if opts.PhraseStrategy == "" {
		opts.PhraseStrategy = PhraseIndex
	}
	return &Executor{
		tok:    tok,
		phrase: phrase.New(tok),
		fuzzy:  fuzzy.New(opts.FuzzyCacheSize),
		opts:   opts,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Snapshot returns the serving snapshot, or nil before the first build.
func (e *Executor) Snapshot() *Snapshot {
	return e.current.Load()
}

// Ready reports whether an index is being served.
func (e *Executor) Ready() bool {
	return e.current.Load() != nil
}

// Generation of the serving index, or 0 before the first build.
func (e *Executor) Generation() uint64 {
	if snap := e.current.Load(); snap != nil {
		return snap.Index.Generation()
	}
	return 0
}

// ServingIndex reports the generation and content fingerprint of the
// serving index from one snapshot, or zero values before the first build.
// Unlike the generation, the fingerprint is comparable across processes.
func (e *Executor) ServingIndex() (generation uint64, indexID string) {
	if snap := e.current.Load(); snap != nil {
		return snap.Index.Generation(), snap.Index.Fingerprint()
	}
	return 0, ""
}

func (e *Executor) snapshot() (*Snapshot, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, apperrors.New(apperrors.ErrIndexNotReady, http.StatusServiceUnavailable, "no index has been built yet")
	}
	return snap, nil
}

// Execute evaluates plan against the serving snapshot. The snapshot is
// pinned for the duration of the call, so a concurrent Rebuild never mixes
// two indexes within one query.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan) (*SearchResult, error) {
	snap, err := e.snapshot()
	if err != nil {
		e.observe(plan.Mode, "error", 0, 0)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing %s query: %w", plan.Mode, err)
	}

	start := time.Now()
	result := &SearchResult{
		Query:      plan.RawQuery,
		Mode:       plan.Mode,
		Generation: snap.Index.Generation(),
		IndexID:    snap.Index.Fingerprint(),
	}

	var set index.DocSet
	switch plan.Mode {
	case parser.ModeBoolean:
		set = plan.Expr.Eval(snap.Index)
	case parser.ModePhrase:
		if e.opts.PhraseStrategy == PhraseScan {
			set = e.phrase.Scan(plan.Text, snap.Docs)
		} else {
			set = e.phrase.Evaluate(plan.Text, snap.Index)
		}
	case parser.ModeFuzzy:
		var cached bool
		set, cached = e.fuzzy.Search(plan.Text, snap.Index, plan.MaxDistance)
		e.observeFuzzyCache(cached)
		if plan.Explain {
			result.Expansions = fuzzy.Expand(plan.Text, snap.Index, plan.MaxDistance)
		}
	default:
		return nil, apperrors.InvalidInputf("unknown query mode %q", plan.Mode)
	}

	elapsed := time.Since(start)
	result.DocIDs = set.Sorted()
	result.TotalHits = len(result.DocIDs)
	result.LatencyMs = float64(elapsed.Microseconds()) / 1000

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	e.observe(plan.Mode, resultType, elapsed, result.TotalHits)

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"mode", plan.Mode,
		"generation", result.Generation,
		"hits", result.TotalHits,
		"latency_ms", result.LatencyMs,
	)
	return result, nil
}

// Rebuild indexes docs and atomically replaces the serving snapshot. The
// fuzzy memo table is invalidated after the swap. Concurrent rebuilds are
// serialised; queries keep running against the old snapshot meanwhile.
func (e *Executor) Rebuild(ctx context.Context, docs map[int]string) (BuildStats, error) {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	if len(docs) == 0 {
		e.observeBuild("failed", 0)
		return BuildStats{}, fmt.Errorf("rebuilding index: %w", apperrors.ErrCorpusEmpty)
	}

	start := time.Now()
	var idx *index.InvertedIndex
	err := resilience.WithTimeout(ctx, e.opts.BuildTimeout, "index-build", func(ctx context.Context) error {
		var err error
		idx, err = index.BuildParallel(ctx, docs, e.tok, e.opts.BuildWorkers)
		return err
	})
	elapsed := time.Since(start)
	if err != nil {
		e.observeBuild("failed", elapsed)
		e.logger.Error("index build failed", "documents", len(docs), "error", err)
		return BuildStats{}, fmt.Errorf("rebuilding index: %w", err)
	}

	e.current.Store(&Snapshot{Index: idx, Docs: docs, BuiltAt: time.Now()})
	e.fuzzy.Invalidate()

	stats := BuildStats{
		Generation: idx.Generation(),
		IndexID:    idx.Fingerprint(),
		Documents:  idx.DocCount(),
		Terms:      idx.TermCount(),
		Tokens:     idx.TokenCount(),
		Duration:   elapsed,
	}
	e.observeBuild("success", elapsed)
	if m := e.opts.Metrics; m != nil {
		m.IndexedDocs.Set(float64(stats.Documents))
		m.IndexedTerms.Set(float64(stats.Terms))
		m.IndexGeneration.Set(float64(stats.Generation))
	}
	e.logger.Info("index built",
		"generation", stats.Generation,
		"index_id", stats.IndexID,
		"documents", stats.Documents,
		"terms", stats.Terms,
		"tokens", stats.Tokens,
		"duration", elapsed,
	)
	if e.opts.OnRebuild != nil {
		e.opts.OnRebuild(ctx, stats)
	}
	return stats, nil
}

// Reload loads the corpus from src and rebuilds from it.
func (e *Executor) Reload(ctx context.Context, src corpus.Source) (BuildStats, error) {
	docs, err := src.Load(ctx)
	if err != nil {
		e.observeBuild("failed", 0)
		return BuildStats{}, fmt.Errorf("loading corpus: %w", err)
	}
	return e.Rebuild(ctx, docs)
}

// TopTerms reports the n most frequent terms of the serving index.
func (e *Executor) TopTerms(n int) ([]index.TermStat, error) {
	snap, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Index.TopTerms(n), nil
}

// FuzzyCacheStats returns the fuzzy memo table's hits, misses and size.
func (e *Executor) FuzzyCacheStats() (hits, misses int64, size int) {
	hits, misses = e.fuzzy.Stats()
	return hits, misses, e.fuzzy.Len()
}

// InvalidateFuzzyCache drops every memoised fuzzy result.
func (e *Executor) InvalidateFuzzyCache() {
	e.fuzzy.Invalidate()
}

func (e *Executor) observe(mode parser.Mode, resultType string, elapsed time.Duration, hits int) {
	m := e.opts.Metrics
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(string(mode), resultType).Inc()
	if resultType == "error" {
		return
	}
	m.SearchLatency.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	m.SearchResultsCount.WithLabelValues(string(mode)).Observe(float64(hits))
}

func (e *Executor) observeFuzzyCache(cached bool) {
	m := e.opts.Metrics
	if m == nil {
		return
	}
	if cached {
		m.FuzzyCacheHitsTotal.Inc()
	} else {
		m.FuzzyCacheMissesTotal.Inc()
	}
}

func (e *Executor) observeBuild(status string, elapsed time.Duration) {
	m := e.opts.Metrics
	if m == nil {
		return
	}
	m.IndexBuildsTotal.WithLabelValues(status).Inc()
	if elapsed > 0 {
		m.IndexBuildDuration.Observe(elapsed.Seconds())
	}
}
