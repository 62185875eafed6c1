// Package handler exposes the search executor over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BronsonLau/NLP-Course/internal/analytics"
	"github.com/BronsonLau/NLP-Course/internal/corpus"
	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/searcher/cache"
	"github.com/BronsonLau/NLP-Course/internal/searcher/executor"
	"github.com/BronsonLau/NLP-Course/internal/searcher/parser"
	"github.com/BronsonLau/NLP-Course/pkg/config"
	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
	"github.com/BronsonLau/NLP-Course/pkg/logger"
	"github.com/BronsonLau/NLP-Course/pkg/middleware"
)

const maxTermsLimit = 1000

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan) (*executor.SearchResult, error)
	Generation() uint64
	ServingIndex() (generation uint64, indexID string)
	TopTerms(n int) ([]index.TermStat, error)
	FuzzyCacheStats() (hits, misses int64, size int)
	InvalidateFuzzyCache()
	Reload(ctx context.Context, src corpus.Source) (executor.BuildStats, error)
}

// Tracker receives one event per answered search.
type Tracker interface {
	TrackSearch(event analytics.SearchEvent)
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	tracker  Tracker
	source   corpus.Source
	cfg      config.SearchConfig
	logger   *slog.Logger
}

// New creates a Handler. queryCache, tracker and source may be nil; a nil
// source disables the rebuild endpoint.
func New(exec SearchExecutor, queryCache *cache.QueryCache, tracker Tracker, source corpus.Source, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor: exec,
		cache:    queryCache,
		tracker:  tracker,
		source:   source,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the search API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/terms", h.Terms)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	query := params.Get("q")
	if query == "" {
		h.writeError(w, apperrors.InvalidInputf("query parameter 'q' is required"))
		return
	}

	distance := h.cfg.DefaultFuzzyDistance
	if v := params.Get("distance"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 {
			h.writeError(w, apperrors.InvalidInputf("distance must be a non-negative integer"))
			return
		}
		if d > h.cfg.MaxFuzzyDistance {
			h.writeError(w, apperrors.InvalidInputf("distance %d exceeds the maximum of %d", d, h.cfg.MaxFuzzyDistance))
			return
		}
		distance = d
	}

	explain := false
	if v := params.Get("explain"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, apperrors.InvalidInputf("explain must be a boolean"))
			return
		}
		explain = b
	}

	plan, err := parser.Parse(query, distance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	plan.Explain = explain

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		generation, indexID := h.executor.ServingIndex()
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, indexID, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan)
		})
		if cacheHit {
			// The entry may come from another instance serving the same content.
			result.Generation = generation
		}
	} else {
		result, err = h.executor.Execute(ctx, plan)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "mode", plan.Mode, "error", err)
		h.writeError(w, err)
		return
	}

	log.Info("search completed",
		"query", query,
		"mode", plan.Mode,
		"total_hits", result.TotalHits,
		"cache_hit", cacheHit,
		"generation", result.Generation,
	)
	if h.tracker != nil {
		h.tracker.TrackSearch(analytics.SearchEvent{
			Type:       analytics.EventSearch,
			Query:      query,
			Mode:       string(plan.Mode),
			TotalHits:  result.TotalHits,
			LatencyMs:  result.LatencyMs,
			CacheHit:   cacheHit,
			Generation: result.Generation,
			Timestamp:  time.Now().UTC(),
			RequestID:  middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, result)
}

// Terms reports the most frequent terms of the serving index.
func (h *Handler) Terms(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.TopTermsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.InvalidInputf("limit must be a positive integer"))
			return
		}
		limit = min(n, maxTermsLimit)
	}

	terms, err := h.executor.TopTerms(limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation": h.executor.Generation(),
		"terms":      terms,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	fuzzyHits, fuzzyMisses, size := h.executor.FuzzyCacheStats()
	resp := map[string]any{
		"fuzzy": map[string]any{
			"hits":     fuzzyHits,
			"misses":   fuzzyMisses,
			"size":     size,
			"hit_rate": hitRate(fuzzyHits, fuzzyMisses),
		},
	}

	if h.cache == nil {
		resp["results"] = map[string]string{"status": "disabled"}
	} else {
		hits, misses := h.cache.Stats()
		resp["results"] = map[string]any{
			"hits":     hits,
			"misses":   misses,
			"total":    hits + misses,
			"hit_rate": hitRate(hits, misses),
			"breaker":  h.cache.BreakerState().String(),
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CacheInvalidate drops cached entries. scope is "fuzzy", "results" or
// "all" (the default).
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "all"
	}
	switch scope {
	case "all", "fuzzy", "results":
	default:
		h.writeError(w, apperrors.InvalidInputf("unknown scope %q", scope))
		return
	}

	if scope == "results" && h.cache == nil {
		h.writeError(w, apperrors.Unavailablef("result caching is disabled"))
		return
	}

	if scope != "results" {
		h.executor.InvalidateFuzzyCache()
	}
	var deleted int64
	if scope != "fuzzy" && h.cache != nil {
		n, err := h.cache.Invalidate(r.Context())
		if err != nil {
			h.logger.Error("cache invalidation failed", "error", err)
			h.writeError(w, err)
			return
		}
		deleted = n
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "invalidated",
		"scope":        scope,
		"keys_deleted": deleted,
	})
}

// Rebuild reloads the corpus and swaps in a fresh index.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		h.writeError(w, apperrors.Unavailablef("no corpus source configured"))
		return
	}
	stats, err := h.executor.Reload(r.Context(), h.source)
	if err != nil {
		logger.FromContext(r.Context()).Error("index rebuild failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "rebuilt",
		"generation":  stats.Generation,
		"index_id":    stats.IndexID,
		"documents":   stats.Documents,
		"terms":       stats.Terms,
		"tokens":      stats.Tokens,
		"duration_ms": stats.Duration.Milliseconds(),
	})
}

func hitRate(hits, misses int64) string {
	total := hits + misses
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(hits)/float64(total)*100)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.PublicMessage(err)})
}
