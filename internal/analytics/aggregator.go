package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BronsonLau/NLP-Course/pkg/kafka"
)

const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalSearches     int64            `json:"total_searches"`
	SearchesByMode    map[string]int64 `json:"searches_by_mode"`
	CacheHits         int64            `json:"cache_hits"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      float64          `json:"p50_latency_ms"`
	P95LatencyMs      float64          `json:"p95_latency_ms"`
	P99LatencyMs      float64          `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
	IndexBuilds       int64            `json:"index_builds"`
	LastGeneration    uint64           `json:"last_generation"`
	LastBuildAt       *time.Time       `json:"last_build_at,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds search and index events into running statistics. Only
// the most recent latency samples are kept for percentiles.
type Aggregator struct {
	mu                sync.RWMutex
	totalSearches     int64
	searchesByMode    map[string]int64
	cacheHits         int64
	zeroResults       int64
	latencies         []float64
	nextLatency       int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	indexBuilds       int64
	lastGeneration    uint64
	lastBuildAt       time.Time
	startTime         time.Time
	now               func() time.Time

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an aggregator; consumer may be nil when events are
// fed directly through Record.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		searchesByMode:    make(map[string]int64),
		latencies:         make([]float64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		consumer:          consumer,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// SetConsumer attaches the Kafka consumer that feeds the aggregator.
func (a *Aggregator) SetConsumer(consumer *kafka.Consumer) {
	a.consumer = consumer
}

// Start consumes events until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.consumer == nil {
		return fmt.Errorf("analytics aggregator has no consumer")
	}
	a.logger.Info("analytics aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent decodes one published event and records it. Undecodable or
// unknown events are logged and skipped so they are still committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		if err := agg.Record(value); err != nil {
			agg.logger.Warn("skipping analytics event", "key", string(key), "error", err)
		}
		return nil
	}
}

// Record decodes and records a JSON event.
func (a *Aggregator) Record(value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decoding event envelope: %w", err)
	}
	switch env.Type {
	case EventSearch:
		event, err := kafka.DecodeJSON[SearchEvent](value)
		if err != nil {
			return err
		}
		a.RecordSearch(event)
	case EventIndexBuilt:
		event, err := kafka.DecodeJSON[IndexEvent](value)
		if err != nil {
			return err
		}
		a.RecordIndex(event)
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return nil
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	a.searchesByMode[event.Mode]++
	if event.CacheHit {
		a.cacheHits++
	}
	a.queryCounts[event.Query]++
	if event.TotalHits == 0 {
		a.zeroResults++
		a.zeroResultQueries[event.Query]++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.nextLatency] = event.LatencyMs
		a.nextLatency = (a.nextLatency + 1) % maxLatencySamples
	}
}

// TrackSearch records event in-process, so the aggregator can stand in for
// a Collector when Kafka is disabled.
func (a *Aggregator) TrackSearch(event SearchEvent) {
	event.Type = EventSearch
	a.RecordSearch(event)
}

func (a *Aggregator) RecordIndex(event IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.indexBuilds++
	if event.Generation >= a.lastGeneration {
		a.lastGeneration = event.Generation
		a.lastBuildAt = event.Timestamp
	}
}

// Restore adds a persisted aggregate to the running counters. Only the
// queries that made the snapshot's top lists come back; latency samples
// start empty.
func (a *Aggregator) Restore(prev AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches += prev.TotalSearches
	a.cacheHits += prev.CacheHits
	a.zeroResults += prev.ZeroResultCount
	a.indexBuilds += prev.IndexBuilds
	for mode, n := range prev.SearchesByMode {
		a.searchesByMode[mode] += n
	}
	for _, q := range prev.TopQueries {
		a.queryCounts[q.Query] += q.Count
	}
	for _, q := range prev.ZeroResultQueries {
		a.zeroResultQueries[q.Query] += q.Count
	}
	if prev.LastBuildAt != nil && prev.LastBuildAt.After(a.lastBuildAt) {
		a.lastBuildAt = *prev.LastBuildAt
	}
}

// Stats snapshots the aggregate with the ten most frequent queries.
func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(10)
}

// StatsTop snapshots the aggregate keeping the top n queries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		SearchesByMode:  make(map[string]int64, len(a.searchesByMode)),
		CacheHits:       a.cacheHits,
		ZeroResultCount: a.zeroResults,
		IndexBuilds:     a.indexBuilds,
		LastGeneration:  a.lastGeneration,
	}
	for mode, n := range a.searchesByMode {
		stats.SearchesByMode[mode] = n
	}
	if !a.lastBuildAt.IsZero() {
		at := a.lastBuildAt
		stats.LastBuildAt = &at
	}
	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, n)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, n)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
