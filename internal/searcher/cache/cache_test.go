package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
	"github.com/BronsonLau/NLP-Course/internal/searcher/executor"
	"github.com/BronsonLau/NLP-Course/internal/searcher/parser"
	"github.com/BronsonLau/NLP-Course/pkg/metrics"
	pkgredis "github.com/BronsonLau/NLP-Course/pkg/redis"
	"github.com/BronsonLau/NLP-Course/pkg/resilience"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	v, ok := b.data[key]
	if !ok {
		return nil, pkgredis.ErrCacheMiss
	}
	return v, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.data[key] = value
	return nil
}

func (b *memBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func mustParse(t *testing.T, q string, d int) *parser.QueryPlan {
	t.Helper()
	plan, err := parser.Parse(q, d)
	require.NoError(t, err)
	return plan
}

func TestGetOrComputeCachesPerIndex(t *testing.T) {
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(newMemBackend(), time.Minute, m)
	plan := mustParse(t, "北京 and 天安门", 0)

	var calls atomic.Int32
	compute := func(id string) func() (*executor.SearchResult, error) {
		return func() (*executor.SearchResult, error) {
			calls.Add(1)
			return &executor.SearchResult{Query: plan.RawQuery, Mode: plan.Mode, DocIDs: []int{1}, TotalHits: 1, Generation: 7, IndexID: id}, nil
		}
	}

	res, hit, err := c.GetOrCompute(context.Background(), plan, "a1", compute("a1"))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{1}, res.DocIDs)

	res, hit, err = c.GetOrCompute(context.Background(), plan, "a1", compute("a1"))
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a1", res.IndexID)

	_, hit, err = c.GetOrCompute(context.Background(), plan, "b2", compute("b2"))
	require.NoError(t, err)
	assert.False(t, hit, "a different index never sees older results")
	assert.Equal(t, int32(2), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal))
}

func TestSameGenerationDifferentCorpusDoesNotShareEntries(t *testing.T) {
	backend := newMemBackend()
	tok := tokenizer.NewFields(tokenizer.Options{})
	v1 := index.Build(map[int]string{1: "北京 天安门", 2: "上海 外滩"}, tok)
	v2 := index.Build(map[int]string{1: "上海 外滩", 2: "北京 故宫"}, tok)
	require.NotEqual(t, v1.Fingerprint(), v2.Fingerprint())

	// Two processes sharing Redis: each numbers its first build 1.
	instanceA := New(backend, time.Minute, nil)
	instanceB := New(backend, time.Minute, nil)
	plan := mustParse(t, "北京", 0)
	search := func(idx *index.InvertedIndex) func() (*executor.SearchResult, error) {
		return func() (*executor.SearchResult, error) {
			ids := idx.DocIDs("北京").Sorted()
			return &executor.SearchResult{DocIDs: ids, TotalHits: len(ids), Generation: 1, IndexID: idx.Fingerprint()}, nil
		}
	}

	res, _, err := instanceA.GetOrCompute(context.Background(), plan, v1.Fingerprint(), search(v1))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.DocIDs)

	res, hit, err := instanceB.GetOrCompute(context.Background(), plan, v2.Fingerprint(), search(v2))
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{2}, res.DocIDs)

	rebuilt := index.Build(map[int]string{2: "上海 外滩", 1: "北京 天安门"}, tok)
	res, hit, err = instanceB.GetOrCompute(context.Background(), plan, rebuilt.Fingerprint(), search(rebuilt))
	require.NoError(t, err)
	assert.True(t, hit, "identical content built elsewhere reuses the entry")
	assert.Equal(t, []int{1}, res.DocIDs)
}

func TestGetOrComputePropagatesErrors(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), mustParse(t, "北京", 0), "a1", func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBuildKey(t *testing.T) {
	same := []string{"北京 AND 天安门", "北京 and  天安门 ", " 北京 and 天安门"}
	want := BuildKey(mustParse(t, same[0], 0), "3f2a")
	for _, q := range same[1:] {
		assert.Equal(t, want, BuildKey(mustParse(t, q, 0), "3f2a"), q)
	}
	assert.NotEqual(t, want, BuildKey(mustParse(t, "北京 or 天安门", 0), "3f2a"))
	assert.NotEqual(t, want, BuildKey(mustParse(t, same[0], 0), "3f2b"))
	assert.NotEqual(t,
		BuildKey(mustParse(t, "~天安们~", 1), "3f2a"),
		BuildKey(mustParse(t, "~天安们~", 2), "3f2a"),
		"distance is part of the key")
	assert.Contains(t, want, "lexsearch:search:3f2a:")
}

func TestInvalidate(t *testing.T) {
	backend := newMemBackend()
	backend.data["unrelated"] = []byte("x")
	c := New(backend, time.Minute, nil)
	plan := mustParse(t, "北京", 0)
	c.Set(context.Background(), plan, &executor.SearchResult{Generation: 1, IndexID: "a1"})
	c.Set(context.Background(), plan, &executor.SearchResult{Generation: 1, IndexID: "b2"})
	c.Set(context.Background(), plan, &executor.SearchResult{Generation: 2})

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, backend.data, "unrelated")
}

func TestBackendFailureOpensBreaker(t *testing.T) {
	backend := newMemBackend()
	backend.err = errors.New("connection refused")
	c := New(backend, time.Minute, nil)
	plan := mustParse(t, "北京", 0)

	for i := 0; i < 5; i++ {
		_, ok := c.Get(context.Background(), plan, "a1")
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	res, hit, err := c.GetOrCompute(context.Background(), plan, "a1", func() (*executor.SearchResult, error) {
		return &executor.SearchResult{DocIDs: []int{1}, Generation: 1, IndexID: "a1"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{1}, res.DocIDs, "searches still succeed while redis is bypassed")
}
