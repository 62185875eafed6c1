// Package fuzzy expands a query term to every index term within a bounded
// edit distance and returns the union of their documents.
package fuzzy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
)

// DefaultCacheSize bounds the memo table when New is given a non-positive
// size.
const DefaultCacheSize = 1000

// Match is an index term accepted for a fuzzy query.
type Match struct {
	Term     string `json:"term"`
	Distance int    `json:"distance"`
	DocFreq  int    `json:"doc_freq"`
}

// Engine evaluates fuzzy queries and memoises results per
// (term, maxDistance). The memo table belongs to one index generation:
// querying a different index, or calling Invalidate, drops it.
type Engine struct {
	mu         sync.Mutex
	cache      *lru
	generation uint64
	group      singleflight.Group
	hits       atomic.Int64
	misses     atomic.Int64
	logger     *slog.Logger
}

func New(cacheSize int) *Engine {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Engine{
		cache:  newLRU(cacheSize),
		logger: slog.Default().With("component", "fuzzy-engine"),
	}
}

// Evaluate returns the documents of every index term within maxDistance of
// term. A negative maxDistance matches nothing. Callers must not modify the
// returned set.
func (e *Engine) Evaluate(term string, idx *index.InvertedIndex, maxDistance int) index.DocSet {
	set, _ := e.Search(term, idx, maxDistance)
	return set
}

// Search is Evaluate that also reports whether the result came from the
// memo table.
func (e *Engine) Search(term string, idx *index.InvertedIndex, maxDistance int) (index.DocSet, bool) {
	if maxDistance < 0 {
		return index.DocSet{}, false
	}
	key := cacheKey{term: term, maxDistance: maxDistance}
	gen := idx.Generation()

	e.mu.Lock()
	if e.generation != gen {
		if e.cache.len() > 0 {
			e.logger.Debug("index generation changed, dropping fuzzy cache",
				"old_generation", e.generation,
				"new_generation", gen,
			)
		}
		e.cache.clear()
		e.generation = gen
	}
	if set, ok := e.cache.get(key); ok {
		e.mu.Unlock()
		e.hits.Add(1)
		return set, true
	}
	e.mu.Unlock()
	e.misses.Add(1)

	flightKey := fmt.Sprintf("%d\x00%d\x00%s", gen, maxDistance, term)
	v, _, _ := e.group.Do(flightKey, func() (any, error) {
		return union(Expand(term, idx, maxDistance), idx), nil
	})
	set := v.(index.DocSet)

	e.mu.Lock()
	if e.generation == gen {
		e.cache.put(key, set)
	}
	e.mu.Unlock()
	return set, false
}

// Invalidate drops every memoised result. Call it whenever the index the
// engine serves is rebuilt.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.clear()
	e.generation = 0
}

// Stats returns memo table hits and misses since construction.
func (e *Engine) Stats() (hits, misses int64) {
	return e.hits.Load(), e.misses.Load()
}

// Len is the number of memoised results.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.len()
}

// Expand lists the index terms within maxDistance of term, closest first and
// then by term. Terms whose length differs from the query by more than
// maxDistance are skipped without computing a distance.
func Expand(term string, idx *index.InvertedIndex, maxDistance int) []Match {
	if maxDistance < 0 {
		return nil
	}
	qlen := utf8.RuneCountInString(term)
	var matches []Match
	idx.Range(func(candidate string, postings index.PostingList) bool {
		if abs(utf8.RuneCountInString(candidate)-qlen) > maxDistance {
			return true
		}
		if d := Distance(term, candidate); d <= maxDistance {
			matches = append(matches, Match{Term: candidate, Distance: d, DocFreq: len(postings)})
		}
		return true
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Term < matches[j].Term
	})
	return matches
}

func union(matches []Match, idx *index.InvertedIndex) index.DocSet {
	result := make(index.DocSet)
	for _, m := range matches {
		for _, p := range idx.Lookup(m.Term) {
			result.Add(p.DocID)
		}
	}
	return result
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
