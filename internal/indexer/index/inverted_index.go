package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
)

var generations atomic.Uint64

// InvertedIndex maps each term to its postings. It is built once and never
// mutated afterwards, so any number of goroutines may read it.
type InvertedIndex struct {
	postings   map[string]PostingList
	docLengths map[int]int
	tokenCount  int
	generation  uint64
	fingerprint string
}

// Build indexes docs in ascending id order, which keeps every term's
// postings sorted by document id.
func Build(docs map[int]string, tok tokenizer.Tokenizer) *InvertedIndex {
	ids := sortedIDs(docs)
	b := newBuilder(len(ids))
	for _, id := range ids {
		b.add(id, tok.Tokenize(docs[id]))
	}
	return b.finish()
}

// BuildParallel tokenizes documents on up to workers goroutines, then merges
// them serially in ascending id order. The result is identical to Build.
func BuildParallel(ctx context.Context, docs map[int]string, tok tokenizer.Tokenizer, workers int) (*InvertedIndex, error) {
	if workers < 1 {
		workers = 1
	}
	ids := sortedIDs(docs)
	tokenized := make([][]tokenizer.Token, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokenized[i] = tok.Tokenize(docs[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("tokenizing corpus: %w", err)
	}

	b := newBuilder(len(ids))
	for i, id := range ids {
		b.add(id, tokenized[i])
	}
	return b.finish(), nil
}

// FromEntries assembles an index from ready-made postings. Postings are
// sorted by document id; each entry must hold at most one posting per
// document.
func FromEntries(entries []TermEntry) *InvertedIndex {
	b := newBuilder(0)
	for _, e := range entries {
		pl := make(PostingList, len(e.Postings))
		copy(pl, e.Postings)
		sort.Slice(pl, func(i, j int) bool { return pl[i].DocID < pl[j].DocID })
		b.postings[e.Term] = pl
		for _, p := range pl {
			b.docLengths[p.DocID] += p.Frequency()
			b.tokenCount += p.Frequency()
		}
	}
	return b.finish()
}

// Lookup returns the postings for term, or nil when the term is absent.
// Callers must not modify the returned list.
func (idx *InvertedIndex) Lookup(term string) PostingList {
	return idx.postings[term]
}

// DocIDs returns the documents containing term; empty when absent.
func (idx *InvertedIndex) DocIDs(term string) DocSet {
	return idx.postings[term].DocIDs()
}

// Terms returns every indexed term in lexical order.
func (idx *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Range calls fn for every term until fn returns false. Order is unspecified.
func (idx *InvertedIndex) Range(fn func(term string, postings PostingList) bool) {
	for term, pl := range idx.postings {
		if !fn(term, pl) {
			return
		}
	}
}

func (idx *InvertedIndex) TermCount() int {
	return len(idx.postings)
}

// DocCount is the number of documents the index was built from, including
// documents that produced no terms.
func (idx *InvertedIndex) DocCount() int {
	return len(idx.docLengths)
}

// docLength is the number of terms indexed for docID.
func (idx *InvertedIndex) docLength(docID int) int {
	return idx.docLengths[docID]
}

// TokenCount is the total number of indexed term occurrences.
func (idx *InvertedIndex) TokenCount() int {
	return idx.tokenCount
}

// Generation numbers builds within the process. It restarts with every
// process, so anything shared between processes keys on Fingerprint.
func (idx *InvertedIndex) Generation() uint64 {
	return idx.generation
}

// Fingerprint is a digest of the indexed content: documents, terms and
// offsets. Equal fingerprints answer every query identically, whichever
// process or build produced them.
func (idx *InvertedIndex) Fingerprint() string {
	return idx.fingerprint
}

type builder struct {
	postings   map[string]PostingList
	docLengths map[int]int
	tokenCount int
}

func newBuilder(docs int) *builder {
	return &builder{
		postings:   make(map[string]PostingList),
		docLengths: make(map[int]int, docs),
	}
}

// add must be called in ascending docID order.
func (b *builder) add(docID int, tokens []tokenizer.Token) {
	b.docLengths[docID] = len(tokens)
	b.tokenCount += len(tokens)
	if len(tokens) == 0 {
		return
	}
	positions := make(map[string][]int)
	order := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, seen := positions[tok.Term]; !seen {
			order = append(order, tok.Term)
		}
		positions[tok.Term] = append(positions[tok.Term], tok.Position)
	}
	for _, term := range order {
		b.postings[term] = append(b.postings[term], NewPosting(docID, positions[term]))
	}
}

func (b *builder) finish() *InvertedIndex {
	return &InvertedIndex{
		postings:    b.postings,
		docLengths:  b.docLengths,
		tokenCount:  b.tokenCount,
		generation:  generations.Add(1),
		fingerprint: b.digest(),
	}
}

// digest hashes documents and postings in a canonical order. Every field is
// length-prefixed so distinct contents cannot serialise alike.
func (b *builder) digest() string {
	h := xxhash.New()
	var buf [binary.MaxVarintLen64]byte
	putInt := func(v int) {
		h.Write(buf[:binary.PutVarint(buf[:], int64(v))])
	}

	ids := make([]int, 0, len(b.docLengths))
	for id := range b.docLengths {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	putInt(len(ids))
	for _, id := range ids {
		putInt(id)
		putInt(b.docLengths[id])
	}

	terms := make([]string, 0, len(b.postings))
	for term := range b.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	putInt(len(terms))
	for _, term := range terms {
		putInt(len(term))
		h.WriteString(term)
		pl := b.postings[term]
		putInt(len(pl))
		for _, p := range pl {
			putInt(p.DocID)
			putInt(len(p.Deltas))
			for _, d := range p.Deltas {
				putInt(d)
			}
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func sortedIDs(docs map[int]string) []int {
	ids := make([]int, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
