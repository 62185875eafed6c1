// Package phrase matches exact, consecutive term sequences.
package phrase

import (
	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
)

// Engine evaluates phrase queries. The tokenizer must be the one the index
// was built with.
type Engine struct {
	tok tokenizer.Tokenizer
}

func New(tok tokenizer.Tokenizer) *Engine {
	return &Engine{tok: tok}
}

// Terms normalises a phrase query into its term sequence.
func (e *Engine) Terms(query string) []string {
	return tokenizer.Terms(e.tok.Tokenize(query))
}

// Evaluate returns the documents in which the query's terms occur as an
// unbroken run, using the positional postings of idx.
func (e *Engine) Evaluate(query string, idx *index.InvertedIndex) index.DocSet {
	return Match(e.Terms(query), idx)
}

// Match is Evaluate for an already normalised term sequence.
func Match(terms []string, idx *index.InvertedIndex) index.DocSet {
	result := make(index.DocSet)
	if len(terms) == 0 {
		return result
	}
	lists := make([]index.PostingList, len(terms))
	for i, term := range terms {
		lists[i] = idx.Lookup(term)
		if len(lists[i]) == 0 {
			return result
		}
	}

	for _, first := range lists[0] {
		others := make([]index.Posting, len(terms)-1)
		common := true
		for i := 1; i < len(terms); i++ {
			p, ok := lists[i].Find(first.DocID)
			if !ok {
				common = false
				break
			}
			others[i-1] = p
		}
		if !common {
			continue
		}
		if consecutive(first, others) {
			result.Add(first.DocID)
		}
	}
	return result
}

// consecutive reports whether some start offset p of first has p+i in the
// offsets of others[i-1] for every i.
func consecutive(first index.Posting, others []index.Posting) bool {
	sets := make([]map[int]struct{}, len(others))
	for i, p := range others {
		positions := p.Positions()
		set := make(map[int]struct{}, len(positions))
		for _, pos := range positions {
			set[pos] = struct{}{}
		}
		sets[i] = set
	}
	for _, start := range first.Positions() {
		match := true
		for i, set := range sets {
			if _, ok := set[start+i+1]; !ok {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// Scan evaluates the query directly against raw documents by re-tokenising
// each one and sliding a window over its term sequence. It returns the same
// result as Evaluate over an index built from docs with the same tokenizer.
func (e *Engine) Scan(query string, docs map[int]string) index.DocSet {
	terms := e.Terms(query)
	result := make(index.DocSet)
	if len(terms) == 0 {
		return result
	}
	for id, text := range docs {
		words := e.Terms(text)
		for start := 0; start+len(terms) <= len(words); start++ {
			if equalAt(words, start, terms) {
				result.Add(id)
				break
			}
		}
	}
	return result
}

func equalAt(words []string, start int, terms []string) bool {
	for i, term := range terms {
		if words[start+i] != term {
			return false
		}
	}
	return true
}
