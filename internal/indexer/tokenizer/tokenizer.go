// Package tokenizer turns raw document text into the ordered sequence of
// normalised terms the index is built from. Terms are runs of at least two
// CJK unified ideographs; punctuation, digits, latin text, single characters
// and stopwords never become terms.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/BronsonLau/NLP-Course/pkg/config"
)

// Token represents a single normalised term and its position in the
// document's term sequence.
type Token struct {
	Term     string
	Position int
}

// Tokenizer is the normaliser contract consumed by the index and the
// phrase engine. Implementations must be deterministic.
type Tokenizer interface {
	Tokenize(text string) []Token
}

// Terms returns just the term strings of tokens, in order.
func Terms(tokens []Token) []string {
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

// Options configures the term filter shared by every tokenizer.
type Options struct {
	// MinLength is the minimum number of ideographs in a term. Values below 1
	// fall back to 2.
	MinLength int
	Stopwords []string
}

type filter struct {
	minLen    int
	stopwords map[string]struct{}
}

func newFilter(opts Options) filter {
	f := filter{minLen: opts.MinLength, stopwords: make(map[string]struct{}, len(opts.Stopwords))}
	if f.minLen < 1 {
		f.minLen = 2
	}
	for _, w := range opts.Stopwords {
		if w = strings.TrimSpace(w); w != "" {
			f.stopwords[w] = struct{}{}
		}
	}
	return f
}

// keep reports whether word is a multi-character ideographic term that is
// not a stopword.
func (f filter) keep(word string) bool {
	if utf8.RuneCountInString(word) < f.minLen {
		return false
	}
	for _, r := range word {
		if !IsIdeograph(r) {
			return false
		}
	}
	_, stop := f.stopwords[word]
	return !stop
}

// apply filters words and assigns consecutive positions to the survivors.
func (f filter) apply(words []string) []Token {
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, w := range words {
		if !f.keep(w) {
			continue
		}
		tokens = append(tokens, Token{Term: w, Position: pos})
		pos++
	}
	return tokens
}

// IsIdeograph reports whether r is in the basic CJK unified ideograph block
// U+4E00..U+9FA5.
func IsIdeograph(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FA5
}

func normalize(text string) string {
	return norm.NFKC.String(text)
}

// New builds the tokenizer selected by cfg, loading dictionary and stopword
// files as needed.
func New(cfg config.TokenizerConfig) (Tokenizer, error) {
	opts := Options{MinLength: cfg.MinTermLength}
	if cfg.StopwordsFile != "" {
		stopwords, err := LoadWordList(cfg.StopwordsFile)
		if err != nil {
			return nil, fmt.Errorf("loading stopwords: %w", err)
		}
		opts.Stopwords = stopwords
	}
	switch cfg.Mode {
	case "", "fields":
		return NewFields(opts), nil
	case "dictionary":
		words, err := LoadDictionary(cfg.DictionaryFile)
		if err != nil {
			return nil, fmt.Errorf("loading dictionary: %w", err)
		}
		return NewSegmenter(words, opts), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer mode %q", cfg.Mode)
	}
}
