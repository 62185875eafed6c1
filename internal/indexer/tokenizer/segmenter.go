package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Segmenter performs forward maximum matching against a word dictionary.
// At each offset it takes the longest dictionary word; when none matches, a
// lone ideograph is emitted and any other rune is skipped.
type Segmenter struct {
	dict   *trie
	filter filter
}

func NewSegmenter(words []string, opts Options) *Segmenter {
	t := newTrie()
	for _, w := range words {
		if w = normalize(strings.TrimSpace(w)); w != "" {
			t.insert(w)
		}
	}
	return &Segmenter{dict: t, filter: newFilter(opts)}
}

func (s *Segmenter) Tokenize(text string) []Token {
	return s.filter.apply(s.Segment(text))
}

// Segment returns the raw segmentation before term filtering.
func (s *Segmenter) Segment(text string) []string {
	runes := []rune(normalize(text))
	segments := make([]string, 0, len(runes)/2)
	for i := 0; i < len(runes); {
		if n := s.dict.longestPrefix(runes[i:]); n > 0 {
			segments = append(segments, string(runes[i:i+n]))
			i += n
			continue
		}
		if IsIdeograph(runes[i]) {
			segments = append(segments, string(runes[i]))
		}
		i++
	}
	return segments
}

// wordCount returns the number of dictionary entries.
func (s *Segmenter) wordCount() int {
	return s.dict.size
}

// LoadDictionary reads one word per line, skipping blank lines and lines made
// only of punctuation.
func LoadDictionary(path string) ([]string, error) {
	lines, err := LoadWordList(path)
	if err != nil {
		return nil, err
	}
	words := lines[:0]
	for _, line := range lines {
		if isAllPunctuation(line) {
			continue
		}
		words = append(words, line)
	}
	return words, nil
}

// LoadWordList reads one trimmed, non-empty entry per line.
func LoadWordList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening word list %s: %w", path, err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading word list %s: %w", path, err)
	}
	return words, nil
}

const cjkPunctuation = "，。！？、；：“”‘’—…【】《》（）〈〉"

func isAllPunctuation(word string) bool {
	for _, r := range word {
		if !strings.ContainsRune(cjkPunctuation, r) {
			return false
		}
	}
	return true
}
