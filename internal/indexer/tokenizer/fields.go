package tokenizer

import "strings"

// Fields splits text on every rune that is not an ideograph. It suits
// corpora that are already segmented with whitespace or punctuation.
type Fields struct {
	filter filter
}

func NewFields(opts Options) *Fields {
	return &Fields{filter: newFilter(opts)}
}

func (f *Fields) Tokenize(text string) []Token {
	words := strings.FieldsFunc(normalize(text), func(r rune) bool {
		return !IsIdeograph(r)
	})
	return f.filter.apply(words)
}
