// Package boolean evaluates two-operand AND / OR / NOT queries over an
// inverted index.
//
// A query honours a single connective type. The query is lower-cased and
// searched for " and ", then " or ", then " not "; the first type found
// decides the operation and any other connective text is treated as part of
// an operand. "a not b and c" is therefore an AND of "a not b" and "c".
package boolean

import (
	"strings"

	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
)

// Op is the set operation selected by a query's connective.
type Op int

const (
	OpTerm Op = iota
	OpAnd
	OpOr
	OpNot
)

func (o Op) String() string {
	switch o {
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpNot:
		return "not"
	default:
		return "term"
	}
}

const (
	connAnd = " and "
	connOr  = " or "
	connNot = " not "
)

// Expr is a parsed boolean query.
type Expr struct {
	Op       Op
	Operands []string
}

// Parse lower-cases query and splits it around its connective. Operands are
// trimmed. AND and OR split on every occurrence of their connective; NOT
// splits on the first occurrence only, giving exactly a term and an
// exclusion.
func Parse(query string) Expr {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, connAnd):
		return Expr{Op: OpAnd, Operands: trimAll(strings.Split(q, connAnd))}
	case strings.Contains(q, connOr):
		return Expr{Op: OpOr, Operands: trimAll(strings.Split(q, connOr))}
	case strings.Contains(q, connNot):
		return Expr{Op: OpNot, Operands: trimAll(strings.SplitN(q, connNot, 2))}
	default:
		return Expr{Op: OpTerm, Operands: []string{strings.TrimSpace(q)}}
	}
}

// Valid reports whether every operand is non-empty. Callers reject invalid
// expressions before evaluation.
func (e Expr) Valid() bool {
	for _, op := range e.Operands {
		if op == "" {
			return false
		}
	}
	return len(e.Operands) > 0
}

// Evaluate parses and evaluates query. Unknown terms contribute an empty set.
func Evaluate(query string, idx *index.InvertedIndex) index.DocSet {
	return Parse(query).Eval(idx)
}

// Eval evaluates the expression against idx.
func (e Expr) Eval(idx *index.InvertedIndex) index.DocSet {
	sets := make([]index.DocSet, len(e.Operands))
	for i, term := range e.Operands {
		sets[i] = idx.DocIDs(term)
	}
	switch e.Op {
	case OpAnd:
		return index.Intersect(sets...)
	case OpOr:
		return index.Union(sets...)
	case OpNot:
		return index.Difference(sets[0], sets[1])
	default:
		if len(sets) == 0 {
			return index.DocSet{}
		}
		return sets[0]
	}
}

func trimAll(parts []string) []string {
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
