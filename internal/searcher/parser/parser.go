// Package parser classifies raw query strings into boolean, phrase or fuzzy
// plans and rejects malformed input before it reaches the engines.
package parser

import (
	"strings"

	"github.com/BronsonLau/NLP-Course/internal/searcher/boolean"
	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
)

type Mode string

const (
	ModeBoolean Mode = "boolean"
	ModePhrase  Mode = "phrase"
	ModeFuzzy   Mode = "fuzzy"
)

const (
	phraseMarker = `"`
	fuzzyMarker  = "~"
)

type QueryPlan struct {
	Mode     Mode
	RawQuery string
	// Text is the query with its mode markers removed.
	Text        string
	MaxDistance int
	// Expr is set for boolean plans only.
	Expr boolean.Expr
	// Explain asks fuzzy evaluation to report the matched terms.
	Explain bool
}

// Parse classifies query. A query containing a double quote is a phrase
// query; otherwise one containing '~' is a fuzzy query evaluated with
// maxDistance; anything else is boolean.
func Parse(query string, maxDistance int) (*QueryPlan, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, apperrors.InvalidInputf("empty query")
	}
	plan := &QueryPlan{RawQuery: query}

	switch {
	case strings.Contains(query, phraseMarker):
		plan.Mode = ModePhrase
		plan.Text = strings.TrimSpace(strings.Trim(trimmed, phraseMarker))
		if plan.Text == "" {
			return nil, apperrors.InvalidInputf("empty phrase in %q", query)
		}
	case strings.Contains(query, fuzzyMarker):
		plan.Mode = ModeFuzzy
		plan.Text = strings.TrimSpace(strings.Trim(trimmed, fuzzyMarker))
		if plan.Text == "" {
			return nil, apperrors.InvalidInputf("empty fuzzy term in %q", query)
		}
		if maxDistance < 0 {
			return nil, apperrors.InvalidInputf("fuzzy distance must be non-negative, got %d", maxDistance)
		}
		plan.MaxDistance = maxDistance
	default:
		plan.Mode = ModeBoolean
		plan.Expr = boolean.Parse(query)
		if !plan.Expr.Valid() {
			return nil, apperrors.InvalidInputf("%s query %q has an empty operand", plan.Expr.Op, query)
		}
		plan.Text = strings.TrimSpace(strings.ToLower(query))
	}
	return plan, nil
}
