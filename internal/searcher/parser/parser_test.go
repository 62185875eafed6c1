package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/internal/searcher/boolean"
	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
)

func TestParseModes(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantMode Mode
		wantText string
	}{
		{"phrase", `"天安门 广场"`, ModePhrase, "天安门 广场"},
		{"phrase with one quote", `天安门 广场"`, ModePhrase, "天安门 广场"},
		{"phrase wins over fuzzy", `"天安门~"`, ModePhrase, "天安门~"},
		{"fuzzy", "~天安们~", ModeFuzzy, "天安们"},
		{"fuzzy suffix only", "天安们~", ModeFuzzy, "天安们"},
		{"padded fuzzy", " ~天安们~ ", ModeFuzzy, "天安们"},
		{"padded phrase", " \"天安门 广场\"\t", ModePhrase, "天安门 广场"},
		{"boolean term", "  天安门 ", ModeBoolean, "天安门"},
		{"boolean and", "北京 AND 天安门", ModeBoolean, "北京 and 天安门"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Parse(tt.query, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, plan.Mode)
			assert.Equal(t, tt.wantText, plan.Text)
			assert.Equal(t, tt.query, plan.RawQuery)
		})
	}
}

func TestParseBooleanExpr(t *testing.T) {
	plan, err := Parse("天安门 NOT 北京", 0)
	require.NoError(t, err)
	assert.Equal(t, boolean.Expr{Op: boolean.OpNot, Operands: []string{"天安门", "北京"}}, plan.Expr)
}

func TestParseFuzzyDistance(t *testing.T) {
	plan, err := Parse("~天安们~", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, plan.MaxDistance)

	plan, err = Parse("天安门", 2)
	require.NoError(t, err)
	assert.Zero(t, plan.MaxDistance, "distance only applies to fuzzy plans")
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		distance int
	}{
		{"empty", "", 1},
		{"blank", "   ", 1},
		{"empty phrase", `""`, 1},
		{"empty fuzzy", "~~", 1},
		{"negative distance", "~天安们~", -1},
		{"dangling and", "北京 and ", 1},
		{"leading or", " or 上海", 1},
		{"empty middle operand", "北京 and  and 上海", 1},
		{"dangling not", "天安门 not ", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Parse(tt.query, tt.distance)
			assert.Nil(t, plan)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		})
	}
}
