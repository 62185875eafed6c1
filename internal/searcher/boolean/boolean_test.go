package boolean

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
)

func scenarioIndex() *index.InvertedIndex {
	return index.Build(map[int]string{
		1: "北京 天安门 广场",
		2: "上海 天安门 模型",
		3: "北京 上海 高铁",
	}, tokenizer.NewFields(tokenizer.Options{}))
}

func TestEvaluateScenario(t *testing.T) {
	idx := index.Build(map[int]string{
		1: "北京 天安门 广场",
		2: "上海 天安门 模型",
	}, tokenizer.NewFields(tokenizer.Options{}))

	assert.Equal(t, index.NewDocSet(1), Evaluate("北京 and 天安门", idx))
	assert.Equal(t, index.NewDocSet(1, 2), Evaluate("北京 or 上海", idx))
	assert.Equal(t, index.NewDocSet(2), Evaluate("天安门 not 北京", idx))
	assert.Equal(t, index.NewDocSet(1, 2), Evaluate("  天安门 ", idx))
}

func TestEvaluateOnAssembledPostings(t *testing.T) {
	idx := index.FromEntries([]index.TermEntry{
		{Term: "北京", Postings: index.PostingList{index.NewPosting(40, []int{2}), index.NewPosting(7, []int{0})}},
		{Term: "天安门", Postings: index.PostingList{index.NewPosting(7, []int{5}), index.NewPosting(12, []int{1})}},
	})

	assert.Equal(t, index.NewDocSet(7), Evaluate("北京 and 天安门", idx))
	assert.Equal(t, index.NewDocSet(7, 12, 40), Evaluate("北京 or 天安门", idx))
	assert.Equal(t, index.NewDocSet(40), Evaluate("北京 not 天安门", idx))
}

func TestEvaluateCaseInsensitiveConnectives(t *testing.T) {
	idx := scenarioIndex()
	assert.Equal(t, index.NewDocSet(1, 3), Evaluate("北京 AND 北京", idx))
	assert.Equal(t, index.NewDocSet(2), Evaluate("天安门 Not 北京", idx))
}

func TestEvaluateAbsentTerms(t *testing.T) {
	idx := scenarioIndex()
	assert.Empty(t, Evaluate("深圳", idx))
	assert.Empty(t, Evaluate("北京 and 深圳", idx))
	assert.Equal(t, index.NewDocSet(1, 3), Evaluate("北京 or 深圳", idx))
	assert.Equal(t, index.NewDocSet(1, 3), Evaluate("北京 not 深圳", idx))
	assert.Empty(t, Evaluate("深圳 not 北京", idx))
}

func TestConnectivePriority(t *testing.T) {
	tests := []struct {
		query    string
		op       Op
		operands []string
	}{
		{"a and b", OpAnd, []string{"a", "b"}},
		{"a or b and c", OpAnd, []string{"a or b", "c"}},
		{"a not b and c", OpAnd, []string{"a not b", "c"}},
		{"a not b or c", OpOr, []string{"a not b", "c"}},
		{"a not b not c", OpNot, []string{"a", "b not c"}},
		{"a and b and c", OpAnd, []string{"a", "b", "c"}},
		{"candor", OpTerm, []string{"candor"}},
		{" Single ", OpTerm, []string{"single"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			e := Parse(tt.query)
			assert.Equal(t, tt.op, e.Op)
			assert.Equal(t, tt.operands, e.Operands)
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Parse("北京 and 上海").Valid())
	assert.False(t, Parse("北京 and  ").Valid())
	assert.False(t, Parse(" not 北京").Valid())
	assert.False(t, Parse("").Valid())
}

func TestSetIdentities(t *testing.T) {
	idx := scenarioIndex()
	terms := idx.Terms()
	for _, a := range terms {
		for _, b := range terms {
			and := Evaluate(a+" and "+b, idx)
			or := Evaluate(a+" or "+b, idx)
			not := Evaluate(a+" not "+b, idx)
			da, db := Evaluate(a, idx), Evaluate(b, idx)

			assert.True(t, and.IsSubset(or), "%s and %s not within or", a, b)
			assert.Equal(t, index.Union(da, db), or)
			assert.Equal(t, index.Difference(da, db), not)
			assert.Equal(t, index.Intersect(da, db), and)
		}
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "and", OpAnd.String())
	assert.Equal(t, "or", OpOr.String())
	assert.Equal(t, "not", OpNot.String())
	assert.Equal(t, "term", OpTerm.String())
}
