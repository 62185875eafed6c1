package phrase

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
	"github.com/BronsonLau/NLP-Course/internal/searcher/boolean"
)

func newEngine() *Engine {
	return New(tokenizer.NewFields(tokenizer.Options{}))
}

func TestEvaluateScenario(t *testing.T) {
	docs := map[int]string{
		1: "北京 天安门 广场",
		2: "上海 天安门 模型",
	}
	e := newEngine()
	idx := index.Build(docs, tokenizer.NewFields(tokenizer.Options{}))

	assert.Equal(t, index.NewDocSet(1), e.Evaluate("天安门 广场", idx))
	assert.Equal(t, index.NewDocSet(1), e.Scan("天安门 广场", docs))
	assert.Equal(t, index.NewDocSet(1, 2), e.Evaluate("天安门", idx))
	assert.Empty(t, e.Evaluate("广场 天安门", idx), "order matters")
	assert.Empty(t, e.Evaluate("北京 广场", idx), "terms must be adjacent")
}

func TestEvaluateOnAssembledPostings(t *testing.T) {
	idx := index.FromEntries([]index.TermEntry{
		{Term: "天安门", Postings: index.PostingList{index.NewPosting(7, []int{0}), index.NewPosting(5, []int{3, 10})}},
		{Term: "广场", Postings: index.PostingList{index.NewPosting(5, []int{11}), index.NewPosting(7, []int{2})}},
	})
	e := newEngine()

	assert.Equal(t, index.NewDocSet(5), e.Evaluate("天安门 广场", idx), "only the later occurrence is adjacent")
	assert.Empty(t, e.Evaluate("广场 天安门", idx))
	assert.Equal(t, index.NewDocSet(5, 7), e.Evaluate("天安门", idx))
}

func TestEvaluateEdgeCases(t *testing.T) {
	docs := map[int]string{
		1: "信息 检索 信息 检索 模型",
		2: "检索 信息 模型",
	}
	e := newEngine()
	idx := index.Build(docs, tokenizer.NewFields(tokenizer.Options{}))

	assert.Empty(t, e.Evaluate("", idx))
	assert.Empty(t, e.Evaluate("!!! 1234", idx), "query without terms")
	assert.Empty(t, e.Evaluate("信息 深圳", idx), "absent term short-circuits")
	assert.Equal(t, index.NewDocSet(1), e.Evaluate("检索 信息 检索", idx))
	assert.Equal(t, index.NewDocSet(2), e.Evaluate("信息 模型", idx))
	assert.Equal(t, index.NewDocSet(1, 2), index.Union(e.Evaluate("信息 模型", idx), e.Evaluate("检索 模型", idx)))
	assert.Equal(t, index.NewDocSet(1), e.Evaluate("信息 检索 信息 检索 模型", idx))
}

func TestMatchRepeatedTerm(t *testing.T) {
	idx := index.Build(map[int]string{
		1: "好的 好的",
		2: "好的 不行 好的",
	}, tokenizer.NewFields(tokenizer.Options{}))
	assert.Equal(t, index.NewDocSet(1), Match([]string{"好的", "好的"}, idx))
}

func TestScanEqualsEvaluate(t *testing.T) {
	words := []string{"北京", "天安门", "广场", "上海", "模型"}
	rng := rand.New(rand.NewSource(3))
	docs := make(map[int]string)
	for id := 1; id <= 40; id++ {
		n := rng.Intn(12)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = words[rng.Intn(len(words))]
		}
		docs[id] = strings.Join(parts, " ")
	}
	e := newEngine()
	idx := index.Build(docs, tokenizer.NewFields(tokenizer.Options{}))

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(3)
		parts := make([]string, n)
		for i := range parts {
			parts[i] = words[rng.Intn(len(words))]
		}
		q := strings.Join(parts, " ")
		require.Equal(t, e.Scan(q, docs), e.Evaluate(q, idx), "query %q", q)
	}
}

func TestPhraseImpliesBooleanAnd(t *testing.T) {
	docs := map[int]string{
		1: "北京 天安门 广场",
		2: "上海 天安门 模型",
		3: "天安门 北京",
	}
	e := newEngine()
	idx := index.Build(docs, tokenizer.NewFields(tokenizer.Options{}))

	for _, x := range idx.Terms() {
		for _, y := range idx.Terms() {
			got := e.Evaluate(x+" "+y, idx)
			assert.True(t, got.IsSubset(boolean.Evaluate(x+" and "+y, idx)), "%s %s", x, y)
		}
	}
}
