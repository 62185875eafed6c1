package tokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/pkg/config"
)

func TestFieldsTokenize(t *testing.T) {
	tok := NewFields(Options{})
	tokens := tok.Tokenize("北京 天安门，广场! 2024年 a 中 hello 上海")

	want := []Token{
		{Term: "北京", Position: 0},
		{Term: "天安门", Position: 1},
		{Term: "广场", Position: 2},
		{Term: "上海", Position: 3},
	}
	assert.Equal(t, want, tokens)
}

func TestFieldsStopwordsAndMinLength(t *testing.T) {
	tok := NewFields(Options{MinLength: 3, Stopwords: []string{"天安门"}})
	assert.Equal(t, []string{"博物馆"}, Terms(tok.Tokenize("北京 天安门 博物馆")))
}

func TestFieldsNormalizesCompatibilityForms(t *testing.T) {
	// U+F9DC is a compatibility ideograph that NFKC maps to U+9686.
	tok := NewFields(Options{})
	assert.Equal(t, []string{"\u9686盛"}, Terms(tok.Tokenize("\uF9DC盛")))
}

func TestSegmenterForwardMaximumMatching(t *testing.T) {
	seg := NewSegmenter([]string{"北京", "北京大学", "大学", "学生", "。"}, Options{})

	assert.Equal(t, []string{"北京大学", "学生", "在"}, seg.Segment("北京大学学生在"))
	assert.Equal(t, []string{"北京大学", "学生"}, Terms(seg.Tokenize("北京大学学生在")))
	assert.Equal(t, 5, seg.wordCount())
}

func TestSegmenterSkipsNonIdeographs(t *testing.T) {
	seg := NewSegmenter([]string{"模型"}, Options{})
	tokens := seg.Tokenize("abc模型，123模型")
	assert.Equal(t, []Token{{Term: "模型", Position: 0}, {Term: "模型", Position: 1}}, tokens)
}

func TestLoadDictionarySkipsPunctuation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte("北京\n，。\n\n  天安门  \n《》\n"), 0o644))

	words, err := LoadDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"北京", "天安门"}, words)
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	dict := filepath.Join(dir, "dict.txt")
	stop := filepath.Join(dir, "stop.txt")
	require.NoError(t, os.WriteFile(dict, []byte("天安门\n广场\n"), 0o644))
	require.NoError(t, os.WriteFile(stop, []byte("广场\n"), 0o644))

	tok, err := New(config.TokenizerConfig{Mode: "dictionary", DictionaryFile: dict, StopwordsFile: stop})
	require.NoError(t, err)
	assert.IsType(t, &Segmenter{}, tok)
	assert.Equal(t, []string{"天安门"}, Terms(tok.Tokenize("天安门广场")))

	tok, err = New(config.TokenizerConfig{Mode: "fields"})
	require.NoError(t, err)
	assert.IsType(t, &Fields{}, tok)

	_, err = New(config.TokenizerConfig{Mode: "jieba"})
	assert.Error(t, err)

	_, err = New(config.TokenizerConfig{Mode: "dictionary", DictionaryFile: filepath.Join(dir, "missing.txt")})
	assert.Error(t, err)
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := NewFields(Options{})
	text := "上海 天安门 模型 天安门"
	assert.Equal(t, tok.Tokenize(text), tok.Tokenize(text))
}

func BenchmarkFieldsTokenize(b *testing.B) {
	tok := NewFields(Options{})
	text := "北京 天安门 广场 上海 天安门 模型 信息 检索 倒排 索引 短语 查询"
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = tok.Tokenize(text)
	}
}
