package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
	"github.com/BronsonLau/NLP-Course/internal/searcher/executor"
)

func TestReplAnswersUntilQuit(t *testing.T) {
	exec := executor.New(tokenizer.NewFields(tokenizer.Options{}), executor.Options{})
	_, err := exec.Rebuild(context.Background(), map[int]string{
		1: "北京 天安门 广场",
		2: "上海 外滩",
		3: "北京 故宫",
	})
	require.NoError(t, err)

	in := strings.NewReader("北京\n\n\"天安门 广场\"\n北京 and  and 上海\nquit\n上海\n")
	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), exec, in, &out, 1))

	text := out.String()
	assert.Contains(t, text, "boolean query, 2 documents: [1 3]")
	assert.Contains(t, text, "phrase query, 1 documents: [1]")
	assert.Contains(t, text, "error: invalid input")
	assert.NotContains(t, text, "[2]")
}

func TestReplStopsAtEOF(t *testing.T) {
	exec := executor.New(tokenizer.NewFields(tokenizer.Options{}), executor.Options{})
	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), exec, strings.NewReader("北京\n"), &out, 1))
	assert.Contains(t, out.String(), "error: index not ready")
}
