package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
)

func TestReport(t *testing.T) {
	idx := index.Build(map[int]string{
		1: "北京 北京 上海",
		2: "北京 天津",
	}, tokenizer.NewFields(tokenizer.Options{}))

	var out bytes.Buffer
	require.NoError(t, report(&out, idx, 2))
	text := out.String()

	assert.Contains(t, text, "tokens")
	assert.Regexp(t, `1\s+北京\s+3\s+60\.00%`, text)
	assert.Regexp(t, `2\s+上海\s+1\s+20\.00%`, text)
	assert.NotContains(t, text, "天津")
}
