package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/internal/searcher/parser"
)

func TestNewWorkloadClassifiesQueries(t *testing.T) {
	w, err := newWorkload("http://x/", 0, time.Second, 2, 0, []string{"北京 and 上海", `"天安门 广场"`, "北京~"})
	require.NoError(t, err)
	assert.Equal(t, []parser.Mode{parser.ModeBoolean, parser.ModePhrase, parser.ModeFuzzy}, w.modes)
	assert.Equal(t, 1, w.concurrency)

	u, err := url.Parse(w.searchURL(2))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/search", u.Path)
	assert.Equal(t, "北京~", u.Query().Get("q"))
	assert.Equal(t, "2", u.Query().Get("distance"))

	u, err = url.Parse(w.searchURL(0))
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("distance"))
}

func TestNewWorkloadRejectsMalformedQueries(t *testing.T) {
	_, err := newWorkload("http://x", 1, time.Second, 1, 0, []string{"北京 and "})
	assert.Error(t, err)

	_, err = newWorkload("http://x", 1, time.Second, 1, 0, nil)
	assert.Error(t, err)
}

func TestRunAndReport(t *testing.T) {
	var n atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n.Add(1)%5 == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"doc_ids":[1]}`))
	}))
	defer srv.Close()

	w, err := newWorkload(srv.URL, 2, 200*time.Millisecond, 1, 200, defaultQueries)
	require.NoError(t, err)
	s := run(w)

	var out bytes.Buffer
	total := report(&out, s, w.duration)
	assert.Positive(t, total)
	assert.Positive(t, s.success.Load())
	assert.Contains(t, out.String(), "=== Latency by mode ===")
	assert.Contains(t, out.String(), "200:")
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(0), percentile(nil, 50))
}
