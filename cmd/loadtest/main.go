package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BronsonLau/NLP-Course/internal/searcher/parser"
)

var defaultQueries = []string{
	"北京",
	"北京 and 天安门",
	"北京 or 上海",
	"北京 not 上海",
	"上海 and 外滩 and 夜景",
	`"天安门 广场"`,
	`"北京 故宫 博物院"`,
	"北京~",
	"上海市~",
	"天安门~",
}

type workload struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	distance    int
	rps         float64
	queries     []string
	modes       []parser.Mode
}

// modeStats accumulates latencies for one query mode.
type modeStats struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *modeStats) add(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

type stats struct {
	total       atomic.Int64
	success     atomic.Int64
	failed      atomic.Int64
	rateLimited atomic.Int64
	byMode      map[parser.Mode]*modeStats
	codesMu     sync.Mutex
	codes       map[int]int64
}

func newStats() *stats {
	return &stats{
		byMode: map[parser.Mode]*modeStats{
			parser.ModeBoolean: {},
			parser.ModePhrase:  {},
			parser.ModeFuzzy:   {},
		},
		codes: make(map[int]int64),
	}
}

func (s *stats) record(mode parser.Mode, d time.Duration, code int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	s.codesMu.Lock()
	s.codes[code]++
	s.codesMu.Unlock()

	switch {
	case code == http.StatusTooManyRequests:
		s.rateLimited.Add(1)
	case code >= 200 && code < 300:
		s.success.Add(1)
		s.byMode[mode].add(d)
	default:
		s.failed.Add(1)
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	distance := flag.Int("distance", 1, "fuzzy edit distance sent with fuzzy queries")
	rps := flag.Float64("rps", 0, "overall request rate cap (0 for unlimited)")
	queryFile := flag.String("queries", "", "file with one query per line (defaults to a built-in mix)")
	flag.Parse()

	queries := defaultQueries
	if *queryFile != "" {
		loaded, err := readQueries(*queryFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
			os.Exit(1)
		}
		queries = loaded
	}

	w, err := newWorkload(*baseURL, *concurrency, *duration, *distance, *rps, queries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== lexsearch load test ===")
	fmt.Printf("Target:      %s\n", w.baseURL)
	fmt.Printf("Concurrency: %d\n", w.concurrency)
	fmt.Printf("Duration:    %s\n", w.duration)
	fmt.Printf("Queries:     %d unique\n", len(w.queries))
	if w.rps > 0 {
		fmt.Printf("Rate cap:    %.0f req/s\n", w.rps)
	}
	fmt.Println()

	s := run(w)
	if report(os.Stdout, s, w.duration) == 0 {
		fmt.Println("WARNING: no requests completed. Is the service running?")
		os.Exit(1)
	}
}

// newWorkload classifies every query up front so malformed ones fail
// before any traffic is sent.
func newWorkload(baseURL string, concurrency int, duration time.Duration, distance int, rps float64, queries []string) (*workload, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries to send")
	}
	w := &workload{
		baseURL:     strings.TrimRight(baseURL, "/"),
		concurrency: max(concurrency, 1),
		duration:    duration,
		distance:    distance,
		rps:         rps,
		queries:     queries,
		modes:       make([]parser.Mode, len(queries)),
	}
	for i, q := range queries {
		plan, err := parser.Parse(q, distance)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q, err)
		}
		w.modes[i] = plan.Mode
	}
	return w, nil
}

func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if q := strings.TrimSpace(scanner.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	return queries, scanner.Err()
}

func (w *workload) searchURL(i int) string {
	v := url.Values{"q": {w.queries[i]}}
	if w.modes[i] == parser.ModeFuzzy {
		v.Set("distance", fmt.Sprint(w.distance))
	}
	return w.baseURL + "/api/v1/search?" + v.Encode()
}

func run(w *workload) *stats {
	s := newStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        w.concurrency * 2,
			MaxIdleConnsPerHost: w.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if w.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(w.rps), max(1, int(w.rps/10)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for worker := 0; worker < w.concurrency; worker++ {
		g.Go(func() error {
			for i := worker; ctx.Err() == nil; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				qi := i % len(w.queries)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.searchURL(qi), nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						s.record(w.modes[qi], elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				s.record(w.modes[qi], elapsed, resp.StatusCode, nil)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "load test aborted: %v\n", err)
	}
	return s
}

// report prints the summary and returns the number of requests sent.
func report(out io.Writer, s *stats, duration time.Duration) int64 {
	total := s.total.Load()
	fmt.Fprintln(out, "=== Results ===")
	fmt.Fprintf(out, "Total Requests:  %d\n", total)
	fmt.Fprintf(out, "Successful:      %d\n", s.success.Load())
	fmt.Fprintf(out, "Rate limited:    %d\n", s.rateLimited.Load())
	fmt.Fprintf(out, "Failed:          %d\n", s.failed.Load())
	if total > 0 && duration > 0 {
		fmt.Fprintf(out, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Latency by mode ===")
	for _, mode := range []parser.Mode{parser.ModeBoolean, parser.ModePhrase, parser.ModeFuzzy} {
		ms := s.byMode[mode]
		ms.mu.Lock()
		latencies := append([]time.Duration(nil), ms.latencies...)
		ms.mu.Unlock()
		if len(latencies) == 0 {
			continue
		}
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Fprintf(out, "%-8s n=%-7d p50=%-10s p95=%-10s p99=%-10s max=%s\n",
			mode, len(latencies),
			percentile(latencies, 50), percentile(latencies, 95), percentile(latencies, 99),
			latencies[len(latencies)-1])
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Status Codes ===")
	s.codesMu.Lock()
	codes := make([]int, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(out, "  %d: %d\n", code, s.codes[code])
	}
	s.codesMu.Unlock()
	return total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
