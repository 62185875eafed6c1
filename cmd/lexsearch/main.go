package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BronsonLau/NLP-Course/internal/corpus"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
	"github.com/BronsonLau/NLP-Course/internal/searcher/executor"
	"github.com/BronsonLau/NLP-Course/internal/searcher/parser"
	"github.com/BronsonLau/NLP-Course/pkg/config"
	"github.com/BronsonLau/NLP-Course/pkg/logger"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
)

const quitCommand = "quit"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	distance := flag.Int("distance", -1, "fuzzy edit distance (defaults to search.defaultFuzzyDistance)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if *distance < 0 {
		*distance = cfg.Search.DefaultFuzzyDistance
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec, err := buildExecutor(ctx, cfg)
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}

	if err := repl(ctx, exec, os.Stdin, os.Stdout, *distance); err != nil {
		slog.Error("repl error", "error", err)
		os.Exit(1)
	}
}

func buildExecutor(ctx context.Context, cfg *config.Config) (*executor.Executor, error) {
	tok, err := tokenizer.New(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	var pg *postgres.Client
	if cfg.Corpus.Source == "postgres" {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		defer pg.Close()
	}
	src, err := corpus.New(cfg.Corpus, pg)
	if err != nil {
		return nil, err
	}
	exec := executor.New(tok, executor.Options{
		BuildWorkers:   cfg.Index.BuildWorkers,
		BuildTimeout:   cfg.Index.BuildTimeout,
		FuzzyCacheSize: cfg.Search.FuzzyCacheSize,
		PhraseStrategy: cfg.Search.PhraseStrategy,
	})
	if _, err := exec.Reload(ctx, src); err != nil {
		return nil, err
	}
	return exec, nil
}

// repl answers one query per line until quit or end of input.
func repl(ctx context.Context, exec *executor.Executor, in io.Reader, out io.Writer, distance int) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintf(out, "enter a query (%q to exit)\n> ", quitCommand)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == quitCommand {
			return nil
		}
		if line != "" {
			answer(ctx, exec, out, line, distance)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func answer(ctx context.Context, exec *executor.Executor, out io.Writer, query string, distance int) {
	start := time.Now()
	plan, err := parser.Parse(query, distance)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	result, err := exec.Execute(ctx, plan)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s query, %d documents: %v\n", result.Mode, result.TotalHits, result.DocIDs)
	fmt.Fprintf(out, "elapsed %s\n", time.Since(start))
}
