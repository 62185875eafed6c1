package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/BronsonLau/NLP-Course/internal/corpus"
	"github.com/BronsonLau/NLP-Course/internal/indexer/index"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
	"github.com/BronsonLau/NLP-Course/pkg/config"
	"github.com/BronsonLau/NLP-Course/pkg/logger"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	top := flag.Int("top", 0, "number of terms to print (defaults to search.topTermsLimit, negative prints all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if *top == 0 {
		*top = cfg.Search.TopTermsLimit
	}

	ctx := context.Background()
	tok, err := tokenizer.New(cfg.Tokenizer)
	if err != nil {
		slog.Error("failed to create tokenizer", "error", err)
		os.Exit(1)
	}
	var pg *postgres.Client
	if cfg.Corpus.Source == "postgres" {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	}
	src, err := corpus.New(cfg.Corpus, pg)
	if err != nil {
		slog.Error("failed to create corpus source", "error", err)
		os.Exit(1)
	}
	docs, err := src.Load(ctx)
	if err != nil {
		slog.Error("failed to load corpus", "error", err)
		os.Exit(1)
	}

	idx, err := index.BuildParallel(ctx, docs, tok, cfg.Index.BuildWorkers)
	if err != nil {
		slog.Error("failed to build index", "error", err)
		os.Exit(1)
	}
	if err := report(os.Stdout, idx, *top); err != nil {
		slog.Error("failed to write report", "error", err)
		os.Exit(1)
	}
}

func report(w io.Writer, idx *index.InvertedIndex, n int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "documents\t%d\n", idx.DocCount())
	fmt.Fprintf(tw, "terms\t%d\n", idx.TermCount())
	fmt.Fprintf(tw, "tokens\t%d\n\n", idx.TokenCount())
	fmt.Fprintln(tw, "rank\tterm\tcount\tpercent")
	for i, stat := range idx.TopTerms(n) {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.2f%%\n", i+1, stat.Term, stat.Count, stat.Percent)
	}
	return tw.Flush()
}
