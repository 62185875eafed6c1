package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BronsonLau/NLP-Course/internal/corpus"
	"github.com/BronsonLau/NLP-Course/internal/indexer/consumer"
	"github.com/BronsonLau/NLP-Course/pkg/config"
	"github.com/BronsonLau/NLP-Course/pkg/kafka"
	"github.com/BronsonLau/NLP-Course/pkg/logger"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	dir := flag.String("dir", "", "directory of numbered .txt files (defaults to corpus.dir)")
	notify := flag.Bool("notify", true, "publish a corpus-reload command when kafka is enabled")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *dir == "" {
		*dir = cfg.Corpus.Dir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, err := corpus.NewDirSource(*dir, cfg.Corpus.DocCount).Load(ctx)
	if err != nil {
		slog.Error("failed to read corpus directory", "dir", *dir, "error", err)
		os.Exit(1)
	}

	pg, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	target := corpus.NewPostgresSource(pg, cfg.Corpus.Table, cfg.Corpus.LoadAttempts)
	if err := target.Import(ctx, docs); err != nil {
		slog.Error("corpus import failed", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus imported", "documents", len(docs), "table", cfg.Corpus.Table)

	if !*notify || !cfg.Kafka.Enabled {
		return
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusReload)
	defer producer.Close()
	cmd := consumer.ReloadCommand{
		Reason:      fmt.Sprintf("imported %d documents from %s", len(docs), *dir),
		RequestedBy: "corpusload",
		RequestedAt: time.Now().UTC(),
	}
	if err := producer.Publish(ctx, kafka.Event{Key: "reload", Value: cmd}); err != nil {
		slog.Error("failed to publish reload command", "error", err)
		os.Exit(1)
	}
	slog.Info("reload command published", "topic", cfg.Kafka.Topics.CorpusReload)
}
