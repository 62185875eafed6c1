package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BronsonLau/NLP-Course/internal/analytics"
	"github.com/BronsonLau/NLP-Course/internal/analytics/snapshot"
	"github.com/BronsonLau/NLP-Course/internal/corpus"
	"github.com/BronsonLau/NLP-Course/internal/indexer/consumer"
	"github.com/BronsonLau/NLP-Course/internal/indexer/tokenizer"
	"github.com/BronsonLau/NLP-Course/internal/searcher/cache"
	"github.com/BronsonLau/NLP-Course/internal/searcher/executor"
	"github.com/BronsonLau/NLP-Course/internal/searcher/handler"
	"github.com/BronsonLau/NLP-Course/pkg/config"
	"github.com/BronsonLau/NLP-Course/pkg/health"
	"github.com/BronsonLau/NLP-Course/pkg/kafka"
	"github.com/BronsonLau/NLP-Course/pkg/logger"
	"github.com/BronsonLau/NLP-Course/pkg/metrics"
	"github.com/BronsonLau/NLP-Course/pkg/middleware"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
	pkgredis "github.com/BronsonLau/NLP-Course/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"corpus_source", cfg.Corpus.Source,
		"tokenizer", cfg.Tokenizer.Mode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	tok, err := tokenizer.New(cfg.Tokenizer)
	if err != nil {
		slog.Error("failed to create tokenizer", "error", err)
		os.Exit(1)
	}

	var pg *postgres.Client
	if cfg.Corpus.Source == "postgres" || cfg.Analytics.SnapshotInterval > 0 {
		pg, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
	}

	source, err := corpus.New(cfg.Corpus, pg)
	if err != nil {
		slog.Error("failed to create corpus source", "error", err)
		os.Exit(1)
	}

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var collector *analytics.Collector
	aggregator := analytics.NewAggregator(nil)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()

		analyticsKafka := cfg.Kafka
		analyticsKafka.ConsumerGroup = cfg.Kafka.ConsumerGroup + "-analytics"
		aggregator.SetConsumer(kafka.NewConsumer(analyticsKafka, cfg.Kafka.Topics.SearchEvents, analytics.HandleEvent(aggregator)))
		go func() {
			if err := aggregator.Start(ctx); err != nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
	}

	if cfg.Analytics.SnapshotInterval > 0 {
		store := snapshot.NewStore(pg)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare analytics snapshot table", "error", err)
			os.Exit(1)
		}
		if _, err := store.Restore(ctx, aggregator); err != nil {
			slog.Warn("could not restore analytics snapshot", "error", err)
		}
		store.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
	}

	exec := executor.New(tok, executor.Options{
		BuildWorkers:   cfg.Index.BuildWorkers,
		BuildTimeout:   cfg.Index.BuildTimeout,
		FuzzyCacheSize: cfg.Search.FuzzyCacheSize,
		PhraseStrategy: cfg.Search.PhraseStrategy,
		Metrics:        m,
		OnRebuild: func(ctx context.Context, stats executor.BuildStats) {
			if queryCache != nil {
				if _, err := queryCache.Invalidate(ctx); err != nil {
					slog.Warn("result cache invalidation after rebuild failed", "error", err)
				}
			}
			event := analytics.IndexEvent{
				Generation: stats.Generation,
				Documents:  stats.Documents,
				Terms:      stats.Terms,
				DurationMs: stats.Duration.Milliseconds(),
				Timestamp:  time.Now().UTC(),
			}
			// With Kafka enabled the aggregator sees the event through the topic.
			if collector != nil {
				collector.TrackIndex(event)
			} else {
				aggregator.RecordIndex(event)
			}
		},
	})

	if _, err := exec.Reload(ctx, source); err != nil {
		slog.Error("initial index build failed", "error", err)
		os.Exit(1)
	}

	if cfg.Kafka.Enabled {
		reloadKafka := cfg.Kafka
		// Every instance must see every reload command.
		reloadKafka.ConsumerGroup = fmt.Sprintf("%s-reload-%s", cfg.Kafka.ConsumerGroup, uuid.NewString())
		reloadConsumer := consumer.New(kafka.NewConsumer(reloadKafka, cfg.Kafka.Topics.CorpusReload, consumer.HandleMessage(exec, source)))
		go func() {
			if err := reloadConsumer.Start(ctx); err != nil {
				slog.Error("reload consumer error", "error", err)
			}
		}()
		slog.Info("reload consumer started", "topic", cfg.Kafka.Topics.CorpusReload)
	}

	checker := health.NewChecker(2 * time.Second)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap := exec.Snapshot()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index built"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d documents, %d terms", snap.Index.Generation(), snap.Index.DocCount(), snap.Index.TermCount()),
		}
	})
	if redisClient != nil {
		checker.RegisterPinger("redis", redisClient, false)
	}
	if pg != nil {
		checker.RegisterPinger("postgres", pg, cfg.Corpus.Source == "postgres")
	}

	if cfg.Metrics.Enabled {
		admin := metrics.NewServer(cfg.Metrics.Port, prometheus.DefaultGatherer, map[string]http.Handler{
			"GET /health/ready": checker.ReadyHandler(),
		})
		if err := admin.Start(); err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer admin.Shutdown(context.Background())
	}

	var tracker handler.Tracker = aggregator
	if collector != nil {
		tracker = collector
	}
	h := handler.New(exec, queryCache, tracker, source, cfg.Search)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /api/v1/analytics", aggregator)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, m)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr, "generation", exec.Generation())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
