// Package consumer reads corpus-reload commands from Kafka and rebuilds the
// serving index from the configured corpus source.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BronsonLau/NLP-Course/internal/corpus"
	"github.com/BronsonLau/NLP-Course/internal/searcher/executor"
	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
	"github.com/BronsonLau/NLP-Course/pkg/kafka"
)

// ReloadCommand asks every searcher in the consumer group to rebuild.
type ReloadCommand struct {
	Reason      string    `json:"reason"`
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Reloader is the executor surface the consumer drives.
type Reloader interface {
	Reload(ctx context.Context, src corpus.Source) (executor.BuildStats, error)
}

// ReloadConsumer wraps a Kafka consumer to drive corpus reloads.
type ReloadConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *ReloadConsumer {
	return &ReloadConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "reload-consumer"),
	}
}

// Start blocks until ctx is cancelled.
func (rc *ReloadConsumer) Start(ctx context.Context) error {
	rc.logger.Info("reload consumer starting")
	return rc.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that reloads src into r for
// every command. Undecodable commands are logged and committed. An empty
// corpus is committed too, since retrying cannot fix it.
func HandleMessage(r Reloader, src corpus.Source) kafka.MessageHandler {
	logger := slog.Default().With("component", "reload-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		cmd, err := kafka.DecodeJSON[ReloadCommand](value)
		if err != nil {
			logger.Error("failed to decode reload command",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		logger.Info("reloading corpus", "reason", cmd.Reason, "requested_by", cmd.RequestedBy)
		stats, err := r.Reload(ctx, src)
		if err != nil {
			if errors.Is(err, apperrors.ErrCorpusEmpty) {
				logger.Warn("reload found an empty corpus, keeping current index", "error", err)
				return nil
			}
			return fmt.Errorf("reloading corpus (%s): %w", cmd.Reason, err)
		}

		logger.Info("corpus reloaded",
			"generation", stats.Generation,
			"index_id", stats.IndexID,
			"documents", stats.Documents,
			"terms", stats.Terms,
		)
		return nil
	}
}
