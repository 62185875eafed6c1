package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
	"github.com/BronsonLau/NLP-Course/pkg/resilience"
)

// PostgresSource reads documents from a table with columns
// (id INTEGER PRIMARY KEY, body TEXT).
type PostgresSource struct {
	client   *postgres.Client
	table    string
	attempts int
	logger   *slog.Logger
}

func NewPostgresSource(client *postgres.Client, table string, attempts int) *PostgresSource {
	if table == "" {
		table = "documents"
	}
	return &PostgresSource{
		client:   client,
		table:    table,
		attempts: attempts,
		logger:   slog.Default().With("component", "corpus", "source", "postgres", "table", table),
	}
}

// Load reads every row ordered by id, retrying transient failures with
// backoff. An empty table is not retried.
func (s *PostgresSource) Load(ctx context.Context) (map[int]string, error) {
	var docs map[int]string
	err := resilience.Retry(ctx, "corpus-load", resilience.RetryConfig{
		MaxAttempts:  s.attempts,
		InitialDelay: 200 * time.Millisecond,
		Retryable: func(err error) bool {
			return !errors.Is(err, apperrors.ErrCorpusEmpty) &&
				!errors.Is(err, context.Canceled) &&
				!errors.Is(err, context.DeadlineExceeded)
		},
	}, func() error {
		var err error
		docs, err = s.load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}

func (s *PostgresSource) load(ctx context.Context) (map[int]string, error) {
	query := fmt.Sprintf("SELECT id, body FROM %s ORDER BY id", pq.QuoteIdentifier(s.table))
	rows, err := s.client.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	docs := make(map[int]string)
	for rows.Next() {
		var (
			id   int
			body sql.NullString
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		if id < 1 {
			s.logger.Warn("skipping document with non-positive id", "id", id)
			continue
		}
		docs[id] = body.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.table, err)
	}
	if err := checkNotEmpty(docs, "loading table "+s.table); err != nil {
		return nil, err
	}
	return docs, nil
}

// Import creates the table if needed and upserts docs in one transaction.
func (s *PostgresSource) Import(ctx context.Context, docs map[int]string) error {
	table := pq.QuoteIdentifier(s.table)
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, body TEXT NOT NULL)", table)
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("creating %s: %w", s.table, err)
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (id, body) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body", table))
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for id, body := range docs {
			if _, err := stmt.ExecContext(ctx, id, body); err != nil {
				return fmt.Errorf("upserting document %d: %w", id, err)
			}
		}
		s.logger.Info("corpus imported", "documents", len(docs))
		return nil
	})
}
