//go:build integration

package corpus

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/pkg/config"
	apperrors "github.com/BronsonLau/NLP-Course/pkg/errors"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	client, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "lexsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "lexsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPostgresSourceImportAndLoad(t *testing.T) {
	client := skipIfNoPostgres(t)
	ctx := context.Background()
	table := fmt.Sprintf("documents_test_%d", time.Now().UnixNano())
	t.Cleanup(func() { client.DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)) })

	src := NewPostgresSource(client, table, 1)
	docs := map[int]string{1: "北京 天安门 广场", 2: "上海 天安门 模型"}
	require.NoError(t, src.Import(ctx, docs))
	require.NoError(t, src.Import(ctx, map[int]string{2: "上海 模型"}), "upsert")

	got, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "北京 天安门 广场", 2: "上海 模型"}, got)
}

func TestPostgresSourceEmptyTable(t *testing.T) {
	client := skipIfNoPostgres(t)
	ctx := context.Background()
	table := fmt.Sprintf("documents_empty_%d", time.Now().UnixNano())
	t.Cleanup(func() { client.DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)) })

	src := NewPostgresSource(client, table, 3)
	require.NoError(t, src.Import(ctx, nil))
	_, err := src.Load(ctx)
	assert.ErrorIs(t, err, apperrors.ErrCorpusEmpty)
}
