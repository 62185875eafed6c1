//go:build integration

package snapshot

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BronsonLau/NLP-Course/internal/analytics"
	"github.com/BronsonLau/NLP-Course/pkg/config"
	"github.com/BronsonLau/NLP-Course/pkg/postgres"
)

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestSaveAndLatest(t *testing.T) {
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	client, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "lexsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "lexsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	store := NewStore(client)
	require.NoError(t, store.EnsureSchema(ctx))

	agg := analytics.NewAggregator(nil)
	agg.RecordSearch(analytics.SearchEvent{Query: "北京", Mode: "boolean", TotalHits: 1})
	agg.RecordIndex(analytics.IndexEvent{Generation: 9})
	require.NoError(t, store.Save(ctx, agg.Stats()))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint64(9), latest.LastGeneration)
	assert.Equal(t, int64(1), latest.SearchesByMode["boolean"])

	fresh := analytics.NewAggregator(nil)
	found, err := store.Restore(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, found)
	assert.GreaterOrEqual(t, fresh.Stats().TotalSearches, int64(1))
}
