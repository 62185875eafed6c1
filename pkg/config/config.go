// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Tokenizer, Index, Search, Postgres, Redis, Kafka,
// Analytics, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitRPS of 0 disables the limiter.
	RateLimitRPS   float64 `yaml:"rateLimitRPS"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
	// CORSOrigins lists browser origins allowed to call the API; "*"
	// allows any.
	CORSOrigins []string `yaml:"corsOrigins"`
}

// CorpusConfig selects where documents are read from.
type CorpusConfig struct {
	// Source is "dir" or "postgres".
	Source string `yaml:"source"`
	Dir    string `yaml:"dir"`
	// DocCount limits a dir source to 1.txt..DocCount.txt; 0 reads every
	// numerically named .txt file.
	DocCount int    `yaml:"docCount"`
	Table    string `yaml:"table"`
	// LoadAttempts bounds retries of a failed postgres load.
	LoadAttempts int `yaml:"loadAttempts"`
}

// TokenizerConfig controls term normalisation.
type TokenizerConfig struct {
	// Mode is "fields" (split on non-ideographs) or "dictionary" (forward
	// maximum matching against DictionaryFile).
	Mode           string `yaml:"mode"`
	DictionaryFile string `yaml:"dictionaryFile"`
	StopwordsFile  string `yaml:"stopwordsFile"`
	MinTermLength  int    `yaml:"minTermLength"`
}

// IndexConfig controls index construction.
type IndexConfig struct {
	BuildWorkers int           `yaml:"buildWorkers"`
	BuildTimeout time.Duration `yaml:"buildTimeout"`
}

// SearchConfig controls query evaluation limits.
type SearchConfig struct {
	DefaultFuzzyDistance int `yaml:"defaultFuzzyDistance"`
	MaxFuzzyDistance     int `yaml:"maxFuzzyDistance"`
	FuzzyCacheSize       int `yaml:"fuzzyCacheSize"`
	TopTermsLimit        int `yaml:"topTermsLimit"`
	// PhraseStrategy is "index" (positional intersection) or "scan"
	// (re-tokenize every document).
	PhraseStrategy string `yaml:"phraseStrategy"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
	CorpusReload string `yaml:"corpusReload"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyticsConfig controls search-event publishing and aggregation.
type AnalyticsConfig struct {
	BufferSize    int           `yaml:"bufferSize"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
	// SnapshotInterval of 0 disables persisting aggregated stats to
	// Postgres.
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engines cannot honour.
func (c *Config) Validate() error {
	switch c.Corpus.Source {
	case "dir", "postgres":
	default:
		return fmt.Errorf("unknown corpus source %q", c.Corpus.Source)
	}
	switch c.Tokenizer.Mode {
	case "fields":
	case "dictionary":
		if c.Tokenizer.DictionaryFile == "" {
			return fmt.Errorf("tokenizer mode dictionary requires dictionaryFile")
		}
	default:
		return fmt.Errorf("unknown tokenizer mode %q", c.Tokenizer.Mode)
	}
	switch c.Search.PhraseStrategy {
	case "index", "scan":
	default:
		return fmt.Errorf("unknown phrase strategy %q", c.Search.PhraseStrategy)
	}
	if c.Index.BuildWorkers < 1 {
		return fmt.Errorf("index.buildWorkers must be at least 1, got %d", c.Index.BuildWorkers)
	}
	if c.Search.DefaultFuzzyDistance < 0 {
		return fmt.Errorf("search.defaultFuzzyDistance must be non-negative, got %d", c.Search.DefaultFuzzyDistance)
	}
	if c.Search.MaxFuzzyDistance < c.Search.DefaultFuzzyDistance {
		return fmt.Errorf("search.maxFuzzyDistance (%d) is below defaultFuzzyDistance (%d)",
			c.Search.MaxFuzzyDistance, c.Search.DefaultFuzzyDistance)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitBurst:  50,
		},
		Corpus: CorpusConfig{
			Source:       "dir",
			Dir:          "article",
			DocCount:     0,
			Table:        "documents",
			LoadAttempts: 3,
		},
		Tokenizer: TokenizerConfig{
			Mode:          "fields",
			MinTermLength: 2,
		},
		Index: IndexConfig{
			BuildWorkers: 4,
			BuildTimeout: 2 * time.Minute,
		},
		Search: SearchConfig{
			DefaultFuzzyDistance: 1,
			MaxFuzzyDistance:     3,
			FuzzyCacheSize:       1000,
			TopTermsLimit:        10,
			PhraseStrategy:       "index",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "lexsearch",
			User:            "lexsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "lexsearch-group",
			Topics: KafkaTopics{
				SearchEvents: "search-events",
				CorpusReload: "corpus-reload",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Analytics: AnalyticsConfig{
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads LS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LS_SERVER_RATE_LIMIT_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimitRPS = rps
		}
	}
	if v := os.Getenv("LS_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("LS_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("LS_CORPUS_DIR"); v != "" {
		cfg.Corpus.Dir = v
	}
	if v := os.Getenv("LS_TOKENIZER_MODE"); v != "" {
		cfg.Tokenizer.Mode = v
	}
	if v := os.Getenv("LS_TOKENIZER_DICTIONARY"); v != "" {
		cfg.Tokenizer.DictionaryFile = v
	}
	if v := os.Getenv("LS_TOKENIZER_STOPWORDS"); v != "" {
		cfg.Tokenizer.StopwordsFile = v
	}
	if v := os.Getenv("LS_SEARCH_FUZZY_DISTANCE"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultFuzzyDistance = d
		}
	}
	if v := os.Getenv("LS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("LS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("LS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("LS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("LS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("LS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LS_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = v == "true"
	}
	if v := os.Getenv("LS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LS_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = v == "true"
	}
	if v := os.Getenv("LS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
