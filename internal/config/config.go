package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	StoreBackend  string `envconfig:"STORE_BACKEND" default:"sqlite"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"newsdesk.db"`
	DatabaseURL   string `envconfig:"DATABASE_URL" default:""`
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"newsdesk"`

	CryptoFeedURL   string        `envconfig:"CRYPTO_FEED_URL" default:"https://cryptopanic.com/news/rss/"`
	CryptoAPIURL    string        `envconfig:"CRYPTO_API_URL" default:"https://cryptopanic.com/api/v1/posts/"`
	CryptoAuthToken string        `envconfig:"CRYPTO_AUTH_TOKEN" default:""`
	GeneralFeedURL  string        `envconfig:"GENERAL_FEED_URL" default:""`
	DefaultSource   string        `envconfig:"DEFAULT_SOURCE" default:"CryptoPanic"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	EnrichPreviews  bool          `envconfig:"ENRICH_PREVIEWS" default:"false"`

	PollInterval  time.Duration `envconfig:"POLL_INTERVAL" default:"30s"`
	SweepLimit    int           `envconfig:"SWEEP_LIMIT" default:"5"`
	SnapshotSize  int           `envconfig:"SNAPSHOT_SIZE" default:"20"`
	RetentionDays int           `envconfig:"RETENTION_DAYS" default:"0"`

	DisplayTimezone string `envconfig:"DISPLAY_TIMEZONE" default:"Asia/Seoul"`

	TranslationEndpoint   string        `envconfig:"TRANSLATION_ENDPOINT" default:"http://127.0.0.1:8000/v1"`
	TranslationModel      string        `envconfig:"TRANSLATION_MODEL" default:"google/gemma-3-27b"`
	TranslationAPIKey     string        `envconfig:"TRANSLATION_API_KEY" default:""`
	TranslationTimeout    time.Duration `envconfig:"TRANSLATION_TIMEOUT" default:"30s"`
	TranslationDelay      time.Duration `envconfig:"TRANSLATION_DELAY" default:"1s"`
	SourceLang            string        `envconfig:"SOURCE_LANG" default:"en"`
	TargetLang            string        `envconfig:"TARGET_LANG" default:"ko"`
	TranslateDescriptions bool          `envconfig:"TRANSLATE_DESCRIPTIONS" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend() {
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_BACKEND=sqlite")
		}
	case BackendPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_BACKEND=mongo")
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			return fmt.Errorf("MONGODB_DATABASE is required when STORE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of sqlite, postgres, mongo (got %q)", c.StoreBackend)
	}

	if strings.TrimSpace(c.CryptoFeedURL) == "" && strings.TrimSpace(c.GeneralFeedURL) == "" {
		return fmt.Errorf("at least one of CRYPTO_FEED_URL and GENERAL_FEED_URL is required")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be >= 1s")
	}
	if c.SweepLimit < 0 {
		return fmt.Errorf("SWEEP_LIMIT must be >= 0")
	}
	if c.SnapshotSize < 1 {
		return fmt.Errorf("SNAPSHOT_SIZE must be >= 1")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("RETENTION_DAYS must be >= 0")
	}
	if strings.TrimSpace(c.TargetLang) == "" {
		return fmt.Errorf("TARGET_LANG is required")
	}
	return nil
}

// Backend returns the normalized store backend selector.
func (c *Config) Backend() string {
	return strings.ToLower(strings.TrimSpace(c.StoreBackend))
}
