// Package store persists collected news items. Two backends implement the
// same contract: a relational store built on GORM (embedded SQLite or
// Postgres) and a MongoDB document store. Callers select one via
// configuration and never see the difference.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/config"
)

// ErrNotFound is returned by FindByLink when no record matches.
var ErrNotFound = errors.New("record not found")

// Translation lifecycle values for Record.TranslationStatus.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Record is a single persisted news item. Link is the natural key; every
// backend enforces its uniqueness.
type Record struct {
	Title                 string    `json:"title"`
	Link                  string    `json:"link"`
	Description           string    `json:"description,omitempty"`
	Published             string    `json:"published,omitempty"`
	Source                string    `json:"source,omitempty"`
	Category              string    `json:"category,omitempty"`
	TranslatedTitle       string    `json:"translated_title,omitempty"`
	TranslatedDescription string    `json:"translated_description,omitempty"`
	TranslationStatus     string    `json:"translation_status"`
	CreatedAt             time.Time `json:"created_at,omitempty"`
	UpdatedAt             time.Time `json:"updated_at,omitempty"`
}

// Stats summarizes the translation backlog.
type Stats struct {
	Total      int64 `json:"total_articles"`
	Translated int64 `json:"translated_articles"`
	Pending    int64 `json:"pending_translation"`
}

// Store is the persistence contract shared by all backends. Write methods
// report what happened so callers can decide how loudly to log; read methods
// return explicit errors so an empty result is distinguishable from a failed
// query.
type Store interface {
	// Exists reports whether a record with the given link is already stored.
	Exists(ctx context.Context, link string) (bool, error)
	// InsertOne stores a record and reports false when the link was already
	// present.
	InsertOne(ctx context.Context, rec Record) (bool, error)
	// InsertMany stores a batch and returns the number actually inserted
	// after duplicate links are skipped.
	InsertMany(ctx context.Context, recs []Record) (int, error)
	// UpdateTranslation stores whichever of title and description are
	// non-empty and marks the record completed. It reports false when both
	// fields are empty or no such record exists.
	UpdateTranslation(ctx context.Context, link, title, description string) (bool, error)
	// ListUntranslated returns up to limit records still awaiting a
	// translated title, newest published first.
	ListUntranslated(ctx context.Context, limit int) ([]Record, error)
	// ListLatest returns up to limit records ordered by published descending.
	ListLatest(ctx context.Context, limit int) ([]Record, error)
	// ListLatestByCategory is ListLatest restricted to one category.
	ListLatestByCategory(ctx context.Context, category string, limit int) ([]Record, error)
	// CountByStatus returns the translation backlog counters.
	CountByStatus(ctx context.Context) (Stats, error)
	// LatestPublished returns the published value of the most recent record,
	// or empty when the store is empty.
	LatestPublished(ctx context.Context) (string, error)
	// FindByLink returns the record with the given link or ErrNotFound.
	FindByLink(ctx context.Context, link string) (Record, error)
	// PurgeOlderThan deletes records created more than days ago and returns
	// how many were removed.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	Close() error
}

// Open builds the backend selected by cfg.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	switch cfg.Backend() {
	case config.BackendSQLite, config.BackendPostgres:
		return openGorm(ctx, cfg, logger)
	case config.BackendMongo:
		return openMongo(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
