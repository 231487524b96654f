package feed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/newstime"
	"horse.fit/newsdesk/internal/store"
)

// ItemFetcher is the part of Fetcher the collector needs.
type ItemFetcher interface {
	Fetch(ctx context.Context, src Source) ([]store.Record, error)
}

// CollectStats reports one collection pass.
type CollectStats struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Collector runs one ingestion pass over the configured sources. A failing
// source never aborts the pass; its items are simply missing until the next
// run.
type Collector struct {
	store       store.Store
	fetcher     ItemFetcher
	sources     []Source
	logger      zerolog.Logger
	filterNewer bool
}

func NewCollector(st store.Store, fetcher ItemFetcher, sources []Source, filterNewer bool, logger zerolog.Logger) *Collector {
	return &Collector{
		store:       st,
		fetcher:     fetcher,
		sources:     sources,
		logger:      logger.With().Str("component", "collector").Logger(),
		filterNewer: filterNewer,
	}
}

// Collect fetches every source and persists unseen items.
func (c *Collector) Collect(ctx context.Context) (CollectStats, error) {
	if c == nil || c.store == nil || c.fetcher == nil {
		return CollectStats{}, fmt.Errorf("collector is not initialized")
	}

	latest := ""
	if c.filterNewer {
		value, err := c.store.LatestPublished(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("latest published lookup failed, accepting all items")
		} else {
			latest = value
		}
	}

	var stats CollectStats
	seen := make(map[string]struct{})

	for _, src := range c.sources {
		items, err := c.fetchWithFallback(ctx, src)
		if err != nil {
			c.logger.Error().Err(err).Str("source", src.Name).Str("url", src.URL).Msg("source fetch failed")
			continue
		}
		stats.Fetched += len(items)

		batch := make([]store.Record, 0, len(items))
		for _, rec := range items {
			if _, dup := seen[rec.Link]; dup {
				stats.Skipped++
				continue
			}
			seen[rec.Link] = struct{}{}

			if c.filterNewer && !newstime.Newer(rec.Published, latest) {
				stats.Skipped++
				continue
			}

			exists, err := c.store.Exists(ctx, rec.Link)
			if err != nil {
				c.logger.Warn().Err(err).Str("link", rec.Link).Msg("existence check failed, relying on unique index")
			} else if exists {
				stats.Skipped++
				continue
			}

			batch = append(batch, rec)
		}

		inserted, err := c.store.InsertMany(ctx, batch)
		stats.Inserted += inserted
		stats.Skipped += len(batch) - inserted
		if err != nil {
			c.logger.Error().Err(err).Str("source", src.Name).Msg("batch insert failed")
			continue
		}
	}

	c.logger.Info().
		Int("fetched", stats.Fetched).
		Int("inserted", stats.Inserted).
		Int("skipped", stats.Skipped).
		Msg("collection pass finished")
	return stats, nil
}

func (c *Collector) fetchWithFallback(ctx context.Context, src Source) ([]store.Record, error) {
	items, err := c.fetcher.Fetch(ctx, src)
	if err == nil {
		return items, nil
	}
	if src.Fallback == nil {
		return nil, err
	}

	c.logger.Warn().Err(err).Str("source", src.Name).Str("url", src.URL).Msg("primary fetch failed, trying fallback")
	items, fallbackErr := c.fetcher.Fetch(ctx, *src.Fallback)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary: %v, fallback: %w", err, fallbackErr)
	}
	return items, nil
}
