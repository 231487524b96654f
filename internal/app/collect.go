package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/feed"
)

func runCollect(args []string) int {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	newerOnly := fs.Bool("newer-only", false, "Skip items not newer than the latest stored item")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fetcher := feed.NewFetcher(cfg.FetchTimeout, cfg.EnrichPreviews, logger)
	collector := feed.NewCollector(st, fetcher, feed.BuildSources(cfg), *newerOnly, logger)

	stats, err := collector.Collect(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("collection failed")
		fmt.Fprintf(os.Stderr, "Collection failed: %v\n", err)
		return 1
	}

	fmt.Printf("Fetched %d items, inserted %d, skipped %d\n", stats.Fetched, stats.Inserted, stats.Skipped)
	return 0
}
