package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/newsdesk/internal/cli"
)

func runSweep(args []string) int {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Maximum records to translate (default: configured sweep limit)")

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

	sweepLimit := *limit
	if sweepLimit <= 0 {
		sweepLimit = cfg.SweepLimit
	}
	if sweepLimit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be positive when SWEEP_LIMIT is 0")
		return 2
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer st.Close()

	manager, err := buildManager(cfg, st, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build translation manager: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stats, err := manager.ProcessUntranslated(ctx, sweepLimit)
	if err != nil {
		logger.Error().Err(err).Msg("backlog sweep failed")
		fmt.Fprintf(os.Stderr, "Sweep failed: %v\n", err)
		return 1
	}

	fmt.Printf("Requested %d records, translated %d, failed %d\n", stats.Requested, stats.Processed, stats.Failed)
	return 0
}
