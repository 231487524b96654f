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

func runPurge(args []string) int {
	fs := flag.NewFlagSet("purge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	days := fs.Int("days", 0, "Delete records older than this many days (default: RETENTION_DAYS)")

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

	retention := *days
	if retention <= 0 {
		retention = cfg.RetentionDays
	}
	if retention <= 0 {
		fmt.Fprintln(os.Stderr, "--days must be positive when RETENTION_DAYS is 0")
		return 2
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	removed, err := st.PurgeOlderThan(ctx, retention)
	if err != nil {
		logger.Error().Err(err).Msg("purge failed")
		fmt.Fprintf(os.Stderr, "Purge failed: %v\n", err)
		return 1
	}

	fmt.Printf("Removed %d records older than %d days\n", removed, retention)
	return 0
}
