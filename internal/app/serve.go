package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/feed"
	"horse.fit/newsdesk/internal/httpapi"
	"horse.fit/newsdesk/internal/refresh"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Host interface to bind")
	port := fs.Int("port", 8080, "HTTP port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *port <= 0 || *port > 65535 {
		fmt.Fprintln(os.Stderr, "--port must be between 1 and 65535")
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to open store")
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		return 1
	}
	defer st.Close()

	manager, err := buildManager(cfg, st, logger)
	if err != nil {
		logger.Error().Err(err).Msg("serve failed to build translation manager")
		fmt.Fprintf(os.Stderr, "Failed to build translation manager: %v\n", err)
		return 1
	}

	fetcher := feed.NewFetcher(cfg.FetchTimeout, cfg.EnrichPreviews, logger)
	collector := feed.NewCollector(st, fetcher, feed.BuildSources(cfg), false, logger)

	loop := refresh.NewLoop(st, collector, manager, refresh.Options{
		Interval:      cfg.PollInterval,
		SweepLimit:    cfg.SweepLimit,
		SnapshotSize:  cfg.SnapshotSize,
		RetentionDays: cfg.RetentionDays,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		if loopErr := loop.Run(ctx); loopErr != nil && !errors.Is(loopErr, context.Canceled) {
			logger.Error().Err(loopErr).Msg("refresh loop stopped")
		}
	}()

	srv := httpapi.NewServer(st, loop, manager, logger, httpapi.Options{
		Host:            *host,
		Port:            *port,
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
		SweepLimit:      cfg.SweepLimit,
		DisplayTimezone: cfg.DisplayTimezone,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Error().Err(err).Str("host", *host).Int("port", *port).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
		return 1
	}

	return 0
}
