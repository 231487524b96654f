package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/cli"
	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/logging"
	"horse.fit/newsdesk/internal/store"
	"horse.fit/newsdesk/internal/translation"
)

// loadRuntime loads the environment, configuration, and logger shared by
// every command.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("initialize logger: %w", err)
	}

	return cfg, logger, nil
}

func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

func buildManager(cfg *config.Config, st store.Store, logger zerolog.Logger) (*translation.Manager, error) {
	registry := translation.NewRegistry(translation.DefaultProviderName)
	provider := translation.NewLocalProvider(
		cfg.TranslationEndpoint,
		cfg.TranslationModel,
		cfg.TranslationAPIKey,
		cfg.TranslationTimeout,
	)
	if err := registry.Register(provider); err != nil {
		return nil, fmt.Errorf("register translation provider: %w", err)
	}

	return translation.NewManager(st, registry, translation.Options{
		SourceLang:            cfg.SourceLang,
		TargetLang:            cfg.TargetLang,
		Delay:                 cfg.TranslationDelay,
		TranslateDescriptions: cfg.TranslateDescriptions,
	}, logger), nil
}
