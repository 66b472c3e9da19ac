package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deusflow/ofertas/internal/app"
	"github.com/deusflow/ofertas/internal/config"
	"github.com/deusflow/ofertas/internal/logger"
	"github.com/deusflow/ofertas/internal/ranking"
	"github.com/deusflow/ofertas/internal/scraper"
	"github.com/deusflow/ofertas/internal/selection"
	"github.com/deusflow/ofertas/internal/storage"
	"github.com/deusflow/ofertas/internal/telegram"
)

var cfg *config.Config

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dealbot",
		Short:         "Publishes one marketplace deal at a time to Telegram",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.Init(loaded.Environment, loaded.LogLevel); err != nil {
				return err
			}
			cfg = loaded
			logger.Debug("Settings loaded",
				"environment", cfg.Environment,
				"state_backend", cfg.StateBackend,
				"schedule", cfg.Schedule)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newStateCommand())
	return root
}

// openStore returns the state store selected by STATE_BACKEND.
func openStore(ctx context.Context, c *config.Config) (storage.Store, error) {
	switch c.StateBackend {
	case config.BackendPostgres:
		return storage.NewPostgresStore(ctx, c.DatabaseURL, c.DuplicateWindow())
	default:
		return storage.NewFileStore(c.StateFile, c.DuplicateWindow()), nil
	}
}

// buildApp wires the cycle runner from the configuration.
func buildApp(c *config.Config, store storage.Store, dryRun bool, log zerolog.Logger) (*app.App, error) {
	catalog, err := config.LoadCatalog(c.CategoriesFile)
	if err != nil {
		return nil, err
	}

	if !dryRun {
		if err := c.ValidatePublishing(); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	fetcher, err := scraper.NewClient(scraper.Config{
		BaseURL:    c.BaseURL,
		PartnerTag: c.PartnerTag,
		MaxResults: c.MaxResultsPerPage,
		Timeout:    c.RequestTimeout,
		MinDelay:   c.FetchMinDelay,
		MaxDelay:   c.FetchMaxDelay,
		Attempts:   c.FetchRetries,
		RetryDelay: c.FetchMinDelay,
	}, log)
	if err != nil {
		return nil, err
	}

	publisher := telegram.NewClient(telegram.Config{
		Token:  c.TelegramToken,
		ChatID: c.TelegramChatID,
		APIURL: c.TelegramAPIURL,
	}, log)

	brands := ranking.NewBrandMatcher(catalog.PriorityBrands)
	selector := selection.New(selection.Policy{
		DuplicateWindow: c.DuplicateWindow(),
		WeeklyCooldown:  c.WeeklyCooldown(),
		AlwaysAllowed:   catalog.AlwaysAllowed,
	}, brands, log)

	log.Info().
		Int("categories", len(catalog.Categories)).
		Strs("priority_brands", brands.Brands()).
		Strs("always_allowed", catalog.AlwaysAllowed).
		Str("state_backend", c.StateBackend).
		Msg("Configuration loaded")

	return app.New(app.Options{
		Categories: catalog.Categories,
		Fetcher:    fetcher,
		Publisher:  publisher,
		Store:      store,
		Selector:   selector,
		Ranker:     ranking.NewRanker(brands),
		Logger:     log,
		DryRun:     dryRun,
	}), nil
}
