package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/carematch/backend/internal/adapters/database"
	"github.com/zatekoja/carematch/backend/internal/adapters/search"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carematch/backend/pkg/config"
)

const indexConcurrency = 8

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Logging)
	logger := observability.GetLogger()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			logger.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			logger.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			logger.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}
		reset = false

		logger.Info().Dur("next_run_in", interval).Msg("Reindex complete")
		select {
		case <-ctx.Done():
			logger.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	logger := observability.GetLogger()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		logger.Info().Str("collection", typesense.ProvidersCollection).Msg("Deleting collection before reindex")
		if err := tsClient.DropSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to delete collection")
		}
	}

	index := search.NewTypesenseAdapter(tsClient)
	if err := index.InitSchema(ctx); err != nil {
		return err
	}

	directory := database.NewProviderAdapter(pgClient, nil)
	candidates, err := directory.ListPublic(ctx)
	if err != nil {
		return err
	}

	logger.Info().Int("providers", len(candidates)).Msg("Indexing public providers")

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)
	for _, provider := range candidates {
		g.Go(func() error {
			if err := index.Index(gctx, provider); err != nil {
				failed.Add(1)
				logger.Warn().Err(err).Str("provider_id", provider.ID).Msg("Failed to index provider")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info().
		Int("providers", len(candidates)).
		Int64("failed", failed.Load()).
		Msg("Indexing finished")
	return nil
}
