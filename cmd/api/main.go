package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/carematch/backend/internal/adapters/cache"
	"github.com/zatekoja/carematch/backend/internal/adapters/database"
	"github.com/zatekoja/carematch/backend/internal/adapters/events"
	"github.com/zatekoja/carematch/backend/internal/adapters/search"
	"github.com/zatekoja/carematch/backend/internal/api/handlers"
	"github.com/zatekoja/carematch/backend/internal/api/routes"
	"github.com/zatekoja/carematch/backend/internal/application/services"
	"github.com/zatekoja/carematch/backend/internal/domain/providers"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carematch/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Logging)
	logger := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	dependencies := map[string]routes.Pinger{"postgres": pgClient}

	// The service works without Redis, just without caching and invalidation events
	var cacheProvider providers.CacheProvider
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, running without cache and event bus")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient, events.WithSubscriberBuffer(cfg.Cache.EventBuffer))
		dependencies["redis"] = redisClient
	}

	var searchIndex repositories.ProviderSearchRepository
	if cfg.Suggest.UseSearchIndex {
		typesenseClient, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("Typesense unavailable, provider suggestions use the directory")
		} else {
			adapter := search.NewTypesenseAdapter(typesenseClient)
			if err := adapter.InitSchema(ctx); err != nil {
				logger.Warn().Err(err).Msg("Failed to init Typesense schema")
			}
			searchIndex = adapter
			dependencies["typesense"] = typesenseClient
		}
	}

	// Adapters
	providerDirectory := database.NewProviderAdapter(pgClient, metrics)
	staffDirectory := database.NewStaffAdapter(pgClient, metrics)

	var taxonomy repositories.ConditionTaxonomy = database.NewConditionAdapter(pgClient)
	if cacheProvider != nil {
		taxonomy = database.NewCachedConditionAdapter(taxonomy, cacheProvider, cfg.Cache.TaxonomyTTLSeconds, metrics)
		logger.Info().Int("ttl_seconds", cfg.Cache.TaxonomyTTLSeconds).Msg("Taxonomy lookups cached in Redis")
	}

	// Services
	resolver := services.NewConditionResolver(taxonomy)
	matchingService := services.NewHospitalMatchingService(providerDirectory, resolver, staffDirectory, cfg.Matching, metrics)
	suggestionService := services.NewSearchSuggestionService(resolver, providerDirectory, searchIndex, metrics)

	if cacheProvider != nil && eventBus != nil {
		invalidation := services.NewCacheInvalidationService(cacheProvider, eventBus, providerDirectory, searchIndex)
		if err := invalidation.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start cache invalidation service")
		} else {
			defer invalidation.Stop()
		}
	}

	if cacheProvider != nil && cfg.Cache.WarmInterval > 0 {
		warmCtx, stopWarming := context.WithCancel(context.Background())
		defer stopWarming()
		go services.NewCacheWarmingService(taxonomy).StartPeriodicWarming(warmCtx, cfg.Cache.WarmInterval)
	}

	router := routes.NewRouter(
		handlers.NewMatchHandler(matchingService, cfg.Matching.RequestTimeout),
		handlers.NewSuggestionHandler(suggestionService, cfg.Suggest.RequestTimeout),
		dependencies,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing event bus")
		}
	}

	logger.Info().Msg("Server stopped")
}
