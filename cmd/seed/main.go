package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zatekoja/carematch/backend/internal/adapters/database"
	"github.com/zatekoja/carematch/backend/internal/adapters/events"
	"github.com/zatekoja/carematch/backend/internal/domain/providers"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carematch/backend/internal/seed"
	"github.com/zatekoja/carematch/backend/pkg/config"
)

func main() {
	var fixturePath string
	var publish bool
	flag.StringVar(&fixturePath, "file", "internal/seed/testdata/sample.yaml", "YAML fixture with conditions, providers and staff")
	flag.BoolVar(&publish, "publish", true, "publish directory update events so running services refresh")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-seed", cfg.Logging)
	logger := observability.GetLogger()

	file, err := os.Open(fixturePath)
	if err != nil {
		logger.Fatal().Err(err).Str("file", fixturePath).Msg("Failed to open fixture")
	}
	fixture, err := seed.ParseFixture(file)
	file.Close()
	if err != nil {
		logger.Fatal().Err(err).Str("file", fixturePath).Msg("Failed to parse fixture")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	var eventBus providers.EventBus
	if publish {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, directory events will not be published")
		} else {
			defer redisClient.Close()
			eventBus = events.NewRedisEventBus(redisClient)
			defer eventBus.Close()
		}
	}

	seeder := seed.NewSeeder(
		database.NewConditionAdapter(pgClient),
		database.NewProviderAdapter(pgClient, nil),
		database.NewStaffAdapter(pgClient, nil),
		eventBus,
	)

	summary, err := seeder.Apply(ctx, fixture)
	if err != nil {
		logger.Error().Err(err).
			Int("conditions", summary.Conditions).
			Int("providers", summary.Providers).
			Int("staff", summary.Staff).
			Msg("Seeding failed")
		os.Exit(1)
	}

	logger.Info().
		Str("file", fixturePath).
		Int("conditions", summary.Conditions).
		Int("providers", summary.Providers).
		Int("staff", summary.Staff).
		Msg("Seeding complete")
}
