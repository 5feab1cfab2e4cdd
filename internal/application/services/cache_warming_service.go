package services

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
)

const maxWarmedConditions = 500

// CacheWarmingService pre-resolves known condition names and keywords so the first
// matching requests after a deploy or invalidation do not all reach Postgres
type CacheWarmingService struct {
	taxonomy repositories.ConditionTaxonomy
}

// NewCacheWarmingService creates a new cache warming service. taxonomy should be the
// cached adapter; warming an uncached one only costs queries.
func NewCacheWarmingService(taxonomy repositories.ConditionTaxonomy) *CacheWarmingService {
	return &CacheWarmingService{taxonomy: taxonomy}
}

// WarmCache resolves every taxonomy condition name and keyword once and returns how
// many terms were resolved
func (s *CacheWarmingService) WarmCache(ctx context.Context) (int, error) {
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	entries, err := s.taxonomy.Search(ctx, "", maxWarmedConditions)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	warmed := 0
	for _, entry := range entries {
		terms := append([]string{entry.Condition}, entry.Keywords...)
		for _, term := range terms {
			// cache keys are case-insensitive, so one resolution covers every casing
			key := strings.ToLower(strings.TrimSpace(term))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			if _, err := s.taxonomy.Resolve(ctx, term); err != nil {
				logger.Warn().Err(err).Str("term", term).Msg("Failed to warm taxonomy term")
				continue
			}
			warmed++
		}
	}

	logger.Info().
		Int("entries", len(entries)).
		Int("terms", warmed).
		Dur("duration", time.Since(start)).
		Msg("Taxonomy cache warmed")
	return warmed, nil
}

// StartPeriodicWarming warms immediately and then on every tick until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	logger := observability.GetLogger()

	if _, err := s.WarmCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial taxonomy cache warming failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Cache warming stopped")
			return
		case <-ticker.C:
			if _, err := s.WarmCache(ctx); err != nil {
				logger.Warn().Err(err).Msg("Periodic taxonomy cache warming failed")
			}
		}
	}
}
