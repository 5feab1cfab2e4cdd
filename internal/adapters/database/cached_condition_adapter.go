package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/providers"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
)

// CachedConditionAdapter wraps a ConditionTaxonomy with a Redis cache in front of Resolve.
// Misses are cached too, so unknown conditions do not hit the store on every request.
type CachedConditionAdapter struct {
	adapter repositories.ConditionTaxonomy
	cache   providers.CacheProvider
	ttl     int
	metrics *observability.Metrics
}

var _ repositories.ConditionTaxonomy = (*CachedConditionAdapter)(nil)

// NewCachedConditionAdapter creates a new cached taxonomy adapter
func NewCachedConditionAdapter(adapter repositories.ConditionTaxonomy, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) *CachedConditionAdapter {
	return &CachedConditionAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
		metrics: metrics,
	}
}

func resolveCacheKey(condition string) string {
	return fmt.Sprintf("%sresolve:%s", providers.CacheKeyPrefixTaxonomy, strings.ToLower(strings.TrimSpace(condition)))
}

// cachedResolution distinguishes a cached miss from an absent cache entry
type cachedResolution struct {
	Entry *entities.ConditionTaxonomyEntry `json:"entry"`
}

// Resolve returns the cached resolution when present, otherwise asks the store
func (a *CachedConditionAdapter) Resolve(ctx context.Context, condition string) (*entities.ConditionTaxonomyEntry, error) {
	if strings.TrimSpace(condition) == "" {
		return nil, nil
	}

	logger := observability.LoggerFromContext(ctx)
	cacheKey := resolveCacheKey(condition)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var resolution cachedResolution
		if err := json.Unmarshal(cached, &resolution); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, "taxonomy:resolve")
			return resolution.Entry, nil
		}
		logger.Warn().Err(err).Str("key", cacheKey).Msg("Ignoring undecodable cached taxonomy entry")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "taxonomy:resolve")

	entry, err := a.adapter.Resolve(ctx, condition)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cachedResolution{Entry: entry}); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, a.ttl); err != nil {
			logger.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache taxonomy entry")
		}
	}

	return entry, nil
}

// Search is not cached; suggestion counts must stay live
func (a *CachedConditionAdapter) Search(ctx context.Context, query string, limit int) ([]*entities.ConditionTaxonomyEntry, error) {
	return a.adapter.Search(ctx, query, limit)
}

