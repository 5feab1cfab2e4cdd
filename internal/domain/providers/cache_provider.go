package providers

import (
	"context"
)

// CacheProvider is the key/value store behind cached reference data lookups
type CacheProvider interface {
	// Get returns the stored value or an error when the key is absent or expired
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value; zero expirationSeconds keeps it until deleted
	Set(ctx context.Context, key string, value []byte, expirationSeconds int) error

	// DeletePattern removes every key matching a glob pattern and reports how many went
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

const (
	// CacheKeyPrefixTaxonomy prefixes every cached taxonomy resolution
	CacheKeyPrefixTaxonomy = "taxonomy:"

	// CacheKeyPatternTaxonomy matches every cached taxonomy resolution
	CacheKeyPatternTaxonomy = CacheKeyPrefixTaxonomy + "*"
)
