package repositories

import (
	"context"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
)

// ProviderDirectory defines read access to publicly listed providers
type ProviderDirectory interface {
	// ListPublic retrieves every publicly listed provider in store order
	ListPublic(ctx context.Context) ([]*entities.CandidateProvider, error)

	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.CandidateProvider, error)

	// SearchPublicByName retrieves public providers whose name matches the query
	SearchPublicByName(ctx context.Context, query string, limit int) ([]*entities.ProviderName, error)

	// CountPublicOffering counts public providers offering a treatment matching
	// treatment, or listing a specialty matching specialty
	CountPublicOffering(ctx context.Context, treatment, specialty string) (int, error)

	// CountPublicByCity groups public providers whose city matches the query
	CountPublicByCity(ctx context.Context, query string, limit int) ([]*entities.CityCount, error)
}

// ProviderWriter is used by tooling that loads provider records
type ProviderWriter interface {
	Upsert(ctx context.Context, provider *entities.CandidateProvider) error
}

// ProviderSearchRepository defines the interface for the provider name index (e.g. Typesense)
type ProviderSearchRepository interface {
	// SearchNames searches public provider names
	SearchNames(ctx context.Context, query string, limit int) ([]*entities.ProviderName, error)

	// Index indexes a provider
	Index(ctx context.Context, provider *entities.CandidateProvider) error

	// Delete removes a provider from index
	Delete(ctx context.Context, id string) error
}
