package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	tsclient "github.com/zatekoja/carematch/backend/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements the provider name index using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProviderSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	return a.client.InitSchema(ctx)
}

// providerDocument builds the index document for a provider
func providerDocument(provider *entities.CandidateProvider) map[string]interface{} {
	return map[string]interface{}{
		"id":         provider.ID,
		"name":       strings.TrimSpace(provider.Name),
		"city":       provider.City,
		"country":    provider.Country,
		"is_public":  provider.IsPublic,
		"created_at": provider.CreatedAt.Unix(),
	}
}

// Index indexes a provider
func (a *TypesenseAdapter) Index(ctx context.Context, provider *entities.CandidateProvider) error {
	_, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Upsert(ctx, providerDocument(provider))
	if err != nil {
		return fmt.Errorf("failed to index provider: %w", err)
	}
	return nil
}

// Delete removes a provider from index
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(tsclient.ProvidersCollection).Document(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete provider from index: %w", err)
	}
	return nil
}

// nameSearchParams builds an exact substring search over public provider names.
// Typesense defaults to typo-tolerant word prefixes, so typos are disabled and infix
// matching is forced to keep results identical to the directory's name search.
func nameSearchParams(query string, limit int) *api.SearchCollectionParams {
	return &api.SearchCollectionParams{
		Q:        pointer.String(strings.TrimSpace(query)),
		QueryBy:  pointer.String("name"),
		FilterBy: pointer.String("is_public:=true"),
		NumTypos: pointer.String("0"),
		Infix:    pointer.String("always"),
		Page:     pointer.Int(1),
		PerPage:  pointer.Int(limit),
	}
}

// containsName drops hits whose name does not contain the query case-insensitively.
// Collections created before the name field was infix-enabled can still return
// prefix or token matches.
func containsName(names []*entities.ProviderName, query string) []*entities.ProviderName {
	needle := strings.ToLower(strings.TrimSpace(query))
	kept := names[:0]
	for _, name := range names {
		if strings.Contains(strings.ToLower(name.Name), needle) {
			kept = append(kept, name)
		}
	}
	return kept
}

// SearchNames searches public provider names
func (a *TypesenseAdapter) SearchNames(ctx context.Context, query string, limit int) ([]*entities.ProviderName, error) {
	result, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Search(ctx, nameSearchParams(query, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search providers: %w", err)
	}

	names := []*entities.ProviderName{}
	if result.Hits == nil {
		return names, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if name := providerNameFromDocument(*hit.Document); name != nil {
			names = append(names, name)
		}
	}
	return containsName(names, query), nil
}

// providerNameFromDocument reads id and name from a search hit; hits missing either are skipped
func providerNameFromDocument(doc map[string]interface{}) *entities.ProviderName {
	id, _ := doc["id"].(string)
	name, _ := doc["name"].(string)
	if id == "" || name == "" {
		return nil
	}
	return &entities.ProviderName{ID: id, Name: name}
}
