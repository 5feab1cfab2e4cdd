package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

const (
	minSuggestQueryLength = 2
	maxConditionResults   = 5
	maxProviderResults    = 5
	maxCityResults        = 3
	maxSuggestions        = 10
)

// SearchSuggestionService composes typeahead suggestions across conditions, providers
// and cities
type SearchSuggestionService struct {
	resolver    *ConditionResolver
	providers   repositories.ProviderDirectory
	searchIndex repositories.ProviderSearchRepository
	metrics     *observability.Metrics
}

// NewSearchSuggestionService creates a new suggestion service. searchIndex may be nil,
// in which case provider names are looked up in the directory.
func NewSearchSuggestionService(
	resolver *ConditionResolver,
	providers repositories.ProviderDirectory,
	searchIndex repositories.ProviderSearchRepository,
	metrics *observability.Metrics,
) *SearchSuggestionService {
	return &SearchSuggestionService{
		resolver:    resolver,
		providers:   providers,
		searchIndex: searchIndex,
		metrics:     metrics,
	}
}

// Suggest returns at most ten suggestions: conditions, then providers, then cities.
// Queries shorter than two characters return nothing.
func (s *SearchSuggestionService) Suggest(ctx context.Context, query string) ([]*entities.Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minSuggestQueryLength {
		return []*entities.Suggestion{}, nil
	}

	ctx, span := observability.StartSpan(ctx, "SearchSuggestionService.Suggest")
	defer span.End()

	var conditions, providers, cities []*entities.Suggestion

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		conditions, err = s.conditionSuggestions(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		providers, err = s.providerSuggestions(gctx, query)
		return err
	})
	g.Go(func() error {
		var err error
		cities, err = s.citySuggestions(gctx, query)
		return err
	})
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.AsDataUnavailable("failed to compose suggestions", err)
	}

	observability.RecordSuggestionMetric(ctx, s.metrics, string(entities.SuggestionTypeCondition), len(conditions))
	observability.RecordSuggestionMetric(ctx, s.metrics, string(entities.SuggestionTypeHospital), len(providers))
	observability.RecordSuggestionMetric(ctx, s.metrics, string(entities.SuggestionTypeCity), len(cities))
	observability.LoggerFromContext(ctx).Debug().
		Str("query", query).
		Int("conditions", len(conditions)).
		Int("providers", len(providers)).
		Int("cities", len(cities)).
		Msg("Composed suggestions")

	suggestions := make([]*entities.Suggestion, 0, len(conditions)+len(providers)+len(cities))
	suggestions = append(suggestions, conditions...)
	suggestions = append(suggestions, providers...)
	suggestions = append(suggestions, cities...)
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}

// conditionSuggestions returns matching taxonomy entries with a live count of
// public providers treating each
func (s *SearchSuggestionService) conditionSuggestions(ctx context.Context, query string) ([]*entities.Suggestion, error) {
	entries, err := s.resolver.Search(ctx, query, maxConditionResults)
	if err != nil {
		return nil, err
	}
	if len(entries) > maxConditionResults {
		entries = entries[:maxConditionResults]
	}

	suggestions := make([]*entities.Suggestion, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	for i, entry := range entries {
		g.Go(func() error {
			count, err := s.providers.CountPublicOffering(gctx, entry.Condition, entry.Specialty)
			if err != nil {
				return err
			}
			suggestions[i] = &entities.Suggestion{
				Type:  entities.SuggestionTypeCondition,
				Text:  entry.Condition,
				Count: &count,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// providerSuggestions prefers the search index when configured and falls back to
// the directory if the index fails
func (s *SearchSuggestionService) providerSuggestions(ctx context.Context, query string) ([]*entities.Suggestion, error) {
	var names []*entities.ProviderName
	var err error

	if s.searchIndex != nil {
		names, err = s.searchIndex.SearchNames(ctx, query, maxProviderResults)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Provider index search failed, using directory")
			names = nil
		}
	}
	if names == nil {
		names, err = s.providers.SearchPublicByName(ctx, query, maxProviderResults)
		if err != nil {
			return nil, err
		}
	}
	if len(names) > maxProviderResults {
		names = names[:maxProviderResults]
	}

	suggestions := make([]*entities.Suggestion, len(names))
	for i, name := range names {
		suggestions[i] = &entities.Suggestion{
			Type: entities.SuggestionTypeHospital,
			Text: name.Name,
			ID:   name.ID,
		}
	}
	return suggestions, nil
}

func (s *SearchSuggestionService) citySuggestions(ctx context.Context, query string) ([]*entities.Suggestion, error) {
	cities, err := s.providers.CountPublicByCity(ctx, query, maxCityResults)
	if err != nil {
		return nil, err
	}
	if len(cities) > maxCityResults {
		cities = cities[:maxCityResults]
	}

	suggestions := make([]*entities.Suggestion, len(cities))
	for i, city := range cities {
		count := city.Count
		suggestions[i] = &entities.Suggestion{
			Type:  entities.SuggestionTypeCity,
			Text:  city.City,
			Count: &count,
		}
	}
	return suggestions, nil
}
