package services

import (
	"context"
	"strings"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

// ConditionResolver maps free-text conditions onto taxonomy entries
type ConditionResolver struct {
	taxonomy repositories.ConditionTaxonomy
}

// NewConditionResolver creates a new condition resolver
func NewConditionResolver(taxonomy repositories.ConditionTaxonomy) *ConditionResolver {
	return &ConditionResolver{taxonomy: taxonomy}
}

// Resolve returns the taxonomy entry for a condition, or nil when none matches.
// Only store failures are errors.
func (r *ConditionResolver) Resolve(ctx context.Context, condition string) (*entities.ConditionTaxonomyEntry, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, nil
	}

	entry, err := r.taxonomy.Resolve(ctx, condition)
	if err != nil {
		return nil, apperrors.AsDataUnavailable("failed to resolve condition", err)
	}
	return entry, nil
}

// Search returns taxonomy entries matching a typeahead query
func (r *ConditionResolver) Search(ctx context.Context, query string, limit int) ([]*entities.ConditionTaxonomyEntry, error) {
	entries, err := r.taxonomy.Search(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, apperrors.AsDataUnavailable("failed to search conditions", err)
	}
	return entries, nil
}
