package repositories

import (
	"context"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
)

// ConditionTaxonomy defines read access to the condition taxonomy
type ConditionTaxonomy interface {
	// Resolve returns the first entry whose condition name or keywords contain the
	// input case-insensitively, or nil when nothing matches
	Resolve(ctx context.Context, condition string) (*entities.ConditionTaxonomyEntry, error)

	// Search returns entries whose condition name or keywords match the query
	Search(ctx context.Context, query string, limit int) ([]*entities.ConditionTaxonomyEntry, error)
}

// ConditionWriter is used by tooling that loads taxonomy records
type ConditionWriter interface {
	Upsert(ctx context.Context, entry *entities.ConditionTaxonomyEntry) error
}
