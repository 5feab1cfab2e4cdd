package database

import (
	"context"
	"database/sql"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

const conditionTaxonomyTable = "condition_taxonomy"

// ConditionAdapter implements ConditionTaxonomy and ConditionWriter on Postgres
type ConditionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var (
	_ repositories.ConditionTaxonomy = (*ConditionAdapter)(nil)
	_ repositories.ConditionWriter   = (*ConditionAdapter)(nil)
)

// NewConditionAdapter creates a new condition taxonomy adapter
func NewConditionAdapter(client *postgres.Client) *ConditionAdapter {
	return &ConditionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// matchesTaxonomy is true when the condition name or any keyword contains text
func matchesTaxonomy(text string) exp.Expression {
	pattern := containsPattern(text)
	return goqu.Or(
		goqu.C("condition").RegexpILike(pattern),
		goqu.L("EXISTS (SELECT 1 FROM unnest(keywords) AS k WHERE k ~* ?)", pattern),
	)
}

// Resolve returns the first taxonomy entry in store order whose name or keywords
// contain the condition. No match is (nil, nil).
func (a *ConditionAdapter) Resolve(ctx context.Context, condition string) (*entities.ConditionTaxonomyEntry, error) {
	if strings.TrimSpace(condition) == "" {
		return nil, nil
	}

	query, _, err := a.db.Select("id", "condition", "specialty", "keywords").
		From(conditionTaxonomyTable).
		Where(matchesTaxonomy(condition)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build taxonomy query", err)
	}

	entry := &entities.ConditionTaxonomyEntry{}
	var keywords pq.StringArray
	err = a.client.DB().QueryRowContext(ctx, query).Scan(&entry.ID, &entry.Condition, &entry.Specialty, &keywords)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to resolve condition", err)
	}
	entry.Keywords = []string(keywords)

	return entry, nil
}

// Search returns taxonomy entries matching the query ordered by condition name
func (a *ConditionAdapter) Search(ctx context.Context, query string, limit int) ([]*entities.ConditionTaxonomyEntry, error) {
	sqlQuery, _, err := a.db.Select("id", "condition", "specialty", "keywords").
		From(conditionTaxonomyTable).
		Where(matchesTaxonomy(query)).
		Order(goqu.I("condition").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build taxonomy search query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to search taxonomy", err)
	}
	defer rows.Close()

	entries := []*entities.ConditionTaxonomyEntry{}
	for rows.Next() {
		entry := &entities.ConditionTaxonomyEntry{}
		var keywords pq.StringArray
		if err := rows.Scan(&entry.ID, &entry.Condition, &entry.Specialty, &keywords); err != nil {
			return nil, apperrors.NewDataUnavailableError("failed to scan taxonomy entry", err)
		}
		entry.Keywords = []string(keywords)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to iterate taxonomy entries", err)
	}

	return entries, nil
}

// Upsert inserts a taxonomy entry or replaces the one with the same ID
func (a *ConditionAdapter) Upsert(ctx context.Context, entry *entities.ConditionTaxonomyEntry) error {
	query, _, err := a.db.Insert(conditionTaxonomyTable).
		Rows(goqu.Record{
			"id":        entry.ID,
			"condition": entry.Condition,
			"specialty": entry.Specialty,
			"keywords":  pq.Array(nonNil(entry.Keywords)),
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"condition": goqu.L("EXCLUDED.condition"),
			"specialty": goqu.L("EXCLUDED.specialty"),
			"keywords":  goqu.L("EXCLUDED.keywords"),
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build taxonomy upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return apperrors.NewInternalError("failed to upsert taxonomy entry", err)
	}
	return nil
}
