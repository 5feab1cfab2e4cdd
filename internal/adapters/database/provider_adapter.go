package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

const providersTable = "providers"

var providerColumns = []interface{}{
	"id", "name", "treatments_offered", "specialties", "success_rates",
	"price_range_min", "price_range_max", "average_cost_by_treatment",
	"city", "country", "patient_satisfaction", "completion_rate", "rating_avg",
	"response_time_hours", "international_support", "is_public",
	"created_at", "updated_at",
}

// ProviderAdapter implements ProviderDirectory and ProviderWriter on Postgres
type ProviderAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

var (
	_ repositories.ProviderDirectory = (*ProviderAdapter)(nil)
	_ repositories.ProviderWriter    = (*ProviderAdapter)(nil)
)

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client, metrics *observability.Metrics) *ProviderAdapter {
	return &ProviderAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// containsPattern turns free text into a case-insensitive containment regex operand
func containsPattern(text string) string {
	return regexp.QuoteMeta(strings.TrimSpace(text))
}

// ListPublic retrieves every publicly listed provider
func (a *ProviderAdapter) ListPublic(ctx context.Context) ([]*entities.CandidateProvider, error) {
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "providers.list_public", time.Since(start)) }()

	query, _, err := a.db.Select(providerColumns...).
		From(providersTable).
		Where(goqu.Ex{"is_public": true}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to list providers", err)
	}
	defer rows.Close()

	providers := []*entities.CandidateProvider{}
	for rows.Next() {
		provider, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to iterate providers", err)
	}

	return providers, nil
}

// GetByID retrieves a provider by ID, public or not
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.CandidateProvider, error) {
	query, _, err := a.db.Select(providerColumns...).
		From(providersTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider, err := scanProvider(a.client.DB().QueryRowContext(ctx, query))
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	return provider, err
}

// SearchPublicByName retrieves public providers whose name contains the query
func (a *ProviderAdapter) SearchPublicByName(ctx context.Context, query string, limit int) ([]*entities.ProviderName, error) {
	sqlQuery, _, err := a.db.Select("id", "name").
		From(providersTable).
		Where(
			goqu.Ex{"is_public": true},
			goqu.C("name").RegexpILike(containsPattern(query)),
		).
		Order(goqu.I("name").Asc(), goqu.I("id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build name search query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to search providers", err)
	}
	defer rows.Close()

	names := []*entities.ProviderName{}
	for rows.Next() {
		name := &entities.ProviderName{}
		if err := rows.Scan(&name.ID, &name.Name); err != nil {
			return nil, apperrors.NewDataUnavailableError("failed to scan provider name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to iterate provider names", err)
	}

	return names, nil
}

// CountPublicOffering counts public providers with a treatment containing treatment
// or a specialty containing specialty. Blank operands are ignored.
func (a *ProviderAdapter) CountPublicOffering(ctx context.Context, treatment, specialty string) (int, error) {
	var matches []exp.Expression
	if strings.TrimSpace(treatment) != "" {
		matches = append(matches, goqu.L(
			"EXISTS (SELECT 1 FROM unnest(treatments_offered) AS t WHERE t ~* ?)", containsPattern(treatment)))
	}
	if strings.TrimSpace(specialty) != "" {
		matches = append(matches, goqu.L(
			"EXISTS (SELECT 1 FROM unnest(specialties) AS s WHERE s ~* ?)", containsPattern(specialty)))
	}
	if len(matches) == 0 {
		return 0, nil
	}

	query, _, err := a.db.Select(goqu.COUNT("*")).
		From(providersTable).
		Where(goqu.Ex{"is_public": true}, goqu.Or(matches...)).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.NewDataUnavailableError("failed to count providers", err)
	}
	return count, nil
}

// CountPublicByCity groups public providers by city for cities containing the query,
// most populated first
func (a *ProviderAdapter) CountPublicByCity(ctx context.Context, query string, limit int) ([]*entities.CityCount, error) {
	sqlQuery, _, err := a.db.Select(goqu.C("city"), goqu.COUNT("*").As("count")).
		From(providersTable).
		Where(
			goqu.Ex{"is_public": true},
			goqu.C("city").RegexpILike(containsPattern(query)),
		).
		GroupBy("city").
		Order(goqu.I("count").Desc(), goqu.I("city").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build city count query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to count providers by city", err)
	}
	defer rows.Close()

	cities := []*entities.CityCount{}
	for rows.Next() {
		city := &entities.CityCount{}
		if err := rows.Scan(&city.City, &city.Count); err != nil {
			return nil, apperrors.NewDataUnavailableError("failed to scan city count", err)
		}
		cities = append(cities, city)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to iterate city counts", err)
	}

	return cities, nil
}

// Upsert inserts a provider or replaces the stored record with the same ID
func (a *ProviderAdapter) Upsert(ctx context.Context, provider *entities.CandidateProvider) error {
	now := time.Now()
	if provider.CreatedAt.IsZero() {
		provider.CreatedAt = now
	}
	provider.UpdatedAt = now

	successRates, err := jsonbValue(provider.SuccessRates)
	if err != nil {
		return apperrors.NewValidationError("invalid success rates")
	}
	averageCosts, err := jsonbValue(provider.AverageCostByTreatment)
	if err != nil {
		return apperrors.NewValidationError("invalid average costs")
	}
	support, err := json.Marshal(provider.InternationalSupport)
	if err != nil {
		return apperrors.NewValidationError("invalid international support")
	}

	record := goqu.Record{
		"id":                        provider.ID,
		"name":                      provider.Name,
		"treatments_offered":        pq.Array(nonNil(provider.TreatmentsOffered)),
		"specialties":               pq.Array(nonNil(provider.Specialties)),
		"success_rates":             successRates,
		"price_range_min":           nullFloat(provider.PriceRangeMin),
		"price_range_max":           nullFloat(provider.PriceRangeMax),
		"average_cost_by_treatment": averageCosts,
		"city":                      provider.City,
		"country":                   provider.Country,
		"patient_satisfaction":      nullFloat(provider.PatientSatisfaction),
		"completion_rate":           nullFloat(provider.CompletionRate),
		"rating_avg":                nullFloat(provider.RatingAvg),
		"response_time_hours":       nullFloat(provider.ResponseTimeHours),
		"international_support":     string(support),
		"is_public":                 provider.IsPublic,
		"created_at":                provider.CreatedAt,
		"updated_at":                provider.UpdatedAt,
	}

	update := goqu.Record{}
	for column := range record {
		if column == "id" || column == "created_at" {
			continue
		}
		update[column] = goqu.L("EXCLUDED." + column)
	}

	query, _, err := a.db.Insert(providersTable).
		Rows(record).
		OnConflict(goqu.DoUpdate("id", update)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return apperrors.NewInternalError("failed to upsert provider", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProvider(row rowScanner) (*entities.CandidateProvider, error) {
	provider := &entities.CandidateProvider{}
	var (
		treatments, specialties                        pq.StringArray
		successRates, averageCosts, support            []byte
		priceMin, priceMax                             sql.NullFloat64
		satisfaction, completion, rating, responseTime sql.NullFloat64
		city, country                                  sql.NullString
	)

	err := row.Scan(
		&provider.ID,
		&provider.Name,
		&treatments,
		&specialties,
		&successRates,
		&priceMin,
		&priceMax,
		&averageCosts,
		&city,
		&country,
		&satisfaction,
		&completion,
		&rating,
		&responseTime,
		&support,
		&provider.IsPublic,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("provider not found")
	}
	if err != nil {
		return nil, apperrors.NewDataUnavailableError("failed to scan provider", err)
	}

	provider.TreatmentsOffered = []string(treatments)
	provider.Specialties = []string(specialties)
	provider.City = city.String
	provider.Country = country.String
	provider.PriceRangeMin = floatPtr(priceMin)
	provider.PriceRangeMax = floatPtr(priceMax)
	provider.PatientSatisfaction = floatPtr(satisfaction)
	provider.CompletionRate = floatPtr(completion)
	provider.RatingAvg = floatPtr(rating)
	provider.ResponseTimeHours = floatPtr(responseTime)

	if provider.SuccessRates, err = decodeConditionValues(successRates); err != nil {
		return nil, malformedProvider(provider.ID, "success_rates", err)
	}
	if provider.AverageCostByTreatment, err = decodeConditionValues(averageCosts); err != nil {
		return nil, malformedProvider(provider.ID, "average_cost_by_treatment", err)
	}
	if len(support) > 0 && string(support) != "null" {
		if err := json.Unmarshal(support, &provider.InternationalSupport); err != nil {
			return nil, malformedProvider(provider.ID, "international_support", err)
		}
	}

	return provider, nil
}

func malformedProvider(id, field string, err error) error {
	return apperrors.NewDataUnavailableError(
		"malformed provider record",
		fmt.Errorf("provider %s field %s: %w", id, field, err),
	)
}

// decodeConditionValues reads a jsonb object of condition to number. Values may be
// JSON numbers or numeric strings; null entries are skipped.
func decodeConditionValues(raw []byte) (entities.ConditionValues, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}

	values := make(entities.ConditionValues, len(decoded))
	for key, value := range decoded {
		switch v := value.(type) {
		case nil:
			continue
		case float64:
			values[key] = v
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("value for %q is not numeric: %q", key, v)
			}
			values[key] = f
		default:
			return nil, fmt.Errorf("value for %q has unsupported type %T", key, value)
		}
	}
	return values, nil
}

func jsonbValue(values entities.ConditionValues) (interface{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
