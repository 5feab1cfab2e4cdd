package seed

import (
	"context"
	"fmt"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/providers"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
)

// Summary counts what a seeding run wrote
type Summary struct {
	Conditions int
	Providers  int
	Staff      int
}

// Seeder writes fixtures into the directory and announces the changes
type Seeder struct {
	conditions repositories.ConditionWriter
	providers  repositories.ProviderWriter
	staff      repositories.StaffWriter
	eventBus   providers.EventBus
}

// NewSeeder creates a new seeder. eventBus may be nil, in which case no events are published.
func NewSeeder(
	conditions repositories.ConditionWriter,
	providerWriter repositories.ProviderWriter,
	staff repositories.StaffWriter,
	eventBus providers.EventBus,
) *Seeder {
	return &Seeder{
		conditions: conditions,
		providers:  providerWriter,
		staff:      staff,
		eventBus:   eventBus,
	}
}

// Apply upserts conditions, then providers, then staff. Providers are written before
// staff so memberships always reference an existing provider.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Summary, error) {
	var summary Summary
	logger := observability.LoggerFromContext(ctx)

	for _, c := range f.Conditions {
		if err := s.conditions.Upsert(ctx, c.Entry()); err != nil {
			return summary, fmt.Errorf("condition %q: %w", c.Condition, err)
		}
		summary.Conditions++
	}

	providerIDs := make([]string, 0, len(f.Providers))
	for _, p := range f.Providers {
		if err := s.providers.Upsert(ctx, p.Candidate()); err != nil {
			return summary, fmt.Errorf("provider %q: %w", p.ID, err)
		}
		providerIDs = append(providerIDs, p.ID)
		summary.Providers++
	}

	for _, m := range f.Staff {
		if err := s.staff.Upsert(ctx, m.Member()); err != nil {
			return summary, fmt.Errorf("staff %q at %q: %w", m.UserID, m.ProviderID, err)
		}
		summary.Staff++
	}

	if s.eventBus == nil {
		return summary, nil
	}

	if summary.Conditions > 0 {
		event := entities.NewDirectoryEvent(entities.DirectoryEventTaxonomyUpdated, nil)
		if err := s.eventBus.Publish(ctx, providers.EventChannelTaxonomyUpdates, event); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish taxonomy update")
		}
	}
	if len(providerIDs) > 0 {
		event := entities.NewDirectoryEvent(entities.DirectoryEventProviderUpdated, providerIDs)
		if err := s.eventBus.Publish(ctx, providers.EventChannelProviderUpdates, event); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish provider update")
		}
	}

	return summary, nil
}
