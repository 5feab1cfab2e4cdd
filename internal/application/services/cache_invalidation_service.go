package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/providers"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

const eventHandlingTimeout = 5 * time.Second

// CacheInvalidationService keeps derived state in step with directory changes:
// taxonomy updates drop cached resolutions, provider updates refresh the search index
type CacheInvalidationService struct {
	cache       providers.CacheProvider
	eventBus    providers.EventBus
	directory   repositories.ProviderDirectory
	searchIndex repositories.ProviderSearchRepository
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service. searchIndex may be nil.
func NewCacheInvalidationService(
	cache providers.CacheProvider,
	eventBus providers.EventBus,
	directory repositories.ProviderDirectory,
	searchIndex repositories.ProviderSearchRepository,
) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:       cache,
		eventBus:    eventBus,
		directory:   directory,
		searchIndex: searchIndex,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start begins listening for directory events
func (s *CacheInvalidationService) Start() error {
	taxonomyEvents, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelTaxonomyUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to taxonomy updates: %w", err)
	}

	providerEvents, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelProviderUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to provider updates: %w", err)
	}

	go s.processEvents(taxonomyEvents, providerEvents)
	observability.GetLogger().Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the service and waits for the event loop to exit
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	<-s.done
	observability.GetLogger().Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(taxonomyEvents, providerEvents <-chan *entities.DirectoryEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-taxonomyEvents:
			if !ok {
				taxonomyEvents = nil
				continue
			}
			if event != nil {
				s.handleTaxonomyEvent(event)
			}
		case event, ok := <-providerEvents:
			if !ok {
				providerEvents = nil
				continue
			}
			if event != nil {
				s.handleProviderEvent(event)
			}
		}
	}
}

func (s *CacheInvalidationService) handleTaxonomyEvent(event *entities.DirectoryEvent) {
	ctx, cancel := context.WithTimeout(s.ctx, eventHandlingTimeout)
	defer cancel()

	logger := observability.GetLogger()
	if err := s.InvalidateTaxonomyCache(ctx); err != nil {
		logger.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to invalidate taxonomy cache")
		return
	}
	logger.Info().Str("event_id", event.ID).Msg("Invalidated taxonomy cache")
}

func (s *CacheInvalidationService) handleProviderEvent(event *entities.DirectoryEvent) {
	if s.searchIndex == nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, eventHandlingTimeout)
	defer cancel()

	logger := observability.GetLogger()
	for _, id := range event.EntityIDs {
		if err := s.RefreshProviderIndex(ctx, id); err != nil {
			logger.Warn().Err(err).Str("event_id", event.ID).Str("provider_id", id).Msg("Failed to refresh provider index")
		}
	}
}

// InvalidateTaxonomyCache drops every cached taxonomy resolution
func (s *CacheInvalidationService) InvalidateTaxonomyCache(ctx context.Context) error {
	removed, err := s.cache.DeletePattern(ctx, providers.CacheKeyPatternTaxonomy)
	if err != nil {
		return fmt.Errorf("failed to invalidate taxonomy cache: %w", err)
	}
	observability.LoggerFromContext(ctx).Info().Int("keys", removed).Msg("Taxonomy cache invalidated")
	return nil
}

// RefreshProviderIndex re-indexes a provider, or removes it from the index when it
// is gone or no longer public
func (s *CacheInvalidationService) RefreshProviderIndex(ctx context.Context, providerID string) error {
	provider, err := s.directory.GetByID(ctx, providerID)
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) || (err == nil && !provider.IsPublic) {
		return s.searchIndex.Delete(ctx, providerID)
	}
	if err != nil {
		return err
	}
	return s.searchIndex.Index(ctx, provider)
}
