package services_test

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
)

type MockProviderDirectory struct {
	mock.Mock
}

func (m *MockProviderDirectory) ListPublic(ctx context.Context) ([]*entities.CandidateProvider, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CandidateProvider), args.Error(1)
}

func (m *MockProviderDirectory) GetByID(ctx context.Context, id string) (*entities.CandidateProvider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CandidateProvider), args.Error(1)
}

func (m *MockProviderDirectory) SearchPublicByName(ctx context.Context, query string, limit int) ([]*entities.ProviderName, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProviderName), args.Error(1)
}

func (m *MockProviderDirectory) CountPublicOffering(ctx context.Context, treatment, specialty string) (int, error) {
	args := m.Called(ctx, treatment, specialty)
	return args.Int(0), args.Error(1)
}

func (m *MockProviderDirectory) CountPublicByCity(ctx context.Context, query string, limit int) ([]*entities.CityCount, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.CityCount), args.Error(1)
}

type MockConditionTaxonomy struct {
	mock.Mock
}

func (m *MockConditionTaxonomy) Resolve(ctx context.Context, condition string) (*entities.ConditionTaxonomyEntry, error) {
	args := m.Called(ctx, condition)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ConditionTaxonomyEntry), args.Error(1)
}

func (m *MockConditionTaxonomy) Search(ctx context.Context, query string, limit int) ([]*entities.ConditionTaxonomyEntry, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ConditionTaxonomyEntry), args.Error(1)
}

type MockStaffDirectory struct {
	mock.Mock
}

func (m *MockStaffDirectory) ListClinicalStaff(ctx context.Context, providerIDs []string) (map[string][]*entities.StaffMember, error) {
	args := m.Called(ctx, providerIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]*entities.StaffMember), args.Error(1)
}

type MockProviderSearch struct {
	mock.Mock
}

func (m *MockProviderSearch) SearchNames(ctx context.Context, query string, limit int) ([]*entities.ProviderName, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProviderName), args.Error(1)
}

func (m *MockProviderSearch) Index(ctx context.Context, provider *entities.CandidateProvider) error {
	return m.Called(ctx, provider).Error(0)
}

func (m *MockProviderSearch) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockCacheProvider is an in-memory cache with glob pattern deletes
type MockCacheProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{data: make(map[string][]byte)}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
			removed++
		}
	}
	return removed, nil
}

func (m *MockCacheProvider) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}
	return keys
}

// MockEventBus delivers published events to in-process subscribers
type MockEventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.DirectoryEvent
	published   []*entities.DirectoryEvent
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan *entities.DirectoryEvent),
		published:   make([]*entities.DirectoryEvent, 0),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.DirectoryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, event)
	for _, ch := range m.subscribers[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DirectoryEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan *entities.DirectoryEvent, 10)
	m.subscribers[channel] = append(m.subscribers[channel], ch)
	return ch, nil
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subscribers[channel] {
		close(ch)
	}
	delete(m.subscribers, channel)
	return nil
}

func (m *MockEventBus) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, channels := range m.subscribers {
		for _, ch := range channels {
			close(ch)
		}
		delete(m.subscribers, channel)
	}
	return nil
}

func (m *MockEventBus) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}
