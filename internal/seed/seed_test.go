package seed_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/providers"
	"github.com/zatekoja/carematch/backend/internal/seed"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) upsert(ctx context.Context, v interface{}) error {
	return m.MethodCalled("upsert", ctx, v).Error(0)
}

type conditionWriter struct{ *MockWriter }

func (w conditionWriter) Upsert(ctx context.Context, entry *entities.ConditionTaxonomyEntry) error {
	return w.upsert(ctx, entry)
}

type providerWriter struct{ *MockWriter }

func (w providerWriter) Upsert(ctx context.Context, provider *entities.CandidateProvider) error {
	return w.upsert(ctx, provider)
}

type staffWriter struct{ *MockWriter }

func (w staffWriter) Upsert(ctx context.Context, member *entities.StaffMember) error {
	return w.upsert(ctx, member)
}

type recordingBus struct {
	mu        sync.Mutex
	published map[string][]*entities.DirectoryEvent
}

func (b *recordingBus) Publish(ctx context.Context, channel string, event *entities.DirectoryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.published == nil {
		b.published = map[string][]*entities.DirectoryEvent{}
	}
	b.published[channel] = append(b.published[channel], event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.DirectoryEvent, error) {
	return nil, errors.New("not supported")
}

func (b *recordingBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *recordingBus) Close() error { return nil }

func loadSample(t *testing.T) *seed.Fixture {
	t.Helper()
	file, err := os.Open("testdata/sample.yaml")
	require.NoError(t, err)
	defer file.Close()

	fixture, err := seed.ParseFixture(file)
	require.NoError(t, err)
	return fixture
}

func TestParseFixture_Sample(t *testing.T) {
	fixture := loadSample(t)

	assert.Len(t, fixture.Conditions, 4)
	assert.Len(t, fixture.Providers, 5)
	assert.Len(t, fixture.Staff, 6)

	apollo := fixture.Providers[0].Candidate()
	assert.Equal(t, "apollo-chennai", apollo.ID)
	assert.True(t, apollo.IsPublic)
	assert.True(t, apollo.InternationalSupport.RemoteFollowup)
	rate, ok := apollo.SuccessRates.Lookup("ivf")
	require.True(t, ok)
	assert.Equal(t, 62.0, rate)
	require.NotNil(t, apollo.RatingAvg)
	assert.Equal(t, 4.6, *apollo.RatingAvg)

	assert.False(t, fixture.Providers[4].Candidate().IsPublic)
}

func TestFixture_StableIDs(t *testing.T) {
	first := loadSample(t)
	second := loadSample(t)

	assert.Equal(t, first.Conditions[0].Entry().ID, second.Conditions[0].Entry().ID)
	assert.NotEqual(t, first.Conditions[0].Entry().ID, first.Conditions[1].Entry().ID)
	assert.Equal(t, first.Staff[0].Member().ID, second.Staff[0].Member().ID)
	assert.NotEqual(t, first.Staff[0].Member().ID, first.Staff[1].Member().ID)

	explicit := seed.ConditionFixture{ID: "c-1", Condition: "IVF", Specialty: "Fertility"}
	assert.Equal(t, "c-1", explicit.Entry().ID)
	assert.NotNil(t, explicit.Entry().Keywords)
}

func TestParseFixture_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "providers:\n  - id: a\n    name: A\n    colour: blue\n"},
		{"missing specialty", "conditions:\n  - condition: IVF\n"},
		{"duplicate condition", "conditions:\n  - {condition: IVF, specialty: Fertility}\n  - {condition: ivf, specialty: Fertility}\n"},
		{"duplicate provider", "providers:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"},
		{"inverted price range", "providers:\n  - {id: a, name: A, price_range_min: 10, price_range_max: 5}\n"},
		{"unknown staff provider", "staff:\n  - {provider_id: x, user_id: u, role: doctor}\n"},
		{"unknown role", "providers:\n  - {id: a, name: A}\nstaff:\n  - {provider_id: a, user_id: u, role: surgeon}\n"},
		{"malformed yaml", "providers: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seed.ParseFixture(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		})
	}
}

func TestParseFixture_Empty(t *testing.T) {
	fixture, err := seed.ParseFixture(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, fixture.Providers)
}

func TestSeeder_Apply(t *testing.T) {
	fixture := loadSample(t)
	writer := new(MockWriter)
	writer.On("upsert", mock.Anything, mock.Anything).Return(nil)
	bus := &recordingBus{}

	seeder := seed.NewSeeder(conditionWriter{writer}, providerWriter{writer}, staffWriter{writer}, bus)
	summary, err := seeder.Apply(context.Background(), fixture)
	require.NoError(t, err)

	assert.Equal(t, seed.Summary{Conditions: 4, Providers: 5, Staff: 6}, summary)
	writer.AssertNumberOfCalls(t, "upsert", 15)

	// providers are written before any staff member referencing them
	firstStaff := -1
	lastProvider := -1
	for i, call := range writer.Calls {
		switch call.Arguments.Get(1).(type) {
		case *entities.CandidateProvider:
			lastProvider = i
		case *entities.StaffMember:
			if firstStaff < 0 {
				firstStaff = i
			}
		}
	}
	assert.Less(t, lastProvider, firstStaff)

	require.Len(t, bus.published[providers.EventChannelTaxonomyUpdates], 1)
	require.Len(t, bus.published[providers.EventChannelProviderUpdates], 1)
	event := bus.published[providers.EventChannelProviderUpdates][0]
	assert.Equal(t, entities.DirectoryEventProviderUpdated, event.EventType)
	assert.Equal(t, []string{"apollo-chennai", "fortis-mumbai", "sankara-eye", "cloudnine-bangalore", "draft-clinic"}, event.EntityIDs)
}

func TestSeeder_StopsOnWriteFailure(t *testing.T) {
	fixture := loadSample(t)
	writer := new(MockWriter)
	writer.On("upsert", mock.Anything, mock.AnythingOfType("*entities.ConditionTaxonomyEntry")).Return(nil)
	writer.On("upsert", mock.Anything, mock.AnythingOfType("*entities.CandidateProvider")).Return(errors.New("constraint violation"))
	bus := &recordingBus{}

	seeder := seed.NewSeeder(conditionWriter{writer}, providerWriter{writer}, staffWriter{writer}, bus)
	summary, err := seeder.Apply(context.Background(), fixture)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "apollo-chennai")
	assert.Equal(t, seed.Summary{Conditions: 4}, summary)
	assert.Empty(t, bus.published)
}

func TestSeeder_WithoutEventBus(t *testing.T) {
	writer := new(MockWriter)
	writer.On("upsert", mock.Anything, mock.Anything).Return(nil)

	seeder := seed.NewSeeder(conditionWriter{writer}, providerWriter{writer}, staffWriter{writer}, nil)
	summary, err := seeder.Apply(context.Background(), &seed.Fixture{
		Providers: []seed.ProviderFixture{{ID: "a", Name: "A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Providers)
}
