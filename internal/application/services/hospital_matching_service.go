package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	"github.com/zatekoja/carematch/backend/internal/domain/repositories"
	"github.com/zatekoja/carematch/backend/internal/infrastructure/observability"
	"github.com/zatekoja/carematch/backend/internal/loaders"
	"github.com/zatekoja/carematch/backend/pkg/config"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

// HospitalMatchingService ranks publicly listed providers against a patient intent
type HospitalMatchingService struct {
	providers      repositories.ProviderDirectory
	resolver       *ConditionResolver
	staff          repositories.StaffDirectory
	maxConcurrency int
	staffBatchWait time.Duration
	metrics        *observability.Metrics
}

// NewHospitalMatchingService creates a new matching service
func NewHospitalMatchingService(
	providers repositories.ProviderDirectory,
	resolver *ConditionResolver,
	staff repositories.StaffDirectory,
	cfg config.MatchingConfig,
	metrics *observability.Metrics,
) *HospitalMatchingService {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &HospitalMatchingService{
		providers:      providers,
		resolver:       resolver,
		staff:          staff,
		maxConcurrency: maxConcurrency,
		staffBatchWait: cfg.StaffBatchWait,
		metrics:        metrics,
	}
}

// MatchHospitals scores every public provider and returns them best first.
// Equal scores are ordered by provider ID.
func (s *HospitalMatchingService) MatchHospitals(ctx context.Context, intent *entities.PatientIntent) ([]*entities.HospitalMatch, error) {
	ctx, span := observability.StartSpan(ctx, "HospitalMatchingService.MatchHospitals")
	defer span.End()

	start := time.Now()
	logger := observability.LoggerFromContext(ctx)

	if intent == nil {
		return nil, apperrors.NewValidationError("intent is required")
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.providers.ListPublic(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.AsDataUnavailable("failed to load candidate providers", err)
	}
	if len(candidates) == 0 {
		logger.Info().Str("condition", intent.Condition).Msg("No public providers to rank")
		return []*entities.HospitalMatch{}, nil
	}

	taxonomy, err := s.resolver.Resolve(ctx, intent.Condition)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	l := loaders.NewLoaders(s.staff, s.staffBatchWait, 0)
	matches := make([]*entities.HospitalMatch, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for i, candidate := range candidates {
		g.Go(func() error {
			breakdown, err := s.breakdown(gctx, l, candidate, intent, taxonomy)
			if err != nil {
				return err
			}
			matches[i] = &entities.HospitalMatch{
				Hospital:   candidate,
				Breakdown:  breakdown,
				MatchScore: MatchScore(breakdown),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.AsDataUnavailable("failed to score candidate providers", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].Hospital.ID < matches[j].Hospital.ID
	})

	specialty := ""
	if taxonomy != nil {
		specialty = taxonomy.Specialty
	}
	duration := time.Since(start)
	observability.RecordMatchMetric(ctx, s.metrics, len(candidates), duration)
	observability.SetSpanAttributes(span,
		attribute.Int("match.candidates", len(candidates)),
		attribute.String("match.specialty", specialty),
	)
	logger.Info().
		Str("condition", intent.Condition).
		Str("specialty", specialty).
		Int("candidates", len(candidates)).
		Int("top_score", matches[0].MatchScore).
		Dur("duration", duration).
		Msg("Ranked providers")

	return matches, nil
}

// breakdown runs the six scorers for one candidate. Only the doctors score does I/O.
func (s *HospitalMatchingService) breakdown(
	ctx context.Context,
	l *loaders.Loaders,
	candidate *entities.CandidateProvider,
	intent *entities.PatientIntent,
	taxonomy *entities.ConditionTaxonomyEntry,
) (entities.MatchBreakdown, error) {
	doctors := neutralDoctorsScore
	if taxonomy != nil && taxonomy.Specialty != "" {
		staff, err := l.LoadStaff(ctx, candidate.ID)
		if err != nil {
			return entities.MatchBreakdown{}, err
		}
		doctors = ScoreDoctors(staff, taxonomy)
	}

	return entities.MatchBreakdown{
		Condition:  ScoreCondition(candidate, intent, taxonomy),
		Doctors:    doctors,
		Outcomes:   ScoreOutcomes(candidate),
		Price:      ScorePrice(candidate, intent, taxonomy),
		Location:   ScoreLocation(candidate, intent),
		Preference: ScorePreference(candidate, intent),
	}, nil
}
