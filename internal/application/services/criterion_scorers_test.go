package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/carematch/backend/internal/domain/entities"
)

func f64(v float64) *float64 { return &v }

func TestScoreCondition(t *testing.T) {
	orthopedics := &entities.ConditionTaxonomyEntry{Condition: "Knee Replacement", Specialty: "Orthopedics"}

	tests := []struct {
		name      string
		candidate *entities.CandidateProvider
		condition string
		taxonomy  *entities.ConditionTaxonomyEntry
		want      int
	}{
		{
			name: "treatment match with success rate",
			candidate: &entities.CandidateProvider{
				TreatmentsOffered: []string{"Knee Replacement"},
				SuccessRates:      entities.ConditionValues{"Knee Replacement": 92},
			},
			condition: "knee replacement",
			taxonomy:  orthopedics,
			want:      98,
		},
		{
			name:      "treatment match without success rate",
			candidate: &entities.CandidateProvider{TreatmentsOffered: []string{"Knee Replacement"}},
			condition: "knee replacement",
			want:      85,
		},
		{
			name: "success rate capped at 100",
			candidate: &entities.CandidateProvider{
				TreatmentsOffered: []string{"IVF"},
				SuccessRates:      entities.ConditionValues{"ivf": 150},
			},
			condition: "IVF",
			want:      100,
		},
		{
			name: "condition contained in offered treatment",
			candidate: &entities.CandidateProvider{
				TreatmentsOffered: []string{"Cataract", "IVF with ICSI"},
			},
			condition: "ivf",
			want:      85,
		},
		{
			name: "success rate keyed by taxonomy condition",
			candidate: &entities.CandidateProvider{
				TreatmentsOffered: []string{"knee replacement surgery"},
				SuccessRates:      entities.ConditionValues{"Knee Replacement": 80},
			},
			condition: "knee",
			taxonomy:  orthopedics,
			want:      94,
		},
		{
			name:      "specialty aligned with taxonomy",
			candidate: &entities.CandidateProvider{Specialties: []string{"Orthopedics and Trauma"}},
			condition: "knee pain",
			taxonomy:  orthopedics,
			want:      40,
		},
		{
			name:      "specialty mismatch with taxonomy",
			candidate: &entities.CandidateProvider{Specialties: []string{"Cardiology"}},
			condition: "knee pain",
			taxonomy:  orthopedics,
			want:      10,
		},
		{
			name:      "no taxonomy, loose specialty overlap",
			candidate: &entities.CandidateProvider{Specialties: []string{"Cardiology"}},
			condition: "cardiology consult",
			want:      35,
		},
		{
			name:      "no taxonomy, nothing matches",
			candidate: &entities.CandidateProvider{Specialties: []string{"Dermatology"}},
			condition: "cardiology consult",
			want:      5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := &entities.PatientIntent{Condition: tt.condition}
			assert.Equal(t, tt.want, ScoreCondition(tt.candidate, intent, tt.taxonomy))
		})
	}
}

func TestScoreCondition_Idempotent(t *testing.T) {
	candidate := &entities.CandidateProvider{
		TreatmentsOffered: []string{"IVF"},
		SuccessRates:      entities.ConditionValues{"IVF": 61, "ivf": 10},
	}
	intent := &entities.PatientIntent{Condition: "Ivf"}

	first := ScoreCondition(candidate, intent, nil)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, ScoreCondition(candidate, intent, nil))
	}
}

func staffWith(specialties ...[]string) []*entities.StaffMember {
	staff := make([]*entities.StaffMember, len(specialties))
	for i, s := range specialties {
		staff[i] = &entities.StaffMember{ID: fmt.Sprintf("s%d", i), Role: entities.StaffRoleDoctor, Specialties: s}
	}
	return staff
}

func TestScoreDoctors_Breakpoints(t *testing.T) {
	fertility := &entities.ConditionTaxonomyEntry{Condition: "IVF", Specialty: "Fertility"}
	relevant := []string{"Reproductive Medicine", "fertility"}
	other := []string{"Cardiology"}

	tests := []struct {
		name     string
		staff    []*entities.StaffMember
		taxonomy *entities.ConditionTaxonomyEntry
		want     int
	}{
		{name: "no resolved specialty", staff: staffWith(relevant), taxonomy: nil, want: 50},
		{name: "blank specialty", staff: staffWith(relevant), taxonomy: &entities.ConditionTaxonomyEntry{Condition: "x"}, want: 50},
		{name: "no staff", staff: nil, taxonomy: fertility, want: 20},
		{name: "no relevant staff", staff: staffWith(other, other), taxonomy: fertility, want: 25},
		{name: "one relevant", staff: staffWith(relevant, other), taxonomy: fertility, want: 60},
		{name: "two relevant", staff: staffWith(relevant, relevant, other), taxonomy: fertility, want: 80},
		{name: "three relevant", staff: staffWith(relevant, relevant, relevant), taxonomy: fertility, want: 95},
		{name: "many relevant", staff: staffWith(relevant, relevant, relevant, relevant, relevant), taxonomy: fertility, want: 95},
		{
			name: "non clinical roles are ignored",
			staff: []*entities.StaffMember{
				{ID: "n1", Role: entities.StaffRoleNurse, Specialties: relevant},
				{ID: "c1", Role: entities.StaffRoleCoordinator, Specialties: relevant},
			},
			taxonomy: fertility,
			want:     20,
		},
		{
			name: "owners count",
			staff: []*entities.StaffMember{
				{ID: "o1", Role: entities.StaffRoleOwner, Specialties: []string{"FERTILITY SPECIALIST"}},
			},
			taxonomy: fertility,
			want:     60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreDoctors(tt.staff, tt.taxonomy))
		})
	}
}

func TestScoreOutcomes(t *testing.T) {
	assert.Equal(t, 50, ScoreOutcomes(&entities.CandidateProvider{}))
	assert.Equal(t, 90, ScoreOutcomes(&entities.CandidateProvider{PatientSatisfaction: f64(90), RatingAvg: f64(4.5)}))
	assert.Equal(t, 77, ScoreOutcomes(&entities.CandidateProvider{
		PatientSatisfaction: f64(80),
		CompletionRate:      f64(70),
		RatingAvg:           f64(4),
	}))
	assert.Equal(t, 100, ScoreOutcomes(&entities.CandidateProvider{RatingAvg: f64(5)}))
	assert.Equal(t, 0, ScoreOutcomes(&entities.CandidateProvider{CompletionRate: f64(0)}))
}

func TestScorePrice(t *testing.T) {
	tests := []struct {
		name      string
		candidate *entities.CandidateProvider
		min, max  *float64
		want      int
	}{
		{name: "no budget", candidate: &entities.CandidateProvider{AverageCostByTreatment: entities.ConditionValues{"IVF": 1}}, want: 70},
		{name: "no resolvable cost", candidate: &entities.CandidateProvider{}, min: f64(100000), max: f64(200000), want: 50},
		{
			name:      "condition average inside band",
			candidate: &entities.CandidateProvider{AverageCostByTreatment: entities.ConditionValues{"ivf": 150000}},
			min:       f64(100000), max: f64(200000),
			want: 95,
		},
		{
			name:      "range midpoint inside band",
			candidate: &entities.CandidateProvider{PriceRangeMin: f64(120000), PriceRangeMax: f64(180000)},
			min:       f64(100000), max: f64(200000),
			want: 95,
		},
		{
			name:      "single recorded bound",
			candidate: &entities.CandidateProvider{PriceRangeMin: f64(150000)},
			min:       f64(100000), max: f64(200000),
			want: 95,
		},
		{
			name:      "outside band, within one range",
			candidate: &entities.CandidateProvider{PriceRangeMin: f64(240000), PriceRangeMax: f64(240000)},
			min:       f64(100000), max: f64(200000),
			want: 50,
		},
		{
			name:      "far outside band",
			candidate: &entities.CandidateProvider{PriceRangeMin: f64(400000), PriceRangeMax: f64(400000)},
			min:       f64(100000), max: f64(200000),
			want: 20,
		},
		{
			name:      "zero range at or below midpoint",
			candidate: &entities.CandidateProvider{PriceRangeMax: f64(90000)},
			min:       f64(100000), max: f64(100000),
			want: 80,
		},
		{
			name:      "zero range above midpoint",
			candidate: &entities.CandidateProvider{PriceRangeMax: f64(110000)},
			min:       f64(100000), max: f64(100000),
			want: 30,
		},
		{name: "max only, inside", candidate: &entities.CandidateProvider{PriceRangeMax: f64(90000)}, max: f64(100000), want: 95},
		{name: "max only, close", candidate: &entities.CandidateProvider{PriceRangeMax: f64(120000)}, max: f64(100000), want: 70},
		{name: "max only, near", candidate: &entities.CandidateProvider{PriceRangeMax: f64(140000)}, max: f64(100000), want: 50},
		{name: "max only, far", candidate: &entities.CandidateProvider{PriceRangeMax: f64(200000)}, max: f64(100000), want: 20},
		{name: "min only, above", candidate: &entities.CandidateProvider{PriceRangeMax: f64(500000)}, min: f64(100000), want: 95},
		{name: "min only, slightly below", candidate: &entities.CandidateProvider{PriceRangeMax: f64(80000)}, min: f64(100000), want: 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := &entities.PatientIntent{Condition: "IVF", BudgetMin: tt.min, BudgetMax: tt.max}
			assert.Equal(t, tt.want, ScorePrice(tt.candidate, intent, nil))
		})
	}
}

func TestScoreLocation(t *testing.T) {
	chennai := &entities.CandidateProvider{City: "Chennai", Country: "India"}
	withTravel := &entities.CandidateProvider{City: "Chennai", Country: "India",
		InternationalSupport: entities.InternationalSupport{VisaAssistance: true}}

	assert.Equal(t, 60, ScoreLocation(chennai, &entities.PatientIntent{}))
	assert.Equal(t, 100, ScoreLocation(chennai, &entities.PatientIntent{PreferredLocation: "chennai"}))
	assert.Equal(t, 100, ScoreLocation(chennai, &entities.PatientIntent{PreferredLocation: "Chennai, Tamil Nadu"}))
	assert.Equal(t, 65, ScoreLocation(chennai, &entities.PatientIntent{PreferredCountry: "india"}))
	assert.Equal(t, 65, ScoreLocation(chennai, &entities.PatientIntent{PreferredLocation: "India"}))
	assert.Equal(t, 15, ScoreLocation(chennai, &entities.PatientIntent{PreferredCountry: "usa"}))
	assert.Equal(t, 40, ScoreLocation(withTravel, &entities.PatientIntent{PreferredCountry: "usa"}))
	assert.Equal(t, 15, ScoreLocation(&entities.CandidateProvider{}, &entities.PatientIntent{PreferredLocation: "Chennai"}))
}

func TestScorePreference(t *testing.T) {
	allFlags := entities.InternationalSupport{
		TravelAssistance:    true,
		AirportPickup:       true,
		TranslatorAvailable: true,
		VisaAssistance:      true,
		RemoteFollowup:      true,
	}

	tests := []struct {
		name      string
		candidate *entities.CandidateProvider
		intent    *entities.PatientIntent
		want      int
	}{
		{name: "immediate, fast", candidate: &entities.CandidateProvider{ResponseTimeHours: f64(4)}, intent: &entities.PatientIntent{Timeline: entities.TimelineImmediate}, want: 75},
		{name: "immediate, six hours", candidate: &entities.CandidateProvider{ResponseTimeHours: f64(6)}, intent: &entities.PatientIntent{Timeline: entities.TimelineImmediate}, want: 75},
		{name: "immediate, same day", candidate: &entities.CandidateProvider{ResponseTimeHours: f64(24)}, intent: &entities.PatientIntent{Timeline: entities.TimelineImmediate}, want: 65},
		{name: "immediate, slow", candidate: &entities.CandidateProvider{ResponseTimeHours: f64(48)}, intent: &entities.PatientIntent{Timeline: entities.TimelineImmediate}, want: 55},
		{name: "immediate, unknown", candidate: &entities.CandidateProvider{}, intent: &entities.PatientIntent{Timeline: entities.TimelineImmediate}, want: 55},
		{name: "flexible", candidate: &entities.CandidateProvider{}, intent: &entities.PatientIntent{Timeline: entities.TimelineFlexible}, want: 70},
		{name: "one month", candidate: &entities.CandidateProvider{}, intent: &entities.PatientIntent{Timeline: entities.TimelineOneMonth}, want: 60},
		{name: "unset", candidate: &entities.CandidateProvider{}, intent: &entities.PatientIntent{}, want: 60},
		{
			name:      "domestic ignores support flags",
			candidate: &entities.CandidateProvider{InternationalSupport: allFlags},
			intent:    &entities.PatientIntent{TravelType: entities.TravelTypeDomestic},
			want:      60,
		},
		{
			name:      "international with remote followup only",
			candidate: &entities.CandidateProvider{InternationalSupport: entities.InternationalSupport{RemoteFollowup: true}},
			intent:    &entities.PatientIntent{TravelType: entities.TravelTypeInternational},
			want:      67,
		},
		{
			name:      "international with every flag",
			candidate: &entities.CandidateProvider{InternationalSupport: allFlags},
			intent:    &entities.PatientIntent{Timeline: entities.TimelineFlexible, TravelType: entities.TravelTypeInternational},
			want:      97,
		},
		{
			name:      "capped at 100",
			candidate: &entities.CandidateProvider{ResponseTimeHours: f64(1), InternationalSupport: allFlags},
			intent:    &entities.PatientIntent{Timeline: entities.TimelineImmediate, TravelType: entities.TravelTypeInternational},
			want:      100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScorePreference(tt.candidate, tt.intent))
		})
	}
}

func TestMatchScore(t *testing.T) {
	assert.Equal(t, 95, MatchScore(entities.MatchBreakdown{
		Condition: 100, Doctors: 95, Outcomes: 90, Price: 95, Location: 100, Preference: 75,
	}))
	assert.Equal(t, 100, MatchScore(entities.MatchBreakdown{
		Condition: 100, Doctors: 100, Outcomes: 100, Price: 100, Location: 100, Preference: 100,
	}))
	assert.Equal(t, 0, MatchScore(entities.MatchBreakdown{}))
	// 1.5 rounds half up
	assert.Equal(t, 2, MatchScore(entities.MatchBreakdown{Condition: 5}))
	assert.Equal(t, 0, MatchScore(entities.MatchBreakdown{Condition: 1}))
}

func TestScorers_StayInRange(t *testing.T) {
	candidates := []*entities.CandidateProvider{
		{},
		{
			TreatmentsOffered:      []string{"IVF"},
			SuccessRates:           entities.ConditionValues{"IVF": -40},
			AverageCostByTreatment: entities.ConditionValues{"IVF": -1},
			PatientSatisfaction:    f64(250),
			RatingAvg:              f64(9),
			ResponseTimeHours:      f64(-3),
		},
		{
			TreatmentsOffered: []string{"IVF"},
			SuccessRates:      entities.ConditionValues{"IVF": 1e9},
			PriceRangeMin:     f64(1e12),
			CompletionRate:    f64(-50),
		},
	}
	intents := []*entities.PatientIntent{
		{Condition: "IVF"},
		{Condition: "IVF", BudgetMin: f64(0), BudgetMax: f64(0), Timeline: entities.TimelineImmediate},
		{Condition: "IVF", BudgetMax: f64(1), PreferredCountry: "x", TravelType: entities.TravelTypeInternational},
	}
	taxonomy := &entities.ConditionTaxonomyEntry{Condition: "IVF", Specialty: "Fertility"}

	for _, c := range candidates {
		for _, in := range intents {
			for _, score := range []int{
				ScoreCondition(c, in, taxonomy),
				ScoreCondition(c, in, nil),
				ScoreDoctors(nil, taxonomy),
				ScoreOutcomes(c),
				ScorePrice(c, in, taxonomy),
				ScoreLocation(c, in),
				ScorePreference(c, in),
			} {
				assert.GreaterOrEqual(t, score, 0)
				assert.LessOrEqual(t, score, 100)
			}
		}
	}
}
