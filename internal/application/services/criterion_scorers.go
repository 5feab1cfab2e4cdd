package services

import (
	"math"
	"strings"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
)

// Criterion weights in percent. They sum to 100 so the aggregate can be computed
// in integers.
const (
	weightCondition  = 30
	weightDoctors    = 15
	weightOutcomes   = 15
	weightPrice      = 15
	weightLocation   = 15
	weightPreference = 10
)

// Neutral scores used when the intent or the candidate lacks the data a criterion needs
const (
	neutralDoctorsScore  = 50
	neutralOutcomesScore = 50
	neutralPriceScore    = 70
	unknownCostScore     = 50
	neutralLocationScore = 60
	basePreferenceScore  = 50
)

// roundScore rounds half up and clamps into [0,100]
func roundScore(x float64) int {
	return clampScore(int(math.Floor(x + 0.5)))
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// overlaps reports case-insensitive containment in either direction. Blank values never overlap.
func overlaps(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func anyOverlaps(values []string, target string) bool {
	for _, v := range values {
		if overlaps(v, target) {
			return true
		}
	}
	return false
}

// matchedTreatment returns the first offered treatment overlapping the intent condition
func matchedTreatment(candidate *entities.CandidateProvider, condition string) (string, bool) {
	for _, treatment := range candidate.TreatmentsOffered {
		if overlaps(treatment, condition) {
			return treatment, true
		}
	}
	return "", false
}

// conditionKeys lists the keys tried, in order, against per-condition maps
func conditionKeys(intent *entities.PatientIntent, treatment string, taxonomy *entities.ConditionTaxonomyEntry) []string {
	keys := []string{intent.Condition}
	if treatment != "" {
		keys = append(keys, treatment)
	}
	if taxonomy != nil {
		keys = append(keys, taxonomy.Condition)
	}
	return keys
}

// ScoreCondition rates how directly the candidate treats the patient's condition
func ScoreCondition(candidate *entities.CandidateProvider, intent *entities.PatientIntent, taxonomy *entities.ConditionTaxonomyEntry) int {
	if treatment, ok := matchedTreatment(candidate, intent.Condition); ok {
		if rate, ok := candidate.SuccessRates.Lookup(conditionKeys(intent, treatment, taxonomy)...); ok {
			return roundScore(math.Min(100, 70+rate*0.30))
		}
		return 85
	}

	if taxonomy != nil {
		if anyOverlaps(candidate.Specialties, taxonomy.Specialty) {
			return 40
		}
		return 10
	}

	if anyOverlaps(candidate.Specialties, intent.Condition) {
		return 35
	}
	return 5
}

func isClinicalRole(role entities.StaffRole) bool {
	for _, r := range entities.ClinicalRoles {
		if strings.EqualFold(string(role), string(r)) {
			return true
		}
	}
	return false
}

// ScoreDoctors maps the number of clinical staff specialised in the resolved specialty
// onto a fixed step function
func ScoreDoctors(staff []*entities.StaffMember, taxonomy *entities.ConditionTaxonomyEntry) int {
	if taxonomy == nil || strings.TrimSpace(taxonomy.Specialty) == "" {
		return neutralDoctorsScore
	}

	clinical, relevant := 0, 0
	for _, member := range staff {
		if member == nil || !isClinicalRole(member.Role) {
			continue
		}
		clinical++
		if anyOverlaps(member.Specialties, taxonomy.Specialty) {
			relevant++
		}
	}

	switch {
	case clinical == 0:
		return 20
	case relevant == 0:
		return 25
	case relevant == 1:
		return 60
	case relevant == 2:
		return 80
	default:
		return 95
	}
}

// ScoreOutcomes averages whichever outcome indicators the candidate reports
func ScoreOutcomes(candidate *entities.CandidateProvider) int {
	var sum float64
	var n int
	if candidate.PatientSatisfaction != nil {
		sum += *candidate.PatientSatisfaction
		n++
	}
	if candidate.CompletionRate != nil {
		sum += *candidate.CompletionRate
		n++
	}
	if candidate.RatingAvg != nil {
		sum += *candidate.RatingAvg * 20
		n++
	}
	if n == 0 {
		return neutralOutcomesScore
	}
	return roundScore(sum / float64(n))
}

// representativeCost picks the condition-specific average cost, else the price range
// midpoint, else whichever single bound is recorded
func representativeCost(candidate *entities.CandidateProvider, keys []string) (float64, bool) {
	if cost, ok := candidate.AverageCostByTreatment.Lookup(keys...); ok {
		return cost, true
	}
	switch {
	case candidate.PriceRangeMin != nil && candidate.PriceRangeMax != nil:
		return (*candidate.PriceRangeMin + *candidate.PriceRangeMax) / 2, true
	case candidate.PriceRangeMin != nil:
		return *candidate.PriceRangeMin, true
	case candidate.PriceRangeMax != nil:
		return *candidate.PriceRangeMax, true
	}
	return 0, false
}

// budgetTarget returns the budget midpoint and tolerance. A single bound is its own
// midpoint with half of it as tolerance.
func budgetTarget(intent *entities.PatientIntent) (midpoint, tolerance float64) {
	switch {
	case intent.BudgetMin != nil && intent.BudgetMax != nil:
		return (*intent.BudgetMin + *intent.BudgetMax) / 2, *intent.BudgetMax - *intent.BudgetMin
	case intent.BudgetMin != nil:
		return *intent.BudgetMin, *intent.BudgetMin / 2
	case intent.BudgetMax != nil:
		return *intent.BudgetMax, *intent.BudgetMax / 2
	}
	return 0, 0
}

// ScorePrice rates how well the candidate's cost fits the patient's budget
func ScorePrice(candidate *entities.CandidateProvider, intent *entities.PatientIntent, taxonomy *entities.ConditionTaxonomyEntry) int {
	if !intent.HasBudget() {
		return neutralPriceScore
	}

	treatment, _ := matchedTreatment(candidate, intent.Condition)
	cost, ok := representativeCost(candidate, conditionKeys(intent, treatment, taxonomy))
	if !ok {
		return unknownCostScore
	}

	midpoint, tolerance := budgetTarget(intent)
	if tolerance == 0 {
		if cost <= midpoint {
			return 80
		}
		return 30
	}

	low, high := 0.0, math.Inf(1)
	if intent.BudgetMin != nil {
		low = *intent.BudgetMin
	}
	if intent.BudgetMax != nil {
		high = *intent.BudgetMax
	}
	if cost >= low && cost <= high {
		return 95
	}

	ratio := math.Abs(cost-midpoint) / tolerance
	switch {
	case ratio < 0.5:
		return 70
	case ratio < 1:
		return 50
	default:
		return 20
	}
}

// ScoreLocation rates the candidate's location against the patient's preference
func ScoreLocation(candidate *entities.CandidateProvider, intent *entities.PatientIntent) int {
	location := strings.TrimSpace(intent.PreferredLocation)
	country := strings.TrimSpace(intent.PreferredCountry)
	if location == "" && country == "" {
		return neutralLocationScore
	}

	if overlaps(candidate.City, location) {
		return 100
	}
	// a preferred location may name a country rather than a city
	if overlaps(candidate.Country, country) || overlaps(candidate.Country, location) {
		return 65
	}
	if candidate.InternationalSupport.TravelAssistance || candidate.InternationalSupport.VisaAssistance {
		return 40
	}
	return 15
}

// ScorePreference rates responsiveness for the patient's timeline and support for
// international travel
func ScorePreference(candidate *entities.CandidateProvider, intent *entities.PatientIntent) int {
	score := basePreferenceScore

	switch intent.Timeline {
	case entities.TimelineImmediate:
		switch rt := candidate.ResponseTimeHours; {
		case rt != nil && *rt <= 6:
			score += 25
		case rt != nil && *rt <= 24:
			score += 15
		default:
			score += 5
		}
	case entities.TimelineFlexible:
		score += 20
	default:
		score += 10
	}

	if intent.TravelType == entities.TravelTypeInternational {
		support := candidate.InternationalSupport
		if support.TravelAssistance {
			score += 5
		}
		if support.AirportPickup {
			score += 5
		}
		if support.TranslatorAvailable {
			score += 5
		}
		if support.VisaAssistance {
			score += 5
		}
		if support.RemoteFollowup {
			score += 7
		}
	}

	return clampScore(score)
}

// MatchScore combines a breakdown with the fixed weights, rounding half up
func MatchScore(b entities.MatchBreakdown) int {
	weighted := b.Condition*weightCondition +
		b.Doctors*weightDoctors +
		b.Outcomes*weightOutcomes +
		b.Price*weightPrice +
		b.Location*weightLocation +
		b.Preference*weightPreference
	return (weighted + 50) / 100
}
