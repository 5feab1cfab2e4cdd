package entities

import (
	"sort"
	"strings"
	"time"
)

// InternationalSupport lists the services a provider offers to travelling patients
type InternationalSupport struct {
	TravelAssistance    bool `json:"travel_assistance"`
	AirportPickup       bool `json:"airport_pickup"`
	TranslatorAvailable bool `json:"translator_available"`
	VisaAssistance      bool `json:"visa_assistance"`
	RemoteFollowup      bool `json:"remote_followup"`
}

// ConditionValues maps a condition name to a number (success rate, average cost)
type ConditionValues map[string]float64

// Lookup returns the value for the first key that matches case-insensitively
func (v ConditionValues) Lookup(keys ...string) (float64, bool) {
	if len(v) == 0 {
		return 0, false
	}

	// sorted so that keys differing only in case resolve the same way every time
	stored := make([]string, 0, len(v))
	for k := range v {
		stored = append(stored, k)
	}
	sort.Strings(stored)

	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if value, ok := v[key]; ok {
			return value, true
		}
		for _, k := range stored {
			if strings.EqualFold(strings.TrimSpace(k), key) {
				return v[k], true
			}
		}
	}
	return 0, false
}

// CandidateProvider is a snapshot of one provider record eligible for ranking
type CandidateProvider struct {
	ID                     string               `json:"id" db:"id"`
	Name                   string               `json:"name" db:"name"`
	TreatmentsOffered      []string             `json:"treatments_offered" db:"treatments_offered"`
	Specialties            []string             `json:"specialties" db:"specialties"`
	SuccessRates           ConditionValues      `json:"success_rates,omitempty" db:"success_rates"`
	PriceRangeMin          *float64             `json:"price_range_min,omitempty" db:"price_range_min"`
	PriceRangeMax          *float64             `json:"price_range_max,omitempty" db:"price_range_max"`
	AverageCostByTreatment ConditionValues      `json:"average_cost_by_treatment,omitempty" db:"average_cost_by_treatment"`
	City                   string               `json:"city" db:"city"`
	Country                string               `json:"country" db:"country"`
	PatientSatisfaction    *float64             `json:"patient_satisfaction,omitempty" db:"patient_satisfaction"`
	CompletionRate         *float64             `json:"completion_rate,omitempty" db:"completion_rate"`
	RatingAvg              *float64             `json:"rating_avg,omitempty" db:"rating_avg"`
	ResponseTimeHours      *float64             `json:"response_time_hours,omitempty" db:"response_time_hours"`
	InternationalSupport   InternationalSupport `json:"international_support" db:"international_support"`
	IsPublic               bool                 `json:"is_public" db:"is_public"`
	CreatedAt              time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time            `json:"updated_at" db:"updated_at"`
}
