package seed

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zatekoja/carematch/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

// idNamespace derives stable IDs so that re-running a fixture updates rows in place
var idNamespace = uuid.MustParse("6f1c2a8e-3b7d-4e0a-9c55-0d2b8f4e7a61")

// Fixture is a YAML document describing reference data to load
type Fixture struct {
	Conditions []ConditionFixture `yaml:"conditions"`
	Providers  []ProviderFixture  `yaml:"providers"`
	Staff      []StaffFixture     `yaml:"staff"`
}

// ConditionFixture is one taxonomy row
type ConditionFixture struct {
	ID        string   `yaml:"id"`
	Condition string   `yaml:"condition"`
	Specialty string   `yaml:"specialty"`
	Keywords  []string `yaml:"keywords"`
}

// ProviderFixture is one provider row
type ProviderFixture struct {
	ID                     string             `yaml:"id"`
	Name                   string             `yaml:"name"`
	TreatmentsOffered      []string           `yaml:"treatments_offered"`
	Specialties            []string           `yaml:"specialties"`
	SuccessRates           map[string]float64 `yaml:"success_rates"`
	PriceRangeMin          *float64           `yaml:"price_range_min"`
	PriceRangeMax          *float64           `yaml:"price_range_max"`
	AverageCostByTreatment map[string]float64 `yaml:"average_cost_by_treatment"`
	City                   string             `yaml:"city"`
	Country                string             `yaml:"country"`
	PatientSatisfaction    *float64           `yaml:"patient_satisfaction"`
	CompletionRate         *float64           `yaml:"completion_rate"`
	RatingAvg              *float64           `yaml:"rating_avg"`
	ResponseTimeHours      *float64           `yaml:"response_time_hours"`
	InternationalSupport   struct {
		TravelAssistance    bool `yaml:"travel_assistance"`
		AirportPickup       bool `yaml:"airport_pickup"`
		TranslatorAvailable bool `yaml:"translator_available"`
		VisaAssistance      bool `yaml:"visa_assistance"`
		RemoteFollowup      bool `yaml:"remote_followup"`
	} `yaml:"international_support"`
	IsPublic *bool `yaml:"is_public"`
}

// StaffFixture is one staff membership with its specialty profile
type StaffFixture struct {
	ID          string   `yaml:"id"`
	ProviderID  string   `yaml:"provider_id"`
	UserID      string   `yaml:"user_id"`
	Role        string   `yaml:"role"`
	Specialties []string `yaml:"specialties"`
}

// ParseFixture decodes and validates a fixture. Unknown keys are rejected.
func ParseFixture(r io.Reader) (*Fixture, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var f Fixture
	if err := decoder.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid fixture: %v", err))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks identifiers and references between sections
func (f *Fixture) Validate() error {
	conditions := make(map[string]bool, len(f.Conditions))
	for i, c := range f.Conditions {
		name := strings.ToLower(strings.TrimSpace(c.Condition))
		if name == "" {
			return apperrors.NewValidationError(fmt.Sprintf("conditions[%d]: condition is required", i))
		}
		if strings.TrimSpace(c.Specialty) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("conditions[%d]: specialty is required", i))
		}
		if conditions[name] {
			return apperrors.NewValidationError(fmt.Sprintf("conditions[%d]: duplicate condition %q", i, c.Condition))
		}
		conditions[name] = true
	}

	providers := make(map[string]bool, len(f.Providers))
	for i, p := range f.Providers {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("providers[%d]: id and name are required", i))
		}
		if providers[p.ID] {
			return apperrors.NewValidationError(fmt.Sprintf("providers[%d]: duplicate id %q", i, p.ID))
		}
		if p.PriceRangeMin != nil && p.PriceRangeMax != nil && *p.PriceRangeMin > *p.PriceRangeMax {
			return apperrors.NewValidationError(fmt.Sprintf("providers[%d]: price_range_min exceeds price_range_max", i))
		}
		providers[p.ID] = true
	}

	for i, s := range f.Staff {
		if !providers[s.ProviderID] {
			return apperrors.NewValidationError(fmt.Sprintf("staff[%d]: unknown provider %q", i, s.ProviderID))
		}
		if strings.TrimSpace(s.UserID) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("staff[%d]: user_id is required", i))
		}
		switch entities.StaffRole(s.Role) {
		case entities.StaffRoleOwner, entities.StaffRoleDoctor, entities.StaffRoleCoordinator, entities.StaffRoleNurse:
		default:
			return apperrors.NewValidationError(fmt.Sprintf("staff[%d]: unknown role %q", i, s.Role))
		}
	}
	return nil
}

func stableID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.ToLower(strings.Join(parts, "\x00")))).String()
}

// Entry converts the fixture into a taxonomy entry, deriving the ID from the condition when absent
func (c ConditionFixture) Entry() *entities.ConditionTaxonomyEntry {
	id := c.ID
	if id == "" {
		id = stableID("condition", strings.TrimSpace(c.Condition))
	}
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &entities.ConditionTaxonomyEntry{
		ID:        id,
		Condition: strings.TrimSpace(c.Condition),
		Specialty: strings.TrimSpace(c.Specialty),
		Keywords:  keywords,
	}
}

// Candidate converts the fixture into a provider record. Providers are public unless stated otherwise.
func (p ProviderFixture) Candidate() *entities.CandidateProvider {
	isPublic := true
	if p.IsPublic != nil {
		isPublic = *p.IsPublic
	}
	return &entities.CandidateProvider{
		ID:                     p.ID,
		Name:                   strings.TrimSpace(p.Name),
		TreatmentsOffered:      p.TreatmentsOffered,
		Specialties:            p.Specialties,
		SuccessRates:           entities.ConditionValues(p.SuccessRates),
		PriceRangeMin:          p.PriceRangeMin,
		PriceRangeMax:          p.PriceRangeMax,
		AverageCostByTreatment: entities.ConditionValues(p.AverageCostByTreatment),
		City:                   strings.TrimSpace(p.City),
		Country:                strings.TrimSpace(p.Country),
		PatientSatisfaction:    p.PatientSatisfaction,
		CompletionRate:         p.CompletionRate,
		RatingAvg:              p.RatingAvg,
		ResponseTimeHours:      p.ResponseTimeHours,
		InternationalSupport: entities.InternationalSupport{
			TravelAssistance:    p.InternationalSupport.TravelAssistance,
			AirportPickup:       p.InternationalSupport.AirportPickup,
			TranslatorAvailable: p.InternationalSupport.TranslatorAvailable,
			VisaAssistance:      p.InternationalSupport.VisaAssistance,
			RemoteFollowup:      p.InternationalSupport.RemoteFollowup,
		},
		IsPublic: isPublic,
	}
}

// Member converts the fixture into a staff member, deriving the ID from provider and user when absent
func (s StaffFixture) Member() *entities.StaffMember {
	id := s.ID
	if id == "" {
		id = stableID("staff", s.ProviderID, s.UserID)
	}
	return &entities.StaffMember{
		ID:          id,
		ProviderID:  s.ProviderID,
		UserID:      s.UserID,
		Role:        entities.StaffRole(s.Role),
		Specialties: s.Specialties,
	}
}
