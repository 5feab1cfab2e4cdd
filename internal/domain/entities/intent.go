package entities

import (
	"strings"

	apperrors "github.com/zatekoja/carematch/backend/pkg/errors"
)

// Timeline is how soon the patient wants to start treatment
type Timeline string

const (
	TimelineImmediate   Timeline = "immediate"
	TimelineOneMonth    Timeline = "1_month"
	TimelineThreeMonths Timeline = "3_months"
	TimelineFlexible    Timeline = "flexible"
)

// TravelType is whether the patient travels within their country or abroad
type TravelType string

const (
	TravelTypeDomestic      TravelType = "domestic"
	TravelTypeInternational TravelType = "international"
)

// PatientIntent carries one request's worth of patient-stated preferences
type PatientIntent struct {
	Condition         string     `json:"condition"`
	BudgetMin         *float64   `json:"budget_min,omitempty"`
	BudgetMax         *float64   `json:"budget_max,omitempty"`
	PreferredLocation string     `json:"preferred_location,omitempty"`
	PreferredCountry  string     `json:"preferred_country,omitempty"`
	Timeline          Timeline   `json:"timeline,omitempty"`
	TravelType        TravelType `json:"travel_type,omitempty"`
}

// HasBudget reports whether either budget bound was given
func (i *PatientIntent) HasBudget() bool {
	return i.BudgetMin != nil || i.BudgetMax != nil
}

// Validate checks the intent before it reaches the ranking pipeline
func (i *PatientIntent) Validate() error {
	if strings.TrimSpace(i.Condition) == "" {
		return apperrors.NewValidationError("condition is required")
	}
	if i.BudgetMin != nil && *i.BudgetMin < 0 {
		return apperrors.NewValidationError("budget_min must not be negative")
	}
	if i.BudgetMax != nil && *i.BudgetMax < 0 {
		return apperrors.NewValidationError("budget_max must not be negative")
	}
	if i.BudgetMin != nil && i.BudgetMax != nil && *i.BudgetMin > *i.BudgetMax {
		return apperrors.NewValidationError("budget_min must not exceed budget_max")
	}

	switch i.Timeline {
	case "", TimelineImmediate, TimelineOneMonth, TimelineThreeMonths, TimelineFlexible:
	default:
		return apperrors.NewValidationError("timeline must be one of immediate, 1_month, 3_months, flexible")
	}

	switch i.TravelType {
	case "", TravelTypeDomestic, TravelTypeInternational:
	default:
		return apperrors.NewValidationError("travel_type must be domestic or international")
	}

	return nil
}
