package entities

// SuggestionType is the category a typeahead suggestion belongs to
type SuggestionType string

const (
	SuggestionTypeCondition SuggestionType = "condition"
	SuggestionTypeHospital  SuggestionType = "hospital"
	SuggestionTypeCity      SuggestionType = "city"
)

// Suggestion is one typeahead entry
type Suggestion struct {
	Type  SuggestionType `json:"type"`
	Text  string         `json:"text"`
	ID    string         `json:"id,omitempty"`
	Count *int           `json:"count,omitempty"`
}

// CityCount is the number of public providers in a city
type CityCount struct {
	City  string `json:"city" db:"city"`
	Count int    `json:"count" db:"count"`
}

// ProviderName is the minimal provider projection used by suggestions
type ProviderName struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
