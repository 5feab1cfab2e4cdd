package entities

// ConditionTaxonomyEntry maps a canonical condition to its specialty
type ConditionTaxonomyEntry struct {
	ID        string   `json:"id" db:"id" yaml:"id"`
	Condition string   `json:"condition" db:"condition" yaml:"condition"`
	Specialty string   `json:"specialty" db:"specialty" yaml:"specialty"`
	Keywords  []string `json:"keywords" db:"keywords" yaml:"keywords"`
}
