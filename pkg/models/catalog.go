package models

// RiskLevel is the risk label attached to a catalog entry. Catalog data may
// carry composite labels such as "Moderate–High", which are kept verbatim.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
)

// CatalogEntry is a known substance in the reference catalog
type CatalogEntry struct {
	Name        string    `json:"name" yaml:"name"`
	RiskLevel   RiskLevel `json:"risk_level" yaml:"risk_level"`
	Notes       string    `json:"notes" yaml:"notes"`
	Alternative string    `json:"alternative" yaml:"alternative"`
}

// ExtractedIngredient is one segment of an ingredient list, in source order
type ExtractedIngredient struct {
	RawText  string `json:"raw_text"`
	Position int    `json:"position"`
}
