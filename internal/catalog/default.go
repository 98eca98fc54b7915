package catalog

import "labelscan/pkg/models"

var defaultEntries = []models.CatalogEntry{
	{Name: "Cocos nucifera (Coconut) Oil", RiskLevel: models.RiskLow, Notes: "Moisturizing but may clog pores", Alternative: "Jojoba oil"},
	{Name: "Sodium Hydroxide", RiskLevel: models.RiskModerate, Notes: "Skin irritant in high concentrations", Alternative: "Baking soda"},
	{Name: "Fragrance", RiskLevel: models.RiskHigh, Notes: "Potential allergen", Alternative: "Essential oil blends"},
	{Name: "Kojic Acid", RiskLevel: models.RiskModerate, Notes: "May irritate sensitive skin", Alternative: "Licorice root extract"},
	{Name: "Phenoxyethanol", RiskLevel: models.RiskModerate, Notes: "Preservative concerns", Alternative: "Radish root ferment"},
	{Name: "Mineral Oil", RiskLevel: models.RiskModerate, Notes: "Petroleum-derived", Alternative: "Plant-based oils"},
	{Name: "Talc", RiskLevel: models.RiskHigh, Notes: "Asbestos contamination risk", Alternative: "Arrowroot powder"},
	{Name: "PEG-8", RiskLevel: models.RiskModerate, Notes: "Ethoxylated compound", Alternative: "Vegetable glycerin"},
	{Name: "BHT", RiskLevel: models.RiskHigh, Notes: "Preservative with health concerns", Alternative: "Rosemary extract"},
	{Name: "Parabens", RiskLevel: models.RiskHigh, Notes: "Endocrine disruptors", Alternative: "Leuconostoc ferment"},
	{Name: "SLS/SLES", RiskLevel: models.RiskModerate, Notes: "Harsh detergent", Alternative: "Coco glucoside"},
}

// Default returns the built-in reference catalog
func Default() *Catalog {
	c, err := New(defaultEntries)
	if err != nil {
		panic(err)
	}
	return c
}
