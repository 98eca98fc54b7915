package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"labelscan/pkg/models"
)

func TestAggregateCountsExactLabels(t *testing.T) {
	matches := []models.MatchResult{
		{RiskLevel: models.RiskHigh},
		{RiskLevel: models.RiskHigh},
		{RiskLevel: models.RiskModerate},
		{RiskLevel: models.RiskLow},
		{RiskLevel: "Moderate–High"},
		{RiskLevel: "HIGH"},
	}

	report := Aggregate(matches, 9, time.Unix(1700000000, 0))
	assert.Equal(t, models.Summary{TotalIngredients: 9, HighRisk: 2, ModerateRisk: 1}, report.Summary)
	assert.Len(t, report.Matches, 6)
}

func TestAggregateEmpty(t *testing.T) {
	report := Aggregate(nil, 3, time.Now())
	assert.NotNil(t, report.Matches)
	assert.Equal(t, 3, report.Summary.TotalIngredients)
	assert.Zero(t, report.Summary.HighRisk)
}

func TestAggregateReportIDsAreUnique(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := Aggregate(nil, 0, now).ID
		assert.False(t, seen[id])
		seen[id] = true
	}
}
