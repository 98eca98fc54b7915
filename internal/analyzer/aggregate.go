package analyzer

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"labelscan/pkg/models"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newReportID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// Aggregate assembles a report from the matches of one analysis. total is
// the number of extracted ingredients, matched or not. Only the exact labels
// "High" and "Moderate" are counted; composite labels land in neither bucket.
func Aggregate(matches []models.MatchResult, total int, now time.Time) *models.AnalysisReport {
	if matches == nil {
		matches = []models.MatchResult{}
	}

	summary := models.Summary{TotalIngredients: total}
	for _, m := range matches {
		switch m.RiskLevel {
		case models.RiskHigh:
			summary.HighRisk++
		case models.RiskModerate:
			summary.ModerateRisk++
		}
	}

	return &models.AnalysisReport{
		ID:        newReportID(now),
		Matches:   matches,
		Summary:   summary,
		Timestamp: now,
	}
}
