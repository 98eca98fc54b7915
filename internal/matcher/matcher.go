package matcher

import (
	"context"
	"errors"
	"fmt"

	"labelscan/internal/catalog"
	"labelscan/pkg/models"
)

// DefaultThreshold is the minimum similarity for a reported match
const DefaultThreshold = 0.75

// ErrDimensionMismatch is returned when a query vector does not have the
// size of the catalog vectors, usually after an embedding model change.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ErrNoMatrix is returned by Matrix when the index keeps its vectors remotely
var ErrNoMatrix = errors.New("index does not expose its vectors")

// Matcher pairs extracted ingredients with their closest catalog entry
type Matcher struct {
	catalog   *catalog.Catalog
	index     Index
	threshold float64
	dim       int
}

// New creates a matcher over cat using index. A threshold of 0 selects
// DefaultThreshold.
func New(cat *catalog.Catalog, index Index, threshold float64) (*Matcher, error) {
	if cat == nil || index == nil {
		return nil, fmt.Errorf("matcher needs a catalog and an index")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside [0,1]", threshold)
	}
	if l, ok := index.(*LinearIndex); ok {
		if l.Len() != cat.Len() {
			return nil, fmt.Errorf("index holds %d vectors for %d catalog entries", l.Len(), cat.Len())
		}
		if err := l.checkDims(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
	}

	m := &Matcher{catalog: cat, index: index, threshold: threshold}
	if d, ok := index.(Dimensioned); ok {
		m.dim = d.Dim()
	}
	return m, nil
}

// Threshold returns the inclusive minimum similarity
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Dim returns the catalog vector size, 0 when the index does not report it
func (m *Matcher) Dim() int {
	return m.dim
}

// Matrix returns the similarity of every ingredient vector (rows) against
// every catalog vector (columns). Only in-memory indexes support it.
func (m *Matcher) Matrix(vectors [][]float32) ([][]float64, error) {
	l, ok := m.index.(*LinearIndex)
	if !ok {
		return nil, ErrNoMatrix
	}
	return SimilarityMatrix(vectors, l.Vectors()), nil
}

// Match returns one result per ingredient whose best similarity reaches the
// threshold, in input order. Ingredients below the threshold are skipped.
func (m *Matcher) Match(ctx context.Context, ingredients []string, vectors [][]float32) ([]models.MatchResult, error) {
	if len(ingredients) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d ingredients", len(vectors), len(ingredients))
	}

	results := []models.MatchResult{}
	for i, vec := range vectors {
		if m.dim > 0 && len(vec) != m.dim {
			return nil, fmt.Errorf("%w: ingredient %d has %d dimensions, catalog has %d",
				ErrDimensionMismatch, i, len(vec), m.dim)
		}
		hit, err := m.index.Best(ctx, vec)
		if err != nil {
			return nil, fmt.Errorf("search ingredient %d: %w", i, err)
		}
		// also drops NaN scores
		if !(hit.Score >= m.threshold) {
			continue
		}
		if hit.Entry < 0 || hit.Entry >= m.catalog.Len() {
			return nil, fmt.Errorf("index returned unknown catalog entry %d", hit.Entry)
		}

		entry := m.catalog.Entry(hit.Entry)
		results = append(results, models.MatchResult{
			InputIngredient:   ingredients[i],
			MatchedIngredient: entry.Name,
			Entry:             hit.Entry,
			RiskLevel:         entry.RiskLevel,
			Confidence:        min(hit.Score, 1),
			Notes:             entry.Notes,
			Recommendation:    entry.Alternative,
		})
	}
	return results, nil
}
