package storage

import (
	"context"
	"fmt"
	"math"

	qdrant "github.com/qdrant/go-client/qdrant"

	"labelscan/internal/matcher"
)

// searchLimit is how many neighbours are fetched to resolve score ties
const searchLimit = 8

// Index answers nearest-entry queries from the Qdrant collection instead of
// scanning catalog vectors in memory.
type Index struct {
	svc *Service
	dim int
}

// NewIndex creates a matcher.Index backed by svc. dim is the size of the
// stored catalog vectors.
func NewIndex(svc *Service, dim int) *Index {
	return &Index{svc: svc, dim: dim}
}

var (
	_ matcher.Index       = (*Index)(nil)
	_ matcher.Dimensioned = (*Index)(nil)
)

func (i *Index) Dim() int {
	return i.dim
}

func (i *Index) Best(ctx context.Context, vec []float32) (matcher.Hit, error) {
	resp, err := i.svc.pointsClient.Search(ctx, &qdrant.SearchPoints{
		CollectionName: i.svc.collection,
		Vector:         vec,
		Limit:          searchLimit,
	})
	if err != nil {
		return matcher.Hit{}, fmt.Errorf("failed to search points: %w", err)
	}
	if len(resp.Result) == 0 {
		return matcher.Hit{}, matcher.ErrEmptyIndex
	}

	best := matcher.Hit{Entry: entryIndex(resp.Result[0].Id), Score: math.NaN()}
	for _, p := range resp.Result {
		score := float64(p.Score)
		if math.IsNaN(score) {
			continue
		}
		entry := entryIndex(p.Id)
		if math.IsNaN(best.Score) || score > best.Score || (score == best.Score && entry < best.Entry) {
			best = matcher.Hit{Entry: entry, Score: score}
		}
	}
	return best, nil
}
