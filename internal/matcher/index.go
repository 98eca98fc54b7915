package matcher

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyIndex is returned by an index that holds no vectors
var ErrEmptyIndex = errors.New("empty vector index")

// Hit is the best catalog entry for one query vector
type Hit struct {
	Entry int
	Score float64
}

// Index finds the catalog entry most similar to a query vector. On equal
// scores the entry with the lowest index wins.
type Index interface {
	Best(ctx context.Context, vec []float32) (Hit, error)
}

// Dimensioned is implemented by indexes that know the size of their vectors
type Dimensioned interface {
	Dim() int
}

// LinearIndex scans every catalog vector. It is read-only after
// construction and safe for concurrent use.
type LinearIndex struct {
	vectors [][]float32
}

// NewLinearIndex builds an index over vectors, one per catalog entry in
// catalog order.
func NewLinearIndex(vectors [][]float32) *LinearIndex {
	own := make([][]float32, len(vectors))
	copy(own, vectors)
	return &LinearIndex{vectors: own}
}

// Len returns the number of indexed vectors
func (l *LinearIndex) Len() int {
	return len(l.vectors)
}

// Dim returns the size of the indexed vectors, 0 for an empty index
func (l *LinearIndex) Dim() int {
	if len(l.vectors) == 0 {
		return 0
	}
	return len(l.vectors[0])
}

// Vectors returns the indexed vectors in catalog order
func (l *LinearIndex) Vectors() [][]float32 {
	return l.vectors
}

func (l *LinearIndex) checkDims() error {
	dim := l.Dim()
	for i, v := range l.vectors {
		if len(v) != dim {
			return fmt.Errorf("catalog vector %d has %d dimensions, want %d", i, len(v), dim)
		}
	}
	return nil
}

func (l *LinearIndex) Best(_ context.Context, vec []float32) (Hit, error) {
	if len(l.vectors) == 0 {
		return Hit{}, ErrEmptyIndex
	}

	best := Hit{Entry: 0, Score: Cosine(vec, l.vectors[0])}
	for j := 1; j < len(l.vectors); j++ {
		// strict comparison keeps the first of equal scores
		if s := Cosine(vec, l.vectors[j]); s > best.Score {
			best = Hit{Entry: j, Score: s}
		}
	}
	return best, nil
}
