package matcher

import "math"

// Cosine returns the cosine similarity of a and b. It is 0 when either vector
// has zero magnitude, the dimensions disagree or a component is not finite.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		fa := float64(a[i])
		fb := float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// SimilarityMatrix computes Cosine for every (row, column) pair
func SimilarityMatrix(rows, cols [][]float32) [][]float64 {
	m := make([][]float64, len(rows))
	for i, r := range rows {
		m[i] = make([]float64, len(cols))
		for j, c := range cols {
			m[i][j] = Cosine(r, c)
		}
	}
	return m
}
