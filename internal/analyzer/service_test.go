package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelscan/internal/catalog"
	"labelscan/internal/embeddings"
	"labelscan/internal/matcher"
	"labelscan/pkg/models"
)

// stubEmbedder returns a one-hot vector per known text and a vector
// orthogonal to every catalog entry otherwise.
type stubEmbedder struct {
	axes  map[string]int
	dim   int
	err   error
	short bool
	calls int
}

func newStubEmbedder(names ...string) *stubEmbedder {
	axes := make(map[string]int, len(names))
	for i, n := range names {
		axes[strings.ToLower(n)] = i
	}
	return &stubEmbedder{axes: axes, dim: len(names) + 1}
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, s.dim)
		if axis, ok := s.axes[strings.ToLower(t)]; ok {
			v[axis] = 1
		} else {
			v[s.dim-1] = 1
		}
		out[i] = v
	}
	if s.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func newTestService(t *testing.T, entries []models.CatalogEntry) (*Service, *stubEmbedder) {
	t.Helper()
	cat, err := catalog.New(entries)
	require.NoError(t, err)

	emb := newStubEmbedder(cat.Names()...)
	vectors, err := emb.Embed(context.Background(), cat.Names())
	require.NoError(t, err)
	emb.calls = 0

	m, err := matcher.New(cat, matcher.NewLinearIndex(vectors), matcher.DefaultThreshold)
	require.NoError(t, err)

	svc := NewService(emb, m, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc, emb
}

func TestAnalyzeEndToEnd(t *testing.T) {
	svc, emb := newTestService(t, catalog.Default().Entries())

	report, err := svc.Analyze(context.Background(),
		"FACE CREAM\nIngredients: Water, Fragrance, Mineral Oil, Talc, Glycerin\nBatch No: 42")
	require.NoError(t, err)

	assert.Equal(t, 1, emb.calls, "ingredients are embedded in one batch")
	assert.Equal(t, 5, report.Summary.TotalIngredients)
	require.Len(t, report.Matches, 3)
	assert.Equal(t, "fragrance", report.Matches[0].InputIngredient)
	assert.Equal(t, "Fragrance", report.Matches[0].MatchedIngredient)
	assert.Equal(t, "Essential oil blends", report.Matches[0].Recommendation)
	assert.Equal(t, "mineral oil", report.Matches[1].InputIngredient)
	assert.Equal(t, "talc", report.Matches[2].InputIngredient)
	assert.Equal(t, 2, report.Summary.HighRisk)
	assert.Equal(t, 1, report.Summary.ModerateRisk)
	assert.Len(t, report.ID, 26)
	assert.Equal(t, 2024, report.Timestamp.Year())

	for _, m := range report.Matches {
		assert.GreaterOrEqual(t, m.Confidence, matcher.DefaultThreshold)
	}
}

func TestAnalyzeNoMatchesStillCountsIngredients(t *testing.T) {
	svc, _ := newTestService(t, catalog.Default().Entries())

	report, err := svc.Analyze(context.Background(), "ingredients: aqua, glycerin")
	require.NoError(t, err)
	assert.NotNil(t, report.Matches)
	assert.Empty(t, report.Matches)
	assert.Equal(t, 2, report.Summary.TotalIngredients)
}

func TestAnalyzeInvalidInput(t *testing.T) {
	svc, emb := newTestService(t, catalog.Default().Entries())

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := svc.Analyze(context.Background(), in)
		require.Error(t, err)
		assert.Equal(t, KindInvalidInput, KindOf(err))
	}
	assert.Zero(t, emb.calls)
}

func TestAnalyzeNoIngredientsFound(t *testing.T) {
	svc, emb := newTestService(t, catalog.Default().Entries())

	_, err := svc.Analyze(context.Background(), "Net Wt 200 ml\nMade in India")
	require.Error(t, err)

	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, KindNoIngredientsFound, ae.Kind)
	assert.Equal(t, "net wt 200 ml made in india", ae.Sample)
	assert.Zero(t, emb.calls)
}

func TestAnalyzeNoIngredientsSampleIsCapped(t *testing.T) {
	svc, _ := newTestService(t, catalog.Default().Entries())

	_, err := svc.Analyze(context.Background(), strings.Repeat("é", 500))
	var ae *Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, MaxSampleLength+3, len([]rune(ae.Sample)))
	assert.True(t, strings.HasSuffix(ae.Sample, "..."))
}

func TestAnalyzeEmbeddingFailureIsAtomic(t *testing.T) {
	svc, emb := newTestService(t, catalog.Default().Entries())
	emb.err = fmt.Errorf("%w: connection refused", embeddings.ErrService)

	report, err := svc.Analyze(context.Background(), "ingredients: talc, fragrance")
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, KindProcessingFailure, KindOf(err))
	assert.ErrorIs(t, err, embeddings.ErrService)
}

func TestAnalyzeVectorCountMismatch(t *testing.T) {
	svc, emb := newTestService(t, catalog.Default().Entries())
	emb.short = true

	_, err := svc.Analyze(context.Background(), "ingredients: talc, fragrance")
	require.Error(t, err)
	assert.Equal(t, KindProcessingFailure, KindOf(err))
}

func TestAnalyzeCompositeLabelsAreNotBucketed(t *testing.T) {
	svc, _ := newTestService(t, []models.CatalogEntry{
		{Name: "Retinol", RiskLevel: "Moderate–High"},
		{Name: "Salicylic Acid", RiskLevel: "Low-Moderate"},
		{Name: "Talc", RiskLevel: models.RiskHigh},
		{Name: "Kojic Acid", RiskLevel: "high"},
	})

	report, err := svc.Analyze(context.Background(), "Ingredients: Retinol, Salicylic Acid, Talc, Kojic Acid")
	require.NoError(t, err)
	assert.Len(t, report.Matches, 4)
	assert.Equal(t, 1, report.Summary.HighRisk)
	assert.Equal(t, 0, report.Summary.ModerateRisk)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindProcessingFailure, KindOf(errors.New("boom")))
	assert.Equal(t, KindInvalidInput, KindOf(fmt.Errorf("wrapped: %w", invalidInput("x"))))
}

func TestErrorMessage(t *testing.T) {
	err := processingFailure("Embedding service failed", errors.New("timeout"))
	assert.Equal(t, "processing_failure: Embedding service failed: timeout", err.Error())
	assert.Equal(t, "no_ingredients_found: No ingredients found", noIngredients("").Error())
}

func TestAnalyzeEmbeddingSizeChangeIsProcessingFailure(t *testing.T) {
	svc, emb := newTestService(t, catalog.Default().Entries())
	emb.dim++

	_, err := svc.Analyze(context.Background(), "Ingredients: talc")
	require.Error(t, err)
	assert.Equal(t, KindProcessingFailure, KindOf(err))
	assert.ErrorIs(t, err, matcher.ErrDimensionMismatch)
}

func TestAnalyzeTracesSimilarityMatrix(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	svc, _ := newTestService(t, catalog.Default().Entries())
	var buf bytes.Buffer
	svc.logger = zerolog.New(&buf).Level(zerolog.TraceLevel)

	_, err := svc.Analyze(context.Background(), "Ingredients: talc, aqua")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"similarity matrix"`)
	assert.Contains(t, buf.String(), `"ingredients":["talc","aqua"]`)
}
