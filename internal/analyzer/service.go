package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"labelscan/internal/embeddings"
	"labelscan/internal/matcher"
	"labelscan/internal/text"
	"labelscan/pkg/models"
)

// Service runs the label analysis pipeline: normalize, extract, embed, match
// and aggregate. It holds no per-request state and is safe for concurrent
// use.
type Service struct {
	embedder embeddings.Embedder
	matcher  *matcher.Matcher
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates an analyzer
func NewService(embedder embeddings.Embedder, m *matcher.Matcher, logger zerolog.Logger) *Service {
	return &Service{
		embedder: embedder,
		matcher:  m,
		logger:   logger.With().Str("component", "analyzer").Logger(),
		now:      time.Now,
	}
}

// Analyze classifies the ingredients listed in raw label text. Every error
// is an *Error.
func (s *Service) Analyze(ctx context.Context, raw string) (*models.AnalysisReport, error) {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &s.logger
	}

	if strings.TrimSpace(raw) == "" {
		return nil, invalidInput("No text provided")
	}

	normalized := text.Normalize(raw)
	extracted := text.Ingredients(normalized)
	if len(extracted) == 0 {
		logger.Info().Int("text_length", len(raw)).Msg("no ingredients section found")
		return nil, noIngredients(sample(normalized))
	}

	ingredients := make([]string, len(extracted))
	for _, ing := range extracted {
		ingredients[ing.Position] = ing.RawText
	}
	logger.Debug().Strs("ingredients", ingredients).Msg("extracted ingredients")

	vectors, err := s.embedder.Embed(ctx, ingredients)
	if err != nil {
		logger.Error().Err(err).Int("ingredients", len(ingredients)).Msg("embedding failed")
		return nil, processingFailure("Embedding service failed", err)
	}
	if len(vectors) != len(ingredients) {
		return nil, processingFailure("Embedding service failed",
			fmt.Errorf("%w: expected %d embeddings, got %d", embeddings.ErrService, len(ingredients), len(vectors)))
	}

	s.traceMatrix(logger, ingredients, vectors)

	matches, err := s.matcher.Match(ctx, ingredients, vectors)
	if err != nil {
		logger.Error().Err(err).Msg("matching failed")
		return nil, processingFailure("Matching failed", err)
	}

	report := Aggregate(matches, len(ingredients), s.now())

	logger.Info().
		Str("report_id", report.ID).
		Int("total_ingredients", report.Summary.TotalIngredients).
		Int("matched", len(report.Matches)).
		Int("high_risk", report.Summary.HighRisk).
		Int("moderate_risk", report.Summary.ModerateRisk).
		Msg("analysis complete")

	return report, nil
}

// traceMatrix logs the full similarity matrix when trace logging is on
func (s *Service) traceMatrix(logger *zerolog.Logger, ingredients []string, vectors [][]float32) {
	e := logger.Trace()
	if !e.Enabled() {
		return
	}
	matrix, err := s.matcher.Matrix(vectors)
	if err != nil {
		e.Discard()
		return
	}
	e.Strs("ingredients", ingredients).Interface("similarity", matrix).Msg("similarity matrix")
}
