package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"labelscan/internal/analyzer"
	"labelscan/internal/catalog"
	"labelscan/pkg/models"
)

// Analyzer produces a report for one label text
type Analyzer interface {
	Analyze(ctx context.Context, raw string) (*models.AnalysisReport, error)
}

// Handler serves the analysis API
type Handler struct {
	analyzer Analyzer
	catalog  *catalog.Catalog
	backend  string
	started  time.Time
}

func NewHandler(a Analyzer, cat *catalog.Catalog, backend string) *Handler {
	return &Handler{
		analyzer: a,
		catalog:  cat,
		backend:  backend,
		started:  time.Now(),
	}
}

type analyzeTextRequest struct {
	Text string `json:"text"`
}

// AnalyzeText handles POST /api/analyze/text
func (h *Handler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var req analyzeTextRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		logger.Debug().Err(err).Msg("rejected analyze request")
		logWriteError(logger, HandleError(w, err))
		return
	}

	report, err := h.analyzer.Analyze(r.Context(), req.Text)
	if err != nil {
		logWriteError(logger, writeAnalysisError(w, logger, err))
		return
	}

	logWriteError(logger, SuccessResponse(w, report))
}

func logWriteError(logger *zerolog.Logger, err error) {
	if err != nil {
		logger.Error().Err(err).Msg("failed to write response")
	}
}

func writeAnalysisError(w http.ResponseWriter, logger *zerolog.Logger, err error) error {
	var ae *analyzer.Error
	if !errors.As(err, &ae) {
		logger.Error().Err(err).Msg("analysis failed")
		return JSONError(w, http.StatusInternalServerError, string(analyzer.KindProcessingFailure), "Analysis error")
	}

	body := errorBody{Error: ae.Message, Kind: string(ae.Kind)}
	status := http.StatusBadRequest
	switch ae.Kind {
	case analyzer.KindNoIngredientsFound:
		body.OCRSample = ae.Sample
	case analyzer.KindProcessingFailure:
		status = http.StatusInternalServerError
		logger.Error().Err(err).Msg("analysis failed")
	}
	return JSONResponse(w, status, body)
}

// ListIngredients handles GET /api/ingredients
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	logWriteError(zerolog.Ctx(r.Context()), SuccessResponse(w, h.catalog.Entries()))
}

type healthStatus struct {
	Status       string    `json:"status"`
	StartTime    time.Time `json:"start_time"`
	Uptime       string    `json:"uptime"`
	CatalogSize  int       `json:"catalog_size"`
	MatchBackend string    `json:"match_backend"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	err := JSONResponse(w, http.StatusOK, healthStatus{
		Status:       "up",
		StartTime:    h.started,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		CatalogSize:  h.catalog.Len(),
		MatchBackend: h.backend,
	})
	logWriteError(zerolog.Ctx(r.Context()), err)
}
