package api

import (
	"net/http"

	"github.com/rs/zerolog"
)

func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/analyze/text", h.AnalyzeText)
	mux.HandleFunc("GET /api/ingredients", h.ListIngredients)
	mux.HandleFunc("GET /health", h.Health)
}

// NewRouter returns the API with its middleware applied
func NewRouter(h *Handler, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)
	return RequestID(logger)(AccessLog(CORS(mux)))
}
