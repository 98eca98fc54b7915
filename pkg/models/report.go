package models

import "time"

// MatchResult annotates one extracted ingredient with its best catalog match
type MatchResult struct {
	InputIngredient   string    `json:"input_ingredient"`
	MatchedIngredient string    `json:"matched_ingredient"`
	Entry             int       `json:"-"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Confidence        float64   `json:"confidence"`
	Notes             string    `json:"notes"`
	Recommendation    string    `json:"recommendation"`
}

// Summary holds the report counters
type Summary struct {
	TotalIngredients int `json:"total_ingredients"`
	HighRisk         int `json:"high_risk"`
	ModerateRisk     int `json:"moderate_risk"`
}

// AnalysisReport is the result of analysing one label
type AnalysisReport struct {
	ID        string        `json:"id"`
	Matches   []MatchResult `json:"analysis"`
	Summary   Summary       `json:"summary"`
	Timestamp time.Time     `json:"timestamp"`
}

// EmbeddingJob is a chunk of texts queued for the embedding worker pool
type EmbeddingJob struct {
	Chunk int
	Texts []string
}

// EmbeddingResult carries the vectors for one EmbeddingJob
type EmbeddingResult struct {
	Chunk   int
	Vectors [][]float32
	Error   error
}
