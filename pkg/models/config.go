package models

// Config holds the runtime configuration of the service
type Config struct {
	Env      string
	LogLevel string

	ServerPort int

	APIKey                  string
	EmbeddingBaseURL        string
	EmbeddingModel          string
	EmbeddingTimeoutSeconds int
	EmbeddingChunkSize      int
	NumWorkers              int

	MatchThreshold float64
	MatchBackend   string
	CatalogFile    string

	QdrantHost       string
	QdrantPort       int
	QdrantCollection string

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	EmbeddingCacheTTLH int
}

const (
	BackendLinear = "linear"
	BackendQdrant = "qdrant"
)
