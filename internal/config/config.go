package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"labelscan/internal/embeddings"
	"labelscan/internal/matcher"
	"labelscan/internal/storage"
	"labelscan/pkg/models"
)

const (
	Development = "development"
	Production  = "production"
)

// Load reads the configuration from the environment, after loading a .env
// file when one is present.
func Load() (*models.Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only. Unset
// variables take their defaults; set but unparsable ones are an error.
func FromEnv() (*models.Config, error) {
	p := &envParser{}
	env := parseEnvironment(getEnv("APP_ENV", Development))

	c := &models.Config{
		Env:      env,
		LogLevel: getLogLevel(env),

		ServerPort: p.int("SERVER_PORT", 8080),

		APIKey:                  getEnv("OPENAI_API_KEY", ""),
		EmbeddingBaseURL:        getEnv("EMBEDDING_BASE_URL", embeddings.DefaultBaseURL),
		EmbeddingModel:          getEnv("EMBEDDING_MODEL", embeddings.DefaultModel),
		EmbeddingTimeoutSeconds: p.int("EMBEDDING_TIMEOUT_SECONDS", 30),
		EmbeddingChunkSize:      p.int("EMBEDDING_CHUNK_SIZE", 64),
		NumWorkers:              p.int("NUM_WORKERS", 4),

		MatchThreshold: p.float("MATCH_THRESHOLD", matcher.DefaultThreshold),
		MatchBackend:   strings.ToLower(getEnv("MATCH_BACKEND", models.BackendLinear)),
		CatalogFile:    getEnv("CATALOG_FILE", ""),

		QdrantHost:       getEnv("QDRANT_HOST", ""),
		QdrantPort:       p.int("QDRANT_PORT", 6334),
		QdrantCollection: getEnv("QDRANT_COLLECTION", storage.DefaultCollection),

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            p.int("REDIS_DB", 0),
		EmbeddingCacheTTLH: p.int("EMBEDDING_CACHE_TTL_HOURS", 168),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for values the service cannot run with
func Validate(c *models.Config) error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %v", c.MatchThreshold)
	}
	switch c.MatchBackend {
	case models.BackendLinear:
	case models.BackendQdrant:
		if c.QdrantHost == "" {
			return fmt.Errorf("MATCH_BACKEND=qdrant requires QDRANT_HOST")
		}
	default:
		return fmt.Errorf("unknown MATCH_BACKEND %q", c.MatchBackend)
	}
	if c.NumWorkers < 1 {
		return fmt.Errorf("NUM_WORKERS must be at least 1")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT %d is out of range", c.ServerPort)
	}
	return nil
}

func parseEnvironment(envStr string) string {
	switch env := strings.ToLower(envStr); env {
	case Development, Production:
		return env
	default:
		return Development
	}
}

func getLogLevel(env string) string {
	if env == Production {
		return getEnv("LOG_LEVEL", "info")
	}
	return getEnv("LOG_LEVEL", "debug")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParser reads typed variables and collects every parse failure
type envParser struct {
	errs []error
}

func (p *envParser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return intValue
}

func (p *envParser) float(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, value))
		return defaultValue
	}
	return floatVal
}
