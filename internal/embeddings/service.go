package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
)

// ErrService marks every failure of the external embedding service
var ErrService = errors.New("embedding service error")

// Embedder maps an ordered batch of strings to vectors of the same length
// and order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type OpenAIRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type OpenAIResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Service handles interactions with an OpenAI compatible embeddings API
type Service struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customises a Service
type Option func(*Service)

// WithBaseURL points the service at another OpenAI compatible endpoint
func WithBaseURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithModel selects the embedding model
func WithModel(model string) Option {
	return func(s *Service) {
		if model != "" {
			s.model = model
		}
	}
}

// WithTimeout bounds every request to the embedding API
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// NewService creates a new embeddings service
func NewService(apiKey string, opts ...Option) *Service {
	s := &Service{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the configured model name
func (s *Service) Model() string {
	return s.model
}

// Embed generates one embedding per input text, in input order
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	payload := OpenAIRequest{Input: texts, Model: s.model}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrService, err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to make request: %w", ErrService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrService, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API request failed with status %d: %s", ErrService, resp.StatusCode, truncate(string(body), 300))
	}

	var openAIResp OpenAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrService, err)
	}

	if len(openAIResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrService, len(texts), len(openAIResp.Data))
	}

	sort.SliceStable(openAIResp.Data, func(i, j int) bool {
		return openAIResp.Data[i].Index < openAIResp.Data[j].Index
	})

	vectors := make([][]float32, len(texts))
	for i, d := range openAIResp.Data {
		if d.Index != i {
			return nil, fmt.Errorf("%w: missing embedding for input %d", ErrService, i)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for input %d", ErrService, i)
		}
		vectors[i] = d.Embedding
	}

	return vectors, nil
}

// ValidateAPIKey checks if the API key is valid by making a test request
func (s *Service) ValidateAPIKey(ctx context.Context) error {
	_, err := s.Embed(ctx, []string{"test"})
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
