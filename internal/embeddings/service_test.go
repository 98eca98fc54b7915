package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService("test-key", WithBaseURL(srv.URL), WithModel("test-model"), WithTimeout(2*time.Second))
}

func TestServiceEmbedOrdersByIndex(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req OpenAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, []string{"water", "talc"}, req.Input)

		// deliberately out of order
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	})

	vectors, err := svc.Embed(context.Background(), []string{"water", "talc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestServiceEmbedEmptyBatch(t *testing.T) {
	svc := NewService("unused", WithBaseURL("http://127.0.0.1:0"))
	vectors, err := svc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestServiceEmbedFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"status", http.StatusInternalServerError, `{"error":"boom"}`, "status 500"},
		{"malformed", http.StatusOK, `{"data":`, "failed to parse response"},
		{"count mismatch", http.StatusOK, `{"data":[{"index":0,"embedding":[1]}]}`, "expected 2 embeddings, got 1"},
		{"empty vector", http.StatusOK, `{"data":[{"index":0,"embedding":[]},{"index":1,"embedding":[1]}]}`, "empty embedding"},
		{"duplicate index", http.StatusOK, `{"data":[{"index":0,"embedding":[1]},{"index":0,"embedding":[1]}]}`, "missing embedding for input 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Embed(context.Background(), []string{"a", "b"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrService)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServiceEmbedCancelled(t *testing.T) {
	svc := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Embed(ctx, []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrService)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceDefaults(t *testing.T) {
	svc := NewService("k", WithBaseURL(""), WithModel(""))
	assert.Equal(t, DefaultModel, svc.Model())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)

	svc = NewService("k", WithBaseURL("http://localhost:11434/v1/"))
	assert.Equal(t, "http://localhost:11434/v1", svc.baseURL)
}
