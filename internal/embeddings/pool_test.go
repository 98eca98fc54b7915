package embeddings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lengthEmbedder struct {
	mu      sync.Mutex
	batches int
	failOn  string
}

func (l *lengthEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	l.mu.Lock()
	l.batches++
	l.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == l.failOn {
			return nil, errors.New("upstream failure")
		}
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestEmbedInChunksPreservesOrder(t *testing.T) {
	texts := make([]string, 23)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}
	e := &lengthEmbedder{}

	vectors, err := EmbedInChunks(context.Background(), e, texts, 5, 3, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, v := range vectors {
		assert.Equal(t, []float32{float32(i + 1)}, v)
	}
	assert.Equal(t, 5, e.batches)
}

func TestEmbedInChunksSingleBatchWhenUnchunked(t *testing.T) {
	e := &lengthEmbedder{}
	vectors, err := EmbedInChunks(context.Background(), e, []string{"a", "bb"}, 0, 4, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 1, e.batches)
}

func TestEmbedInChunksFailsAtomically(t *testing.T) {
	e := &lengthEmbedder{failOn: "bad"}
	vectors, err := EmbedInChunks(context.Background(), e, []string{"a", "b", "bad", "c"}, 2, 2, zerolog.Nop())
	require.Error(t, err)
	assert.Nil(t, vectors)
	assert.Contains(t, err.Error(), "chunk 1")
}

func TestEmbedInChunksEmpty(t *testing.T) {
	vectors, err := EmbedInChunks(context.Background(), &lengthEmbedder{}, nil, 10, 2, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, vectors)
}
