package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// VectorCache stores embeddings by key. Get returns one slot per key, nil on
// a miss.
type VectorCache interface {
	Get(ctx context.Context, keys []string) ([][]float32, error)
	Set(ctx context.Context, entries map[string][]float32) error
}

// CachedEmbedder consults a VectorCache before calling the wrapped embedder
// and only sends the misses upstream.
type CachedEmbedder struct {
	next   Embedder
	cache  VectorCache
	model  string
	logger zerolog.Logger
}

// NewCachedEmbedder wraps next with cache. model is part of every cache key so
// vectors from different models never mix.
func NewCachedEmbedder(next Embedder, cache VectorCache, model string, logger zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		next:   next,
		cache:  cache,
		model:  model,
		logger: logger.With().Str("component", "embedding_cache").Logger(),
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.key(t)
	}

	vectors, err := c.cache.Get(ctx, keys)
	if err != nil || len(vectors) != len(texts) {
		// cache trouble is never fatal for a request
		c.logger.Warn().Err(err).Msg("embedding cache lookup failed")
		vectors = make([][]float32, len(texts))
	}

	var missing []string
	var missingIdx []int
	for i, v := range vectors {
		if v == nil {
			missing = append(missing, texts[i])
			missingIdx = append(missingIdx, i)
		}
	}

	c.logger.Debug().
		Int("requested", len(texts)).
		Int("hits", len(texts)-len(missing)).
		Msg("embedding cache lookup")

	if len(missing) == 0 {
		return vectors, nil
	}

	fresh, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrService, len(missing), len(fresh))
	}

	toStore := make(map[string][]float32, len(fresh))
	for j, idx := range missingIdx {
		vectors[idx] = fresh[j]
		toStore[keys[idx]] = fresh[j]
	}

	if err := c.cache.Set(ctx, toStore); err != nil {
		c.logger.Warn().Err(err).Int("entries", len(toStore)).Msg("embedding cache write failed")
	}

	return vectors, nil
}

func (c *CachedEmbedder) key(text string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, c.model)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return "emb:" + hex.EncodeToString(h.Sum(nil))
}

// RedisCache keeps embeddings in Redis as little-endian float32 blobs
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, keys []string) ([][]float32, error) {
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(keys))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		vec, err := decodeVector([]byte(s))
		if err != nil {
			continue
		}
		out[i] = vec
	}
	return out, nil
}

func (r *RedisCache) Set(ctx context.Context, entries map[string][]float32) error {
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, k, encodeVector(v), r.ttl)
		}
		return nil
	})
	return err
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4+len(vec)*4)
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(vec)))
	off := 4
	for _, v := range vec {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
		off += 4
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("cached vector too small")
	}
	length := int(binary.LittleEndian.Uint32(data[:4]))
	data = data[4:]
	if length == 0 || len(data) != length*4 {
		return nil, fmt.Errorf("cached vector length mismatch")
	}
	vec := make([]float32, length)
	for i := 0; i < length; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("cached vector is not finite")
		}
		vec[i] = v
	}
	return vec, nil
}
