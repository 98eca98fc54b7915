package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"labelscan/pkg/models"
)

// EmbedInChunks splits texts into chunks of chunkSize and embeds them on a
// pool of workers. The result keeps input order; the first failed chunk fails
// the whole batch.
func EmbedInChunks(ctx context.Context, e Embedder, texts []string, chunkSize, numWorkers int, logger zerolog.Logger) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if chunkSize <= 0 {
		chunkSize = len(texts)
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunkCount := (len(texts) + chunkSize - 1) / chunkSize
	jobs := make(chan models.EmbeddingJob, chunkCount)
	results := make(chan models.EmbeddingResult, chunkCount)

	var wg sync.WaitGroup
	for w := 1; w <= min(numWorkers, chunkCount); w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					results <- models.EmbeddingResult{Chunk: job.Chunk, Error: ctx.Err()}
					continue
				}
				logger.Debug().Int("worker", workerID).Int("chunk", job.Chunk).Int("texts", len(job.Texts)).Msg("embedding chunk")
				vectors, err := e.Embed(ctx, job.Texts)
				if err == nil && len(vectors) != len(job.Texts) {
					err = fmt.Errorf("%w: expected %d embeddings, got %d", ErrService, len(job.Texts), len(vectors))
				}
				results <- models.EmbeddingResult{Chunk: job.Chunk, Vectors: vectors, Error: err}
			}
		}(w)
	}

	for i := 0; i < chunkCount; i++ {
		start := i * chunkSize
		end := min(start+chunkSize, len(texts))
		jobs <- models.EmbeddingJob{Chunk: i, Texts: texts[start:end]}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([][]float32, len(texts))
	var firstErr error
	for result := range results {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("chunk %d: %w", result.Chunk, result.Error)
				cancel()
			}
			continue
		}
		copy(out[result.Chunk*chunkSize:], result.Vectors)
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
