package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"labelscan/internal/catalog"
	"labelscan/internal/embeddings"
)

// SyncResult summarises a catalog sync
type SyncResult struct {
	Total   int `json:"total_items"`
	Skipped int `json:"skipped_items"`
	Updated int `json:"updated_items"`
	Removed int `json:"removed_items"`
}

// SyncOptions controls how new or changed entries are embedded. Model names
// the embedding model; stored vectors from any other model are re-embedded.
type SyncOptions struct {
	Model      string
	ChunkSize  int
	NumWorkers int
}

// SyncCatalog makes the collection mirror cat and returns one vector per
// catalog entry in catalog order. Entries whose stored hash and model match
// are not re-embedded; points beyond the end of the catalog are removed. When
// the vector size changes the collection is dropped and rebuilt.
func (s *Service) SyncCatalog(ctx context.Context, cat *catalog.Catalog, e embeddings.Embedder, opts SyncOptions, logger zerolog.Logger) ([][]float32, SyncResult, error) {
	result := SyncResult{Total: cat.Len()}

	existing, err := s.ScrollPoints(ctx)
	if status.Code(err) == codes.NotFound {
		// first run, the collection is created once the vector size is known
		existing, err = nil, nil
	}
	if err != nil {
		return nil, result, err
	}
	logger.Info().Int("points", len(existing)).Str("collection", s.collection).Msg("loaded stored catalog points")

	vectors := make([][]float32, cat.Len())
	storedDim, removed := 0, 0
	var stale []int
	for _, p := range existing {
		idx := entryIndex(p.Id)
		if idx < 0 || idx >= cat.Len() {
			stale = append(stale, idx)
			continue
		}
		vec := p.GetVectors().GetVector().GetData()
		if len(vec) == 0 {
			continue
		}
		if storedDim == 0 {
			storedDim = len(vec)
		}
		switch {
		case payloadString(p.Payload, "_model") != opts.Model:
			logger.Debug().Int("entry", idx).Str("model", payloadString(p.Payload, "_model")).Msg("catalog entry embedded with another model")
		case len(vec) != storedDim:
			logger.Debug().Int("entry", idx).Int("dim", len(vec)).Msg("catalog entry has an unexpected vector size")
		case payloadString(p.Payload, "_hash") != cat.Hash(idx):
			logger.Debug().Int("entry", idx).Str("name", cat.Entry(idx).Name).Msg("catalog entry has changed")
		default:
			vectors[idx] = vec
		}
	}

	pending := make([]int, 0, cat.Len())
	for i := range vectors {
		if vectors[i] == nil {
			pending = append(pending, i)
		}
	}

	if len(pending) > 0 {
		fresh, err := s.embedEntries(ctx, cat, pending, e, opts, logger)
		if err != nil {
			return nil, result, err
		}
		dim := len(fresh[0])

		if storedDim != 0 && storedDim != dim {
			// the collection was created for another vector size
			logger.Warn().
				Int("stored_dim", storedDim).
				Int("dim", dim).
				Str("collection", s.collection).
				Msg("vector size changed, recreating collection")
			if err := s.DeleteCollection(ctx); err != nil {
				return nil, result, err
			}
			removed = len(stale)
			stale = nil

			var reused []int
			for i := range vectors {
				if vectors[i] != nil {
					reused = append(reused, i)
					vectors[i] = nil
				}
			}
			more, err := s.embedEntries(ctx, cat, reused, e, opts, logger)
			if err != nil {
				return nil, result, err
			}
			if len(more) > 0 && len(more[0]) != dim {
				return nil, result, fmt.Errorf("%w: embedder returned %d and %d dimensions", embeddings.ErrService, dim, len(more[0]))
			}
			pending = append(pending, reused...)
			fresh = append(fresh, more...)
		}

		if err := s.InitializeCollection(ctx, dim); err != nil {
			return nil, result, err
		}

		now := time.Now().Format(time.RFC3339)
		points := make([]Point, len(pending))
		for j, idx := range pending {
			entry := cat.Entry(idx)
			vectors[idx] = fresh[j]
			points[j] = Point{
				Entry:  idx,
				Vector: fresh[j],
				Payload: map[string]any{
					"_hash":       cat.Hash(idx),
					"_model":      opts.Model,
					"_last_check": now,
					"name":        entry.Name,
					"risk_level":  string(entry.RiskLevel),
					"notes":       entry.Notes,
					"alternative": entry.Alternative,
				},
			}
		}
		if err := s.UpsertPoints(ctx, points); err != nil {
			return nil, result, err
		}
	}
	result.Skipped = cat.Len() - len(pending)
	result.Updated = len(pending)

	if err := s.DeletePoints(ctx, stale); err != nil {
		return nil, result, err
	}
	result.Removed = removed + len(stale)

	logger.Info().
		Int("total", result.Total).
		Int("skipped", result.Skipped).
		Int("updated", result.Updated).
		Int("removed", result.Removed).
		Msg("catalog sync complete")

	return vectors, result, nil
}

func (s *Service) embedEntries(ctx context.Context, cat *catalog.Catalog, entries []int, e embeddings.Embedder, opts SyncOptions, logger zerolog.Logger) ([][]float32, error) {
	texts := make([]string, len(entries))
	for j, idx := range entries {
		texts[j] = cat.Entry(idx).Name
	}
	fresh, err := embeddings.EmbedInChunks(ctx, e, texts, opts.ChunkSize, opts.NumWorkers, logger)
	if err != nil {
		return nil, fmt.Errorf("embed catalog entries: %w", err)
	}
	for j, v := range fresh {
		if len(v) != len(fresh[0]) {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, want %d", embeddings.ErrService, entries[j], len(v), len(fresh[0]))
		}
	}
	return fresh, nil
}
