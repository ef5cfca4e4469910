package store

import (
	"context"
	"fmt"

	"github.com/wisslab/wissrank/pkg/ai"
)

// CachedEmbedder wraps an embedding backend with database-backed caching keyed
// by model name and text hash. Cache hits skip the backend entirely, so a
// repeated run over the same snapshot embeds nothing twice.
type CachedEmbedder struct {
	inner   ai.Embedder
	storage RankStorage
	model   string
}

type NewCachedEmbedderParams struct {
	Inner   ai.Embedder
	Storage RankStorage
	Model   string
}

func NewCachedEmbedder(params NewCachedEmbedderParams) (*CachedEmbedder, error) {
	if params.Inner == nil {
		return nil, fmt.Errorf("inner embedder is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if params.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &CachedEmbedder{
		inner:   params.Inner,
		storage: params.Storage,
		model:   params.Model,
	}, nil
}

func (c *CachedEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	vecs, err := c.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// GenerateEmbeddings resolves cached vectors first and sends only the misses
// to the backend, preserving input order in the result.
func (c *CachedEmbedder) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	hashes := make([]string, len(inputs))
	for i, in := range inputs {
		hashes[i] = HashText(string(in))
	}

	cached, err := c.storage.GetEmbeddings(ctx, c.model, DedupeStrings(hashes))
	if err != nil {
		return nil, fmt.Errorf("failed to load cached embeddings: %w", err)
	}

	out := make([][]float32, len(inputs))
	missIdx := make([]int, 0, len(inputs))
	missInputs := make([][]byte, 0, len(inputs))
	missSeen := make(map[string]struct{}, len(inputs))
	for i, h := range hashes {
		if vec, ok := cached[h]; ok {
			out[i] = vec
			continue
		}
		if _, ok := missSeen[h]; ok {
			continue
		}
		missSeen[h] = struct{}{}
		missIdx = append(missIdx, i)
		missInputs = append(missInputs, inputs[i])
	}

	if len(missInputs) > 0 {
		vecs, err := c.inner.GenerateEmbeddings(ctx, missInputs)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missInputs) {
			return nil, fmt.Errorf("embedding count mismatch: got %d want %d", len(vecs), len(missInputs))
		}

		missHashes := make([]string, len(missIdx))
		for i, idx := range missIdx {
			out[idx] = vecs[i]
			missHashes[i] = hashes[idx]
		}
		if err := c.storage.SaveEmbeddings(ctx, c.model, missHashes, vecs); err != nil {
			return nil, fmt.Errorf("failed to cache embeddings: %w", err)
		}
	}

	// Duplicate inputs share the vector embedded for their first occurrence.
	byHash := make(map[string][]float32, len(hashes))
	for i, h := range hashes {
		if out[i] != nil {
			byHash[h] = out[i]
		}
	}
	for i, h := range hashes {
		if out[i] == nil {
			out[i] = byHash[h]
		}
	}

	return out, nil
}

func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

func (c *CachedEmbedder) ResetMetrics() {
	c.inner.ResetMetrics()
}

func (c *CachedEmbedder) GetMetrics() ai.ModelMetrics {
	return c.inner.GetMetrics()
}
