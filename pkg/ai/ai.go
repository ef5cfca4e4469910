package ai

import (
	"context"
)

// ModelMetrics contains performance metrics from embedding operations.
type ModelMetrics struct {
	InputTokens int   `json:"input_tokens"`
	TotalTokens int   `json:"total_tokens"`
	DurationMs  int64 `json:"duration_ms"`
}

// Embedder defines the interface for embedding backends. An implementation
// must be deterministic for identical input: the ranking engine relies on
// text → vector behaving as a pure function within one run.
//
// Empty or whitespace-only input yields a zero vector of the configured
// dimensionality rather than an error; callers decide whether an empty
// text is meaningful.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)

	Dimensions() int
	ResetMetrics()
	GetMetrics() ModelMetrics
}
