// Package mock provides a deterministic embedder for tests and demo
// wiring.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

// Embedder is a simple mock embedder for testing. It generates
// deterministic embeddings based on a text hash, so identical text always
// produces an identical vector — deduplication depends on that.
type Embedder struct {
	dimensions int
}

// New creates a new mock embedder with the given dimension (default 768).
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &Embedder{dimensions: dimensions}
}

// Embed creates a deterministic embedding from text using a hash-seeded LCG.
func (m *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	embedding := make([]float32, m.dimensions)
	for i := 0; i < m.dimensions; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		embedding[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}

	return normalize(embedding), nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int {
	return m.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
