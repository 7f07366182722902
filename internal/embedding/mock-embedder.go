package embedding

import (
	"context"
	"math"
	"math/rand"
)

// MockEmbedder is a deterministic embedder for tests and offline development.
// The vector is seeded from a hash of the text, so the same text always gets
// the same embedding and different texts are nearly orthogonal.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns an embedder that produces deterministic embeddings of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a unit-length embedding derived from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	rng := rand.New(rand.NewSource(int64(hash64(text))))
	emb := make([]float32, e.dimensions)
	var sum float64
	for i := range emb {
		v := rng.NormFloat64()
		emb[i] = float32(v)
		sum += v * v
	}
	if sum > 0 {
		norm := 1 / math.Sqrt(sum)
		for i := range emb {
			emb[i] = float32(float64(emb[i]) * norm)
		}
	}
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// Name returns "mock".
func (e *MockEmbedder) Name() string { return "mock" }

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error { return nil }
