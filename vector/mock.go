package vector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
)

// MockEmbedder is a deterministic in-memory EmbeddingService for tests.
// Vectors are derived from token hashes so similar texts produce similar
// vectors without any network dependency.
type MockEmbedder struct {
	Dim     int
	FailAll bool
	// FailTexts lists exact texts whose embedding calls fail.
	FailTexts map[string]bool

	mu    sync.Mutex
	calls int
}

// NewMockEmbedder creates a mock embedder with the given dimension.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &MockEmbedder{Dim: dim}
}

// Calls returns how many Embed calls were made.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Embed generates a deterministic pseudo-embedding.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.FailAll {
		return nil, fmt.Errorf("mock embedder: forced failure")
	}
	if m.FailTexts[text] {
		return nil, fmt.Errorf("mock embedder: forced failure for %q", text)
	}

	vec := make([]float32, m.Dim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%m.Dim] += 1
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the mock vector dimension.
func (m *MockEmbedder) Dimensions() int { return m.Dim }

var _ EmbeddingService = (*MockEmbedder)(nil)
