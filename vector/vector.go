// Package vector provides the vectorization backend shared by the
// summarization and flashcard pipelines: an OpenAI-compatible embedding
// provider and a local TF-IDF fallback. A batch result is always produced
// with a single strategy; mixed per-sentence strategies cannot be
// represented.
package vector

import "math"

// Strategy identifies how a batch of vectors was produced.
type Strategy string

const (
	// StrategyEmbedding marks vectors produced by the external embedding model.
	StrategyEmbedding Strategy = "embedding"
	// StrategyTFIDF marks vectors produced by the local TF-IDF fallback.
	StrategyTFIDF Strategy = "tfidf"
)

// BatchResult holds one vector per input text, all produced by the same
// strategy. Cosine similarity between vectors of a single batch is always
// commensurable.
type BatchResult struct {
	strategy Strategy
	vectors  [][]float32
}

// NewEmbedded wraps a complete embedding matrix.
func NewEmbedded(vectors [][]float32) BatchResult {
	return BatchResult{strategy: StrategyEmbedding, vectors: vectors}
}

// NewTFIDF wraps a TF-IDF matrix.
func NewTFIDF(vectors [][]float32) BatchResult {
	return BatchResult{strategy: StrategyTFIDF, vectors: vectors}
}

// Strategy returns the strategy that produced the batch.
func (r BatchResult) Strategy() Strategy { return r.strategy }

// Vectors returns the full matrix, one row per input text.
func (r BatchResult) Vectors() [][]float32 { return r.vectors }

// Len returns the number of vectors in the batch.
func (r BatchResult) Len() int { return len(r.vectors) }

// CosineSimilarity calculates cosine similarity between two vectors.
// Mismatched or zero-norm vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
