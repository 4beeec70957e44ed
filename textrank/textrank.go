// Package textrank scores sentences by graph centrality for extractive
// summarization. Sentences become nodes, cosine similarity between their
// vectors becomes weighted edges, and a damped PageRank-style iteration
// produces importance scores blended with a position bias.
package textrank

import (
	"context"

	"github.com/notewise/textengine/vector"
)

// SimilarityGraph maps sentence index to neighbor index to similarity
// weight in [0,1]. Symmetric by construction but stored directionally for
// iteration convenience. Edges below MinSimilarity are omitted entirely.
type SimilarityGraph map[int]map[int]float64

// Config holds the ranking parameters.
type Config struct {
	// Damping is the PageRank damping factor.
	Damping float64
	// Iterations is the fixed iteration count; there is no early-exit
	// convergence check.
	Iterations int
	// PositionWeight blends normalized position into the final score,
	// rewarding earlier sentences.
	PositionWeight float64
	// MinSimilarity is the minimum edge weight kept in the graph.
	MinSimilarity float64
}

// DefaultConfig returns the standard TextRank parameters.
func DefaultConfig() Config {
	return Config{
		Damping:        0.85,
		Iterations:     20,
		PositionWeight: 0.2,
		MinSimilarity:  0.1,
	}
}

// checkEvery is how many outer-loop rows pass between cancellation polls
// in the O(n^2) hot paths.
const checkEvery = 8

// BuildGraph builds the sparse similarity graph over the batch vectors.
// This is the O(n^2) hot path; it polls ctx periodically so a cancelled
// task stops promptly.
func BuildGraph(ctx context.Context, vectors [][]float32, cfg Config) (SimilarityGraph, error) {
	graph := make(SimilarityGraph, len(vectors))
	for i := range vectors {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := range vectors {
			if i == j {
				continue
			}
			weight := vector.CosineSimilarity(vectors[i], vectors[j])
			if weight < cfg.MinSimilarity {
				continue
			}
			if graph[i] == nil {
				graph[i] = make(map[int]float64)
			}
			graph[i][j] = weight
		}
	}
	return graph, nil
}

// Rank runs the damped centrality iteration over n sentences and returns
// one score per sentence. Scores sum to 1 after each iteration.
func Rank(ctx context.Context, graph SimilarityGraph, n int, cfg Config) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1 / float64(n)
	}

	// Out-weight sums are invariant across iterations.
	outSums := make([]float64, n)
	for j, neighbors := range graph {
		for _, w := range neighbors {
			outSums[j] += w
		}
	}

	base := (1 - cfg.Damping) / float64(n)
	for iter := 0; iter < cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		newScores := make([]float64, n)
		for i := 0; i < n; i++ {
			sum := 0.0
			for j, w := range graph[i] {
				if outSums[j] > 0 {
					sum += w / outSums[j] * scores[j]
				}
			}
			newScores[i] = base + cfg.Damping*sum
		}
		scores = newScores
	}
	return scores, nil
}

// ApplyPositionBias blends each score with the sentence's normalized
// position: final = score*(1-w) + (1 - i/total)*w.
func ApplyPositionBias(scores []float64, weight float64) []float64 {
	total := len(scores)
	if total == 0 {
		return scores
	}
	biased := make([]float64, total)
	for i, score := range scores {
		position := 1 - float64(i)/float64(total)
		biased[i] = score*(1-weight) + position*weight
	}
	return biased
}

// LeadScores scores sentences purely by position, for the lead-first
// baseline algorithm.
func LeadScores(n int) []float64 {
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1 - float64(i)/float64(n)
	}
	return scores
}
