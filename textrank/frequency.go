package textrank

import (
	"math"
	"strings"
)

// FrequencyScores scores sentences by how many of the given key terms they
// contain, weighted by each term's corpus frequency and dampened by
// sentence length. Used by the nlp algorithm, which ranks without a
// similarity graph.
func FrequencyScores(sentences []string, terms []string) []float64 {
	scores := make([]float64, len(sentences))
	if len(sentences) == 0 || len(terms) == 0 {
		return scores
	}

	lowered := make([]string, len(sentences))
	for i, s := range sentences {
		lowered[i] = strings.ToLower(s)
	}

	// Corpus frequency per term.
	weights := make(map[string]float64, len(terms))
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		count := 0
		for _, s := range lowered {
			count += strings.Count(s, t)
		}
		if count > 0 {
			weights[t] = float64(count)
		}
	}

	var maxScore float64
	for i, s := range lowered {
		var sum float64
		for t, w := range weights {
			if strings.Contains(s, t) {
				sum += w
			}
		}
		tokens := float64(len(strings.Fields(s)))
		if tokens > 0 {
			sum /= math.Sqrt(tokens)
		}
		scores[i] = sum
		if sum > maxScore {
			maxScore = sum
		}
	}

	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}
	return scores
}
