package textrank

import (
	"sort"
	"strings"

	"github.com/notewise/textengine/segment"
)

// SelectSummary greedily fills maxLength with the highest-scored sentences,
// then reorders the chosen subset by original position. Ranking decides
// which sentences are chosen; original order decides how they read.
func SelectSummary(sentences []segment.Sentence, scores []float64, maxLength int) string {
	if len(sentences) == 0 || maxLength <= 0 {
		return ""
	}

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	var chosen []int
	length := 0
	for _, idx := range order {
		text := sentences[idx].Text
		next := length + len(text)
		if length > 0 {
			next++ // separator
		}
		if next > maxLength {
			continue
		}
		chosen = append(chosen, idx)
		length = next
	}

	// Even the single best sentence does not fit: truncate it. Cutting on
	// runes keeps the result valid UTF-8.
	if len(chosen) == 0 {
		best := []rune(sentences[order[0]].Text)
		if maxLength <= 3 {
			return string(best[:min(maxLength, len(best))])
		}
		cut := maxLength - 3
		if cut > len(best) {
			cut = len(best)
		}
		return string(best[:cut]) + "..."
	}

	sort.Ints(chosen)
	parts := make([]string, len(chosen))
	for i, idx := range chosen {
		parts[i] = sentences[idx].Text
	}
	return strings.Join(parts, " ")
}
