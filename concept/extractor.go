package concept

import (
	"context"
	"sort"
	"strings"
)

// EmbedFunc optionally attaches a vector to each retained concept. A false
// return degrades that concept to no vector; it never fails extraction.
type EmbedFunc func(ctx context.Context, text string) ([]float32, bool)

// Extractor merges pattern-mined and frequency-mined concepts.
type Extractor struct {
	provider PhraseProvider
	embed    EmbedFunc
}

// NewExtractor creates an extractor. provider may be nil to disable the
// frequency miner; embed may be nil to skip concept vectors.
func NewExtractor(provider PhraseProvider, embed EmbedFunc) *Extractor {
	return &Extractor{provider: provider, embed: embed}
}

// Extract mines concepts from the chunk set. Candidates are merged with
// case-insensitive term dedup (first occurrence wins, pattern miner first),
// sorted by descending importance, and filtered by focusTopics last.
func (e *Extractor) Extract(ctx context.Context, chunks []string, focusTopics []string) ([]ExtractedConcept, error) {
	var merged []ExtractedConcept
	seen := make(map[string]struct{})

	add := func(c ExtractedConcept) {
		key := strings.ToLower(c.Term)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, c)
	}

	for i, chunk := range chunks {
		if i%8 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if c := MinePatterns(chunk); c != nil {
			add(*c)
		}
	}

	for _, c := range MineFrequency(chunks, e.provider) {
		add(c)
	}

	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Importance > merged[b].Importance
	})

	merged = filterByTopics(merged, focusTopics)

	if e.embed != nil {
		for i := range merged {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if vec, ok := e.embed(ctx, merged[i].Term+": "+merged[i].Definition); ok {
				merged[i].Vector = vec
			}
		}
	}
	return merged, nil
}

// filterByTopics retains concepts whose term or definition contains one of
// the topics (case-insensitive substring match). An empty topic list keeps
// everything.
func filterByTopics(concepts []ExtractedConcept, topics []string) []ExtractedConcept {
	if len(topics) == 0 {
		return concepts
	}
	filtered := concepts[:0]
	for _, c := range concepts {
		term := strings.ToLower(c.Term)
		definition := strings.ToLower(c.Definition)
		for _, topic := range topics {
			t := strings.ToLower(topic)
			if strings.Contains(term, t) || strings.Contains(definition, t) {
				filtered = append(filtered, c)
				break
			}
		}
	}
	return filtered
}
