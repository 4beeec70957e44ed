package flashcard

import (
	"context"
	"strings"

	"github.com/notewise/textengine/vector"
)

// DedupeThreshold is the cosine similarity above which two cards are
// considered duplicates on the embedding path.
const DedupeThreshold = 0.85

// EmbedFunc supplies a vector for a card's combined text; ok=false degrades
// the whole pass to normalized-text matching.
type EmbedFunc func(ctx context.Context, text string) ([]float32, bool)

// Deduplicator removes near-duplicate cards from a deck.
type Deduplicator struct {
	embed EmbedFunc
}

// NewDeduplicator creates a deduplicator. embed may be nil, which forces
// the normalized-text fallback path.
func NewDeduplicator(embed EmbedFunc) *Deduplicator {
	return &Deduplicator{embed: embed}
}

// Dedupe walks cards in order and drops every card too similar to one
// already kept; the first occurrence always survives. removed equals
// len(cards) - len(survivors).
func (d *Deduplicator) Dedupe(ctx context.Context, cards []Card) (survivors []Card, removed int, err error) {
	if len(cards) == 0 {
		return nil, 0, nil
	}

	if d.embed != nil {
		survivors, removed, ok := d.dedupeByEmbedding(ctx, cards)
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if ok {
			return survivors, removed, nil
		}
	}

	survivors, removed = dedupeByText(cards)
	return survivors, removed, nil
}

// dedupeByEmbedding compares each card's vector against every kept card.
// Greedy and order-sensitive. ok=false when any embedding is unavailable,
// in which case the caller falls back to the text path for the whole deck.
func (d *Deduplicator) dedupeByEmbedding(ctx context.Context, cards []Card) ([]Card, int, bool) {
	var kept []Card
	var keptVectors [][]float32

	for _, card := range cards {
		if ctx.Err() != nil {
			return nil, 0, false
		}
		vec, ok := d.embed(ctx, card.Front+" "+card.Back)
		if !ok {
			return nil, 0, false
		}

		duplicate := false
		for _, prev := range keptVectors {
			if vector.CosineSimilarity(vec, prev) > DedupeThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, card)
		keptVectors = append(keptVectors, vec)
	}
	return kept, len(cards) - len(kept), true
}

// dedupeByText keeps the first card per normalized front text.
func dedupeByText(cards []Card) ([]Card, int) {
	seen := make(map[string]struct{}, len(cards))
	var kept []Card
	for _, card := range cards {
		key := normalizeText(card.Front)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, card)
	}
	return kept, len(cards) - len(kept)
}

// normalizeText lowercases, collapses whitespace and trims.
func normalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
