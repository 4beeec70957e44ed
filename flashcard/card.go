// Package flashcard turns ranked concepts into study cards and removes
// near-duplicates from the resulting deck.
package flashcard

// Difficulty levels derived from definition length.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Generation methods.
const (
	MethodDefinition = "definition"
	MethodCloze      = "cloze"
)

// Card is an immutable generated flashcard. It survives only through the
// deduplication stage, which may drop it.
type Card struct {
	ID         string   `json:"id"`
	Front      string   `json:"front"`
	Back       string   `json:"back"`
	Difficulty string   `json:"difficulty"`
	Confidence float64  `json:"confidence"`
	Method     string   `json:"method"`
	SourceText string   `json:"sourceText"`
	Tags       []string `json:"tags"`
}
