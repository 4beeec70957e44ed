// Package concept mines term/definition pairs from note text. Two candidate
// sources feed the extractor: definitional sentence patterns and frequent
// noun phrases from a pluggable grammatical helper.
package concept

// Pattern types, in descending confidence order.
const (
	PatternDefinedAs = "defined_as" // "X is defined as Y"
	PatternRefersTo  = "refers_to"  // "X refers to Y"
	PatternMeans     = "means"      // "X means Y"
	PatternIsA       = "is_a"       // "X is a/an/the Y"
	PatternColon     = "colon"      // "Term: definition"
	PatternFrequency = "frequency"  // frequent noun phrase
)

// ExtractedConcept is a candidate term with its definition and the sentence
// it was found in. Importance seeds card difficulty and ordering.
type ExtractedConcept struct {
	Term        string    `json:"term"`
	Definition  string    `json:"definition"`
	Context     string    `json:"context"`
	Importance  float64   `json:"importance"` // [0,1]
	PatternType string    `json:"patternType"`
	Vector      []float32 `json:"-"`
}
