package concept

import (
	"regexp"
	"strings"
)

// PhraseProvider is the grammatical NLP helper consumed by the frequency
// miner. Implementations are best-effort; absence is tolerated.
type PhraseProvider interface {
	// NounPhrases returns candidate noun phrases found in the text.
	NounPhrases(text string) []string
}

// HeuristicProvider is the built-in PhraseProvider used when no external
// helper is wired in. It finds capitalized multi-word runs and frequent
// standalone content words.
type HeuristicProvider struct{}

var (
	capitalizedRun = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,3}\b`)
	contentWord    = regexp.MustCompile(`\b[a-z]{4,}\b`)
)

var stopwords = map[string]struct{}{
	"this": {}, "that": {}, "these": {}, "those": {}, "with": {}, "from": {},
	"into": {}, "over": {}, "under": {}, "about": {}, "through": {}, "which": {},
	"their": {}, "there": {}, "where": {}, "when": {}, "what": {}, "have": {},
	"been": {}, "were": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"also": {}, "such": {}, "than": {}, "then": {}, "them": {}, "they": {},
	"because": {}, "between": {}, "while": {}, "during": {}, "other": {},
	"more": {}, "most": {}, "some": {}, "many": {}, "each": {}, "very": {},
}

// NounPhrases extracts candidate phrases heuristically.
func (HeuristicProvider) NounPhrases(text string) []string {
	seen := make(map[string]struct{})
	var phrases []string
	add := func(phrase string) {
		key := strings.ToLower(strings.TrimSpace(phrase))
		if key == "" {
			return
		}
		if _, stop := stopwords[key]; stop {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		phrases = append(phrases, strings.TrimSpace(phrase))
	}

	for _, m := range capitalizedRun.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range contentWord.FindAllString(strings.ToLower(text), -1) {
		add(m)
	}
	return phrases
}

var _ PhraseProvider = HeuristicProvider{}

// StaticProvider returns a fixed phrase list; used in tests and for hosts
// that precompute topics.
type StaticProvider []string

// NounPhrases returns the static list regardless of input.
func (p StaticProvider) NounPhrases(string) []string { return p }

var _ PhraseProvider = StaticProvider(nil)
