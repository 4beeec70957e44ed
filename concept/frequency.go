package concept

import (
	"sort"
	"strings"
)

const (
	// maxFrequencyCandidates caps the frequency miner output.
	maxFrequencyCandidates = 20
	// frequencyBase and frequencyStep turn an occurrence count into an
	// importance score capped at frequencyCap.
	frequencyBase = 0.5
	frequencyStep = 0.1
	frequencyCap  = 0.9
)

// cueWords mark sentences likely to define a term; the frequency miner
// prefers them when choosing a context sentence.
var cueWords = []string{" is ", " are ", " refers ", " means ", " defined "}

// MineFrequency ranks noun phrases from the helper by occurrence count
// across the sentences and returns up to maxFrequencyCandidates concepts.
func MineFrequency(sentences []string, provider PhraseProvider) []ExtractedConcept {
	if provider == nil || len(sentences) == 0 {
		return nil
	}

	text := strings.Join(sentences, " ")
	lowerText := strings.ToLower(text)

	type candidate struct {
		phrase string
		count  int
		order  int
	}
	var candidates []candidate
	seen := make(map[string]struct{})
	for i, phrase := range provider.NounPhrases(text) {
		key := strings.ToLower(strings.TrimSpace(phrase))
		if len(key) < 3 {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		count := strings.Count(lowerText, key)
		if count == 0 {
			continue
		}
		candidates = append(candidates, candidate{phrase: strings.TrimSpace(phrase), count: count, order: i})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].count != candidates[b].count {
			return candidates[a].count > candidates[b].count
		}
		return candidates[a].order < candidates[b].order
	})
	if len(candidates) > maxFrequencyCandidates {
		candidates = candidates[:maxFrequencyCandidates]
	}

	concepts := make([]ExtractedConcept, 0, len(candidates))
	for _, c := range candidates {
		context := findContext(sentences, c.phrase)
		if context == "" {
			continue
		}
		importance := frequencyBase + float64(c.count)*frequencyStep
		if importance > frequencyCap {
			importance = frequencyCap
		}
		concepts = append(concepts, ExtractedConcept{
			Term:        c.phrase,
			Definition:  context,
			Context:     context,
			Importance:  importance,
			PatternType: PatternFrequency,
		})
	}
	return concepts
}

// findContext picks the sentence that best explains a phrase: a sentence
// containing both the phrase and a definitional cue word wins over the
// first raw mention.
func findContext(sentences []string, phrase string) string {
	lowerPhrase := strings.ToLower(phrase)
	first := ""
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		if !strings.Contains(lower, lowerPhrase) {
			continue
		}
		if first == "" {
			first = sentence
		}
		for _, cue := range cueWords {
			if strings.Contains(lower, cue) {
				return sentence
			}
		}
	}
	return first
}
