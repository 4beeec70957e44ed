package concept

import (
	"regexp"
	"strings"
)

// minColonDefinition is the minimum definition length for the colon form,
// which is noisier than the sentence patterns.
const minColonDefinition = 10

type pattern struct {
	re         *regexp.Regexp
	ptype      string
	confidence float64
}

// Patterns are tried in priority order; the first match wins for a sentence.
var patterns = []pattern{
	{regexp.MustCompile(`(?i)^(.{2,80}?)\s+is\s+defined\s+as\s+(.+)$`), PatternDefinedAs, 0.90},
	{regexp.MustCompile(`(?i)^(.{2,80}?)\s+refers\s+to\s+(.+)$`), PatternRefersTo, 0.85},
	{regexp.MustCompile(`(?i)^(.{2,80}?)\s+means\s+(.+)$`), PatternMeans, 0.85},
	{regexp.MustCompile(`(?i)^(.{2,80}?)\s+is\s+(?:a|an|the)\s+(.+)$`), PatternIsA, 0.80},
	{regexp.MustCompile(`^([A-Za-z][^:]{1,60}):\s+(.+)$`), PatternColon, 0.70},
}

// leadingArticle strips "the"/"a"/"an" from the start of a mined term.
var leadingArticle = regexp.MustCompile(`(?i)^(?:the|an|a)\s+`)

// MinePatterns extracts definitional concepts from a sentence. At most one
// concept is produced per sentence, from the highest-priority matching
// pattern.
func MinePatterns(sentence string) *ExtractedConcept {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return nil
	}

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}

		term := cleanTerm(m[1])
		definition := cleanDefinition(m[2])
		if term == "" || definition == "" {
			continue
		}
		if p.ptype == PatternColon && len(definition) <= minColonDefinition {
			continue
		}

		return &ExtractedConcept{
			Term:        term,
			Definition:  definition,
			Context:     sentence,
			Importance:  p.confidence,
			PatternType: p.ptype,
		}
	}
	return nil
}

// cleanTerm normalizes a mined term: strips articles and punctuation,
// rejects terms that are empty or implausibly long.
func cleanTerm(term string) string {
	term = strings.TrimSpace(term)
	term = leadingArticle.ReplaceAllString(term, "")
	term = strings.Trim(term, ".,;:!?\"'")
	if len(term) < 2 || strings.Count(term, " ") > 5 {
		return ""
	}
	return term
}

func cleanDefinition(definition string) string {
	definition = strings.TrimSpace(definition)
	definition = strings.TrimRight(definition, " .")
	return definition
}
