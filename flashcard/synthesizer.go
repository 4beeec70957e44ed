package flashcard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/lithammer/shortuuid/v4"

	"github.com/notewise/textengine/concept"
)

// DefaultMinConfidence is the importance threshold below which concepts
// produce no cards.
const DefaultMinConfidence = 0.3

// questionTemplates are cycled round-robin across a deck to keep variety.
var questionTemplates = []string{
	"What is %s?",
	"Define: %s",
	"Explain the concept of %s",
}

// difficulty word-count thresholds.
const (
	easyMaxWords   = 10
	mediumMaxWords = 25
)

// Options configures card synthesis.
type Options struct {
	MaxCards      int
	MinConfidence float64
	// ForceDifficulty overrides the word-count heuristic when non-empty.
	ForceDifficulty string
	Tags            []string
}

// Synthesizer generates cards from extracted concepts. It keeps the
// round-robin template position across calls so consecutive decks vary.
type Synthesizer struct {
	templateIndex int
}

// NewSynthesizer creates a card synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Generate produces definition and cloze cards from concepts already sorted
// by descending importance. Definition cards are attempted before cloze
// cards for the same concept; generation stops at MaxCards.
func (s *Synthesizer) Generate(concepts []concept.ExtractedConcept, opts Options) []Card {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	var cards []Card
	full := func() bool {
		return opts.MaxCards > 0 && len(cards) >= opts.MaxCards
	}

	for _, c := range concepts {
		if full() {
			break
		}
		if c.Importance < minConfidence {
			continue
		}

		cards = append(cards, s.definitionCard(c, opts))
		if full() {
			break
		}

		if cloze, ok := s.clozeCard(c, opts); ok {
			cards = append(cards, cloze)
		}
	}
	return cards
}

func (s *Synthesizer) definitionCard(c concept.ExtractedConcept, opts Options) Card {
	template := questionTemplates[s.templateIndex%len(questionTemplates)]
	s.templateIndex++

	return Card{
		ID:         shortuuid.New(),
		Front:      fmt.Sprintf(template, c.Term),
		Back:       formatAnswer(c.Definition),
		Difficulty: difficultyFor(c.Definition, opts.ForceDifficulty),
		Confidence: c.Importance,
		Method:     MethodDefinition,
		SourceText: c.Context,
		Tags:       opts.Tags,
	}
}

// clozeCard blanks the term out of its context sentence. It is only
// produced when the context contains the exact term on a word boundary and
// blanking actually changes the string.
func (s *Synthesizer) clozeCard(c concept.ExtractedConcept, opts Options) (Card, bool) {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(c.Term) + `\b`)
	if err != nil {
		return Card{}, false
	}
	blanked := re.ReplaceAllString(c.Context, "_____")
	if blanked == c.Context {
		return Card{}, false
	}

	return Card{
		ID:         shortuuid.New(),
		Front:      blanked,
		Back:       c.Term,
		Difficulty: difficultyFor(c.Definition, opts.ForceDifficulty),
		Confidence: c.Importance,
		Method:     MethodCloze,
		SourceText: c.Context,
		Tags:       opts.Tags,
	}, true
}

// formatAnswer capitalizes the definition and terminates it with a period
// when terminal punctuation is missing.
func formatAnswer(definition string) string {
	definition = strings.TrimSpace(definition)
	if definition == "" {
		return definition
	}

	runes := []rune(definition)
	runes[0] = unicode.ToUpper(runes[0])
	answer := string(runes)

	switch answer[len(answer)-1] {
	case '.', '!', '?':
	default:
		answer += "."
	}
	return answer
}

func difficultyFor(definition, forced string) string {
	if forced != "" {
		return forced
	}
	words := len(strings.Fields(definition))
	switch {
	case words < easyMaxWords:
		return DifficultyEasy
	case words < mediumMaxWords:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}
