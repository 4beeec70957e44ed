// Package segment splits raw note text into sentences and chunks for the
// analysis pipelines. Splitting protects abbreviations, URLs and decimal
// numbers from producing false sentence boundaries.
package segment

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinSentenceLength is the minimum character count for a summarization sentence.
	MinSentenceLength = 10
	// MinChunkLength is the minimum character count for a flashcard chunk.
	MinChunkLength = 25
	// minParagraphs is the paragraph count below which chunking falls back to sentences.
	minParagraphs = 3
)

// Sentence is a contiguous text span with its original 0-based index.
// The index is preserved through every transformation and is the sole
// ordering key for final output reconstruction.
type Sentence struct {
	Index int
	Text  string
}

// protectedAbbreviations are substrings that must never terminate a sentence.
var protectedAbbreviations = []string{
	"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Sr.", "Jr.", "St.",
	"etc.", "i.e.", "e.g.", "vs.", "cf.", "Inc.", "Ltd.", "Co.", "Corp.",
	"Fig.", "fig.", "No.", "Vol.", "pp.", "approx.",
}

var (
	urlPattern     = regexp.MustCompile(`(?:https?://|www\.)[^\s]+`)
	decimalPattern = regexp.MustCompile(`\d+\.\d+`)
	// boundaryPattern matches a sentence terminator followed by whitespace
	// and a capital letter starting the next sentence.
	boundaryPattern = regexp.MustCompile(`[.!?]+\s+[A-Z]`)
	paragraphSplit  = regexp.MustCompile(`\n\s*\n`)
)

// Sentences splits text into sentences, dropping results shorter than
// MinSentenceLength. Empty or whitespace-only input returns nil.
func Sentences(text string) []Sentence {
	return SentencesMin(text, MinSentenceLength)
}

// SentencesMin splits text into sentences with a caller-chosen minimum length.
func SentencesMin(text string, minLength int) []Sentence {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	protected, replacements := protect(text)
	parts := splitBoundaries(protected)

	sentences := make([]Sentence, 0, len(parts))
	for _, part := range parts {
		restored := strings.TrimSpace(restore(part, replacements))
		if len(restored) < minLength {
			continue
		}
		sentences = append(sentences, Sentence{Index: len(sentences), Text: restored})
	}
	return sentences
}

// Chunks splits text into flashcard source chunks. Paragraph breaks are
// preferred; when fewer than three paragraphs are found the split falls
// back to sentences. Chunks shorter than MinChunkLength are dropped.
func Chunks(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	paragraphs := paragraphSplit.Split(text, -1)
	var chunks []string
	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if len(para) >= MinChunkLength {
			chunks = append(chunks, para)
		}
	}
	if len(chunks) >= minParagraphs {
		return chunks
	}

	chunks = chunks[:0]
	for _, s := range SentencesMin(text, MinChunkLength) {
		chunks = append(chunks, s.Text)
	}
	return chunks
}

// protect replaces protected substrings with placeholder tokens so the
// boundary pattern cannot match inside them.
func protect(text string) (string, []string) {
	var replacements []string
	sub := func(match string) string {
		token := fmt.Sprintf("\x00%d\x00", len(replacements))
		replacements = append(replacements, match)
		return token
	}

	text = urlPattern.ReplaceAllStringFunc(text, sub)
	text = decimalPattern.ReplaceAllStringFunc(text, sub)
	for _, abbr := range protectedAbbreviations {
		for strings.Contains(text, abbr) {
			text = strings.Replace(text, abbr, sub(abbr), 1)
		}
	}
	return text, replacements
}

// restore swaps placeholder tokens back for their original substrings.
func restore(text string, replacements []string) string {
	for i := len(replacements) - 1; i >= 0; i-- {
		token := fmt.Sprintf("\x00%d\x00", i)
		text = strings.ReplaceAll(text, token, replacements[i])
	}
	return text
}

// splitBoundaries splits on terminator+whitespace+capital, keeping the
// terminator with the left part and the capital with the right part.
func splitBoundaries(text string) []string {
	locs := boundaryPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}

	var parts []string
	start := 0
	for _, loc := range locs {
		// The matched span ends with the capital letter of the next
		// sentence; the cut point is just before it.
		cut := loc[1] - 1
		parts = append(parts, text[start:cut])
		start = cut
	}
	parts = append(parts, text[start:])
	return parts
}
