package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentences_BasicSplit(t *testing.T) {
	text := "Dogs are mammals. Cats are mammals too. Mammals are warm-blooded."
	sentences := Sentences(text)

	require.Len(t, sentences, 3)
	assert.Equal(t, "Dogs are mammals.", sentences[0].Text)
	assert.Equal(t, "Cats are mammals too.", sentences[1].Text)
	assert.Equal(t, "Mammals are warm-blooded.", sentences[2].Text)

	for i, s := range sentences {
		assert.Equal(t, i, s.Index)
	}
}

func TestSentences_EmptyInput(t *testing.T) {
	assert.Nil(t, Sentences(""))
	assert.Nil(t, Sentences("   \n\t  "))
}

func TestSentences_ShortInputDropped(t *testing.T) {
	// Shorter than MinSentenceLength.
	assert.Empty(t, Sentences("Hi. Ok."))
}

func TestSentences_SingleSentence(t *testing.T) {
	text := "Photosynthesis converts light into chemical energy"
	sentences := Sentences(text)

	require.Len(t, sentences, 1)
	assert.Equal(t, text, sentences[0].Text)
}

func TestSentences_ProtectedAbbreviations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "title abbreviation",
			text: "Dr. Smith studies biology. He works at the lab.",
			want: 2,
		},
		{
			name: "latin abbreviations",
			text: "Some mammals, e.g. whales, live in water. Others live on land.",
			want: 2,
		},
		{
			name: "company suffix",
			text: "Acme Inc. builds rockets for fun. Nobody was surprised.",
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentences := Sentences(tt.text)
			assert.Len(t, sentences, tt.want)
			// The abbreviation must survive intact in the output.
			joined := ""
			for _, s := range sentences {
				joined += s.Text + " "
			}
			assert.NotContains(t, joined, "\x00")
		})
	}
}

func TestSentences_DecimalsAndURLs(t *testing.T) {
	text := "The value of pi is roughly 3.14 in most uses. See https://example.com/pi for more. That is all."
	sentences := Sentences(text)

	require.Len(t, sentences, 3)
	assert.Contains(t, sentences[0].Text, "3.14")
	assert.Contains(t, sentences[1].Text, "https://example.com/pi")
}

func TestChunks_PreferParagraphs(t *testing.T) {
	text := strings.Join([]string{
		"The mitochondria is the powerhouse of the cell.",
		"Photosynthesis is the process plants use to make energy.",
		"Evolution describes change in heritable traits over generations.",
	}, "\n\n")

	chunks := Chunks(text)
	require.Len(t, chunks, 3)
	assert.Contains(t, chunks[0], "mitochondria")
}

func TestChunks_FallbackToSentences(t *testing.T) {
	// Single paragraph, multiple sentences: fewer than three paragraphs
	// forces the sentence fallback.
	text := "The mitochondria is the powerhouse of the cell. Photosynthesis is how plants make energy. Evolution describes heritable change."
	chunks := Chunks(text)

	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c), MinChunkLength)
	}
}

func TestChunks_Empty(t *testing.T) {
	assert.Nil(t, Chunks(""))
}

func TestStripMarkdown(t *testing.T) {
	md := "# Biology Notes\n\nPhotosynthesis is the process by which plants convert light into energy.\n\n- first item here\n- second item here\n\n[link text](https://example.com)"
	plain := StripMarkdown(md)

	assert.NotContains(t, plain, "#")
	assert.NotContains(t, plain, "](")
	assert.Contains(t, plain, "Photosynthesis is the process")
	assert.Contains(t, plain, "link text")
}

func TestJoinBlocks(t *testing.T) {
	blocks := []string{"# Heading", "First paragraph of content.", "", "Second paragraph of content."}
	joined := JoinBlocks(blocks)

	assert.Contains(t, joined, "First paragraph of content.")
	assert.Contains(t, joined, "Second paragraph of content.")
	assert.NotContains(t, joined, "#")
}
