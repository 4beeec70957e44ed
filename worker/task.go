package worker

import (
	"strings"

	enginerrors "github.com/notewise/textengine/internal/errors"
	"github.com/notewise/textengine/segment"
)

const (
	// DefaultMaxLength is the summary character budget when unset.
	DefaultMaxLength = 200
	// DefaultMaxCards is the deck size bound when unset.
	DefaultMaxCards = 20
)

// SummarizeTask describes one summarization run. Immutable once submitted.
type SummarizeTask struct {
	ID        string    `json:"id"`
	Content   string    `json:"content,omitempty"`
	Blocks    []string  `json:"blocks,omitempty"`
	Algorithm Algorithm `json:"algorithm"`
	MaxLength int       `json:"maxLength"`
	CacheKey  string    `json:"cacheKey,omitempty"`
}

// GenerateTask describes one flashcard generation run. Immutable once
// submitted.
type GenerateTask struct {
	ID          string    `json:"id"`
	Content     string    `json:"content,omitempty"`
	Blocks      []string  `json:"blocks,omitempty"`
	Algorithm   Algorithm `json:"algorithm"`
	MaxCards    int       `json:"maxCards"`
	CacheKey    string    `json:"cacheKey,omitempty"`
	FocusTopics []string  `json:"focusTopics,omitempty"`
	// Difficulty forces every card to a fixed difficulty when non-empty.
	Difficulty string `json:"difficulty,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

func (t *SummarizeTask) validate() error {
	if t.ID == "" {
		return enginerrors.InvalidArgument("task id is required")
	}
	if strings.TrimSpace(t.Content) == "" && len(t.Blocks) == 0 {
		return enginerrors.InvalidArgument("task has no content")
	}
	if t.MaxLength <= 0 {
		t.MaxLength = DefaultMaxLength
	}
	if t.Algorithm == "" {
		t.Algorithm = AlgorithmTFIDF
	}
	switch t.Algorithm {
	case AlgorithmBERT, AlgorithmTFIDF, AlgorithmLeadFirst, AlgorithmNLP:
	default:
		return enginerrors.InvalidArgument("unknown algorithm %q", t.Algorithm)
	}
	return nil
}

func (t *GenerateTask) validate() error {
	if t.ID == "" {
		return enginerrors.InvalidArgument("task id is required")
	}
	if strings.TrimSpace(t.Content) == "" && len(t.Blocks) == 0 {
		return enginerrors.InvalidArgument("task has no content")
	}
	if t.MaxCards <= 0 {
		t.MaxCards = DefaultMaxCards
	}
	if t.Algorithm == "" {
		t.Algorithm = AlgorithmTFIDF
	}
	switch t.Algorithm {
	case AlgorithmBERT, AlgorithmTFIDF, AlgorithmLeadFirst, AlgorithmNLP:
	default:
		return enginerrors.InvalidArgument("unknown algorithm %q", t.Algorithm)
	}
	return nil
}

// text resolves the task input: raw content as-is, markdown blocks
// rendered to plain text.
func taskText(content string, blocks []string) string {
	if strings.TrimSpace(content) != "" {
		return content
	}
	return segment.JoinBlocks(blocks)
}
