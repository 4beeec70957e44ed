package segment

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// StripMarkdown renders markdown note content down to plain text so the
// segmenter never sees heading markers, emphasis or link syntax.
func StripMarkdown(source string) string {
	src := []byte(source)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.AutoLink:
			buf.Write(node.URL(src))
		case *ast.CodeSpan:
			// Inline code is kept; its children are Text nodes.
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			// Code and raw HTML carry no prose worth analyzing.
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	out := blankRuns.ReplaceAllString(buf.String(), "\n\n")
	return strings.TrimSpace(out)
}

// JoinBlocks renders a slice of markdown blocks into one plain-text document
// with paragraph boundaries between blocks.
func JoinBlocks(blocks []string) string {
	parts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		plain := StripMarkdown(block)
		if plain != "" {
			parts = append(parts, plain)
		}
	}
	return strings.Join(parts, "\n\n")
}
