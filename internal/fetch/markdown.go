package fetch

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New().Parser()

// extractMarkdown returns the first top-level heading (h1 preferred) and the
// document's text with markup removed.
func extractMarkdown(src []byte) (string, string) {
	doc := markdownParser.Parse(text.NewReader(src))

	var title string
	titleLevel := 7
	var b strings.Builder

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level < titleLevel {
				title = inlineText(node, src)
				titleLevel = node.Level
			}
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.HardLineBreak() {
				b.WriteString("\n")
			} else if node.SoftLineBreak() {
				b.WriteString(" ")
			}
		case *ast.AutoLink:
			b.Write(node.Label(src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			writeLines(&b, n, src)
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return title, cleanText(b.String())
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteString(" ")
			}
		case *ast.AutoLink:
			b.Write(t.Label(src))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func writeLines(b *strings.Builder, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
}
