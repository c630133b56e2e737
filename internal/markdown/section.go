package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

type sectionTransformer struct{}

// Transform wraps each heading and the siblings that follow it, up to the
// next heading of the same or higher rank, in a Section. Deeper levels are
// wrapped first so sections nest.
func (t *sectionTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	for level := 6; level >= 1; level-- {
		var headings []*ast.Heading
		_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			if h, ok := n.(*ast.Heading); ok && h.Level == level {
				headings = append(headings, h)
			}
			return ast.WalkContinue, nil
		})
		for _, h := range headings {
			wrapSection(h)
		}
	}
}

func wrapSection(h *ast.Heading) {
	parent := h.Parent()
	if parent == nil {
		return
	}
	section := &Section{Level: h.Level}
	section.SetBlankPreviousLines(h.HasBlankPreviousLines())
	parent.InsertBefore(parent, h, section)
	for n := ast.Node(h); n != nil; {
		if n != ast.Node(h) {
			if other, ok := n.(*ast.Heading); ok && other.Level <= h.Level {
				break
			}
		}
		next := n.NextSibling()
		section.AppendChild(section, n)
		n = next
	}
}
