package markdown

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// TOCEntry is one heading in a document's table of contents.
type TOCEntry struct {
	Value     string `json:"value"`
	Href      string `json:"href"`
	Depth     int    `json:"depth"`
	Numbering []int  `json:"numbering"`
	// Parent is the kind of container the heading sits in, ignoring
	// sections: root, blockquote, listItem or directive.
	Parent string `json:"parent"`
}

// DefaultTOCSkipLevels are heading levels left out of the table of contents.
var DefaultTOCSkipLevels = []int{1}

type tocTransformer struct {
	skip map[int]bool
}

func newTOCTransformer(skipLevels []int) *tocTransformer {
	skip := make(map[int]bool, len(skipLevels))
	for _, l := range skipLevels {
		skip[l] = true
	}
	return &tocTransformer{skip: skip}
}

func (t *tocTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	st := stateOf(pc)
	if st == nil {
		return
	}
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && !t.skip[h.Level] {
			headings = append(headings, h)
		}
		return ast.WalkContinue, nil
	})

	top := 7
	for _, h := range headings {
		top = min(top, h.Level)
	}
	var counters [7]int
	toc := make([]TOCEntry, 0, len(headings))
	for _, h := range headings {
		counters[h.Level]++
		for l := h.Level + 1; l < len(counters); l++ {
			counters[l] = 0
		}
		numbering := make([]int, 0, h.Level-top+1)
		for l := top; l <= h.Level; l++ {
			numbering = append(numbering, counters[l])
		}
		entry := TOCEntry{
			Value:     plainText(h, reader.Source()),
			Depth:     h.Level,
			Numbering: numbering,
			Parent:    parentKind(h),
		}
		if id, ok := h.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				entry.Href = "#" + string(b)
			}
		}
		toc = append(toc, entry)
	}
	st.toc = toc
}

func parentKind(n ast.Node) string {
	p := n.Parent()
	for p != nil && p.Kind() == KindSection {
		p = p.Parent()
	}
	if p == nil {
		return "root"
	}
	switch p.Kind() {
	case ast.KindDocument:
		return "root"
	case ast.KindBlockquote:
		return "blockquote"
	case ast.KindListItem:
		return "listItem"
	case KindDirectiveBlock, KindElementBlock:
		return "directive"
	default:
		return p.Kind().String()
	}
}
