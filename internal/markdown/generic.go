package markdown

import (
	"html"

	"github.com/yuin/goldmark/ast"
)

const (
	noteClasses    = "p-4 gap-3 text-sm bg-primary-50 dark:bg-gray-800 text-primary-800 dark:text-primary-400 rounded-lg"
	rdftermClasses = "mr-1 px-2 py-1 bg-gray-200 rounded-lg"
)

// GenericHandler lowers every remaining directive to a <div> (leaf,
// container) or <span> (text) carrying its attributes, with special forms
// for note containers and rdfterm text directives.
type GenericHandler struct{}

// Name implements DirectiveHandler.
func (GenericHandler) Name() string { return "" }

// Handle implements DirectiveHandler.
func (GenericHandler) Handle(hc *HandleContext, d Directive) (ast.Node, error) {
	info := d.Info()
	switch {
	case info.Name == "note" && info.Form == ContainerDirective:
		el := &ElementBlock{Tag: "div"}
		attrs := cloneAttrs(info.Attrs)
		attrs["class"] = joinClass(noteClasses, attrs["class"])
		attrs["role"] = "alert"
		setAttributes(el, attrs)
		moveChildren(d, el)
		return el, nil
	case info.Name == "rdfterm" && info.Form == TextDirective:
		if term, ok := rdfTerm(d, hc.Source); ok {
			em := ast.NewEmphasis(1)
			em.SetAttributeString("class", []byte(rdftermClasses))
			em.AppendChild(em, ast.NewString([]byte(term)))
			return em, nil
		}
	}

	if info.Form == TextDirective {
		el := &ElementInline{Tag: "span"}
		setAttributes(el, info.Attrs)
		moveChildren(d, el)
		return el, nil
	}
	el := &ElementBlock{Tag: "div"}
	setAttributes(el, info.Attrs)
	moveChildren(d, el)
	return el, nil
}

// rdfTerm reads `:rdfterm[prefix:localname]`, whose label parses as a text
// node followed by a nested `localname` text directive.
func rdfTerm(d Directive, source []byte) (string, bool) {
	if d.ChildCount() != 2 {
		return "", false
	}
	prefix, ok := d.FirstChild().(*ast.Text)
	if !ok {
		return "", false
	}
	local, ok := d.LastChild().(*DirectiveInline)
	if !ok {
		return "", false
	}
	return string(prefix.Segment.Value(source)) + ":" + local.Name, true
}

// OpenAPIHandler embeds an OpenAPI document viewer for `::openapi{src=...}`.
type OpenAPIHandler struct{}

// Name implements DirectiveHandler.
func (OpenAPIHandler) Name() string { return "openapi" }

// Handle implements DirectiveHandler.
func (OpenAPIHandler) Handle(hc *HandleContext, d Directive) (ast.Node, error) {
	if d.Info().Form == TextDirective {
		return nil, nil
	}
	src := d.Info().Attrs["src"]
	if src == "" {
		return nil, nil
	}
	return NewHTMLFragment(OpenAPIEmbed(src)), nil
}

// OpenAPIEmbed returns the iframe markup embedding the spec at specURL.
func OpenAPIEmbed(specURL string) string {
	return "<iframe src='https://redocly.github.io/redoc/?url=" + escapeAttr(specURL) + "' width='100%' height='1000px'></iframe>"
}

func cloneAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs)+2)
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func joinClass(base, extra string) string {
	if extra == "" {
		return base
	}
	return base + " " + extra
}

// plainText returns the concatenated text content of n.
func plainText(n ast.Node, source []byte) string {
	var buf []byte
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf = append(buf, t.Segment.Value(source)...)
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf = append(buf, ' ')
			}
		case *ast.String:
			buf = append(buf, t.Value...)
		case *ast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tt, ok := cc.(*ast.Text); ok {
					buf = append(buf, tt.Segment.Value(source)...)
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return string(buf)
}

// escapeAttr escapes s for use inside a single or double quoted attribute.
func escapeAttr(s string) string {
	return html.EscapeString(s)
}
