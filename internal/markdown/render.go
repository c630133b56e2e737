package markdown

import (
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// codeLanguages expands fence info shorthands into display names.
var codeLanguages = map[string]string{
	"ts":   "typescript",
	"js":   "javascript",
	"py":   "python",
	"sh":   "bash",
	"md":   "markdown",
	"yml":  "YAML",
	"yaml": "YAML",
	"json": "JSON",
	"html": "HTML",
	"css":  "CSS",
	"scss": "SCSS",
	"toml": "TOML",
	"cpp":  "C++",
	"cs":   "C#",
	"asm":  "assembly",
}

// LanguageName returns the display name for a fenced code language.
func LanguageName(lang string) string {
	if name, ok := codeLanguages[strings.ToLower(lang)]; ok {
		return name
	}
	return lang
}

type nodeRenderer struct {
	writer html.Writer
}

func newNodeRenderer() renderer.NodeRenderer {
	return &nodeRenderer{writer: html.DefaultWriter}
}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindSection, r.renderSection)
	reg.Register(KindHTMLFragment, r.renderFragment)
	reg.Register(KindElementBlock, r.renderElementBlock)
	reg.Register(KindElementInline, r.renderElementInline)
	reg.Register(KindDirectiveBlock, r.renderDirectiveBlock)
	reg.Register(KindDirectiveInline, r.renderDirectiveInline)
	reg.Register(ast.KindHeading, r.renderHeading)
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *nodeRenderer) renderSection(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<section>\n")
	} else {
		_, _ = w.WriteString("</section>\n")
	}
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderFragment(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(node.(*HTMLFragment).HTML)
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}

func (r *nodeRenderer) renderElementBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ElementBlock)
	if entering {
		openTag(w, n.Tag, n)
		if n.HasChildren() && n.FirstChild().Type() == ast.TypeBlock {
			_ = w.WriteByte('\n')
		}
	} else {
		closeTag(w, n.Tag)
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderElementInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ElementInline)
	if entering {
		openTag(w, n.Tag, n)
	} else {
		closeTag(w, n.Tag)
	}
	return ast.WalkContinue, nil
}

// Directives left in the tree when no handler claimed them render as plain
// elements.
func (r *nodeRenderer) renderDirectiveBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*DirectiveBlock)
	if entering {
		_, _ = w.WriteString("<div")
		writeAttrMap(w, n.Attrs)
		_ = w.WriteByte('>')
		if n.Form == ContainerDirective {
			_ = w.WriteByte('\n')
		}
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderDirectiveInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*DirectiveInline)
	if entering {
		_, _ = w.WriteString("<span")
		writeAttrMap(w, n.Attrs)
		_ = w.WriteByte('>')
	} else {
		_, _ = w.WriteString("</span>")
	}
	return ast.WalkContinue, nil
}

// renderHeading wraps the heading content in a link to its own id.
func (r *nodeRenderer) renderHeading(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Heading)
	id, hasID := headingID(n)
	if entering {
		_, _ = w.WriteString("<h")
		_ = w.WriteByte("0123456"[n.Level])
		if n.Attributes() != nil {
			html.RenderAttributes(w, node, html.HeadingAttributeFilter)
		}
		_ = w.WriteByte('>')
		if hasID {
			_, _ = w.WriteString(`<a href="#`)
			_, _ = w.Write(util.EscapeHTML(id))
			_, _ = w.WriteString(`">`)
		}
	} else {
		if hasID {
			_, _ = w.WriteString("</a>")
		}
		_, _ = w.WriteString("</h")
		_ = w.WriteByte("0123456"[n.Level])
		_, _ = w.WriteString(">\n")
	}
	return ast.WalkContinue, nil
}

func headingID(n *ast.Heading) ([]byte, bool) {
	v, ok := n.AttributeString("id")
	if !ok {
		return nil, false
	}
	id, ok := v.([]byte)
	return id, ok && len(id) > 0
}

// renderFencedCodeBlock adds data-language with the expanded language name.
func (r *nodeRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.FencedCodeBlock)
	if !entering {
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkContinue, nil
	}
	lang := n.Language(source)
	_, _ = w.WriteString("<pre")
	if lang != nil {
		_, _ = w.WriteString(` data-language="`)
		r.writer.Write(w, []byte(LanguageName(string(lang))))
		_ = w.WriteByte('"')
	}
	_, _ = w.WriteString("><code")
	if lang != nil {
		_, _ = w.WriteString(` class="language-`)
		r.writer.Write(w, lang)
		_ = w.WriteByte('"')
	}
	_ = w.WriteByte('>')
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		r.writer.RawWrite(w, line.Value(source))
	}
	return ast.WalkContinue, nil
}

func openTag(w util.BufWriter, tag string, n ast.Node) {
	_ = w.WriteByte('<')
	_, _ = w.WriteString(tag)
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, nil)
	}
	_ = w.WriteByte('>')
}

func closeTag(w util.BufWriter, tag string) {
	_, _ = w.WriteString("</")
	_, _ = w.WriteString(tag)
	_ = w.WriteByte('>')
}

func writeAttrMap(w util.BufWriter, attrs map[string]string) {
	if len(attrs) == 0 {
		return
	}
	tmp := ast.NewParagraph()
	setAttributes(tmp, attrs)
	html.RenderAttributes(w, tmp, nil)
}
