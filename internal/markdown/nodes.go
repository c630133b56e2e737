package markdown

import (
	"sort"

	"github.com/yuin/goldmark/ast"
)

// DirectiveType distinguishes the three directive syntaxes.
type DirectiveType int

// Directive syntaxes.
const (
	TextDirective      DirectiveType = iota // :name[label]{attrs}
	LeafDirective                           // ::name[label]{attrs}
	ContainerDirective                      // :::name{attrs} ... :::
)

func (t DirectiveType) String() string {
	switch t {
	case TextDirective:
		return "textDirective"
	case LeafDirective:
		return "leafDirective"
	case ContainerDirective:
		return "containerDirective"
	default:
		return "unknownDirective"
	}
}

// DirectiveInfo is the part of a directive node handlers care about.
type DirectiveInfo struct {
	Form  DirectiveType
	Name  string
	Attrs map[string]string
}

// Directive is implemented by both directive node kinds.
type Directive interface {
	ast.Node
	Info() *DirectiveInfo
}

// KindDirectiveBlock is the NodeKind of leaf and container directives.
var KindDirectiveBlock = ast.NewNodeKind("DirectiveBlock")

// DirectiveBlock is a leaf or container directive.
type DirectiveBlock struct {
	ast.BaseBlock
	DirectiveInfo
	fence int
}

// Info implements Directive.
func (n *DirectiveBlock) Info() *DirectiveInfo { return &n.DirectiveInfo }

// Kind implements ast.Node.
func (n *DirectiveBlock) Kind() ast.NodeKind { return KindDirectiveBlock }

// Dump implements ast.Node.
func (n *DirectiveBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, dumpAttrs(&n.DirectiveInfo), nil)
}

// KindDirectiveInline is the NodeKind of text directives.
var KindDirectiveInline = ast.NewNodeKind("DirectiveInline")

// DirectiveInline is a text directive.
type DirectiveInline struct {
	ast.BaseInline
	DirectiveInfo
}

// Info implements Directive.
func (n *DirectiveInline) Info() *DirectiveInfo { return &n.DirectiveInfo }

// Kind implements ast.Node.
func (n *DirectiveInline) Kind() ast.NodeKind { return KindDirectiveInline }

// Dump implements ast.Node.
func (n *DirectiveInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, dumpAttrs(&n.DirectiveInfo), nil)
}

func dumpAttrs(d *DirectiveInfo) map[string]string {
	m := map[string]string{"Type": d.Form.String(), "Name": d.Name}
	for k, v := range d.Attrs {
		m["attr."+k] = v
	}
	return m
}

// KindSection is the NodeKind of heading sections.
var KindSection = ast.NewNodeKind("Section")

// Section wraps a heading and the content it governs.
type Section struct {
	ast.BaseBlock
	Level int
}

// Kind implements ast.Node.
func (n *Section) Kind() ast.NodeKind { return KindSection }

// Dump implements ast.Node.
func (n *Section) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// KindElementBlock is the NodeKind of generic block elements.
var KindElementBlock = ast.NewNodeKind("ElementBlock")

// ElementBlock renders as an arbitrary HTML block element.
type ElementBlock struct {
	ast.BaseBlock
	Tag string
}

// Kind implements ast.Node.
func (n *ElementBlock) Kind() ast.NodeKind { return KindElementBlock }

// Dump implements ast.Node.
func (n *ElementBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Tag": n.Tag}, nil)
}

// KindElementInline is the NodeKind of generic inline elements.
var KindElementInline = ast.NewNodeKind("ElementInline")

// ElementInline renders as an arbitrary HTML inline element.
type ElementInline struct {
	ast.BaseInline
	Tag string
}

// Kind implements ast.Node.
func (n *ElementInline) Kind() ast.NodeKind { return KindElementInline }

// Dump implements ast.Node.
func (n *ElementInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Tag": n.Tag}, nil)
}

// KindHTMLFragment is the NodeKind of pre-rendered HTML blocks.
var KindHTMLFragment = ast.NewNodeKind("HTMLFragment")

// HTMLFragment is a block of HTML written to the output verbatim.
type HTMLFragment struct {
	ast.BaseBlock
	HTML string
}

// NewHTMLFragment returns a fragment node holding html.
func NewHTMLFragment(html string) *HTMLFragment {
	return &HTMLFragment{HTML: html}
}

// Kind implements ast.Node.
func (n *HTMLFragment) Kind() ast.NodeKind { return KindHTMLFragment }

// Dump implements ast.Node.
func (n *HTMLFragment) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"HTML": n.HTML}, nil)
}

// setAttributes copies attrs onto n in key order so output is stable.
func setAttributes(n ast.Node, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n.SetAttributeString(k, []byte(attrs[k]))
	}
}

// moveChildren re-parents every child of from onto to, preserving order.
func moveChildren(from, to ast.Node) {
	for c := from.FirstChild(); c != nil; {
		next := c.NextSibling()
		to.AppendChild(to, c)
		c = next
	}
}
