//go:build cgo

package docextract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// tsKinds maps documentable tree-sitter node types to record kinds.
var tsKinds = map[string]string{
	"function_declaration":           "FunctionDeclaration",
	"generator_function_declaration": "FunctionDeclaration",
	"class_declaration":              "ClassDeclaration",
	"abstract_class_declaration":     "ClassDeclaration",
	"method_definition":              "MethodDeclaration",
	"interface_declaration":          "InterfaceDeclaration",
	"type_alias_declaration":         "TypeAliasDeclaration",
	"property_signature":             "PropertySignature",
	"public_field_definition":        "PropertyDeclaration",
}

// TypeScript extracts JSDoc-documented declarations with tree-sitter.
type TypeScript struct {
	logger *slog.Logger
}

// NewTypeScript returns a TypeScript extractor.
func NewTypeScript(logger *slog.Logger) *TypeScript {
	if logger == nil {
		logger = slog.Default()
	}
	return &TypeScript{logger: logger}
}

// Extract implements Extractor.
func (e *TypeScript) Extract(ctx context.Context, path string) []ExtractedDoc {
	src, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("typescript extract: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	docs, err := e.ExtractSource(ctx, path, src)
	if err != nil {
		e.logger.Warn("typescript extract: parse failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	return docs
}

// ExtractSource parses src and returns its documented declarations in
// source order, outer declarations before the ones nested in them.
func (e *TypeScript) ExtractSource(ctx context.Context, path string, src []byte) ([]ExtractedDoc, error) {
	// sitter.Parser is not safe for concurrent use.
	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("docextract: parse %s: %w", path, err)
	}
	root := tree.RootNode()

	var docs []ExtractedDoc
	if doc, ok := fileHeader(root, src, path); ok {
		docs = append(docs, doc)
	}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if kind, ok := tsKinds[n.Type()]; ok {
			if doc, ok := declarationDoc(n, kind, src, path); ok {
				docs = append(docs, doc)
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return docs, nil
}

func declarationDoc(n *sitter.Node, kind string, src []byte, path string) (ExtractedDoc, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return ExtractedDoc{}, false
	}
	name := nameNode.Content(src)
	if name == "" {
		return ExtractedDoc{}, false
	}

	anchor := n
	if p := n.Parent(); p != nil && p.Type() == "export_statement" {
		anchor = p
	}
	comments := leadingComments(anchor, src)

	var js *JSDoc
	uuid := ""
	for _, c := range comments {
		if IsJSDoc(c) {
			parsed := ParseJSDoc(c)
			js = &parsed
		} else if id := FindUUID(c); id != "" {
			uuid = id
		}
	}
	if js != nil {
		if id := js.UUID(); id != "" {
			uuid = id
		}
	}
	if js == nil && uuid == "" {
		return ExtractedDoc{}, false
	}

	doc := ExtractedDoc{
		Name:     name,
		Kind:     kind,
		FilePath: path,
		UUID:     uuid,
	}
	if js != nil {
		doc.Documentation = js.Documentation()
		if len(js.Tags) > 0 {
			doc.Tags = js.Tags
		}
	}
	if kind == "FunctionDeclaration" || kind == "MethodDeclaration" {
		doc.CodeInfo = codeInfo(n, src, js)
	}
	return doc, true
}

// leadingComments returns the comments directly preceding n, in order.
func leadingComments(n *sitter.Node, src []byte) []string {
	var out []string
	for p := n.PrevSibling(); p != nil && p.Type() == "comment"; p = p.PrevSibling() {
		out = append([]string{p.Content(src)}, out...)
	}
	return out
}

func codeInfo(n *sitter.Node, src []byte, js *JSDoc) *CodeInfo {
	start := n.StartPoint()
	info := &CodeInfo{
		Line:       int(start.Row) + 1,
		Column:     int(start.Column) + 1,
		Parameters: []Parameter{},
	}
	descs := map[string]Parameter{}
	if js != nil {
		for _, p := range js.Params {
			descs[p.Name] = p
		}
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if p.Type() != "required_parameter" && p.Type() != "optional_parameter" {
				continue
			}
			pattern := p.ChildByFieldName("pattern")
			if pattern == nil {
				continue
			}
			param := Parameter{Name: pattern.Content(src)}
			if t := p.ChildByFieldName("type"); t != nil {
				param.Type = typeText(t, src)
			}
			if d, ok := descs[param.Name]; ok {
				param.Description = d.Description
				if param.Type == "" {
					param.Type = d.Type
				}
			}
			info.Parameters = append(info.Parameters, param)
		}
	}

	var ret Returns
	if t := n.ChildByFieldName("return_type"); t != nil {
		ret.Type = typeText(t, src)
	}
	if js != nil && js.Returns != nil {
		ret.Description = js.Returns.Description
		if ret.Type == "" {
			ret.Type = js.Returns.Type
		}
	}
	if ret.Type != "" || ret.Description != "" {
		info.Returns = &ret
	}
	return info
}

// typeText returns a type annotation without its leading colon.
func typeText(n *sitter.Node, src []byte) string {
	return strings.TrimSpace(strings.TrimPrefix(n.Content(src), ":"))
}

// fileHeader reports a leading file comment carrying a UUID that is not the
// doc comment of the first declaration.
func fileHeader(root *sitter.Node, src []byte, path string) (ExtractedDoc, bool) {
	if root.ChildCount() == 0 {
		return ExtractedDoc{}, false
	}
	first := root.Child(0)
	if first.Type() != "comment" {
		return ExtractedDoc{}, false
	}
	text := first.Content(src)
	var uuid, documentation string
	if IsJSDoc(text) {
		js := ParseJSDoc(text)
		uuid, documentation = js.UUID(), js.Documentation()
	} else {
		uuid = FindUUID(text)
	}
	if uuid == "" {
		return ExtractedDoc{}, false
	}
	if next := first.NextSibling(); next != nil && next.StartPoint().Row <= first.EndPoint().Row+1 && documents(next) {
		return ExtractedDoc{}, false
	}
	return ExtractedDoc{
		Name:          filepath.Base(path),
		Kind:          "file",
		Documentation: documentation,
		FilePath:      path,
		UUID:          uuid,
	}, true
}

// documents reports whether a leading comment on n would be read as n's
// documentation.
func documents(n *sitter.Node) bool {
	if _, ok := tsKinds[n.Type()]; ok {
		return true
	}
	if n.Type() == "export_statement" {
		if d := n.ChildByFieldName("declaration"); d != nil {
			_, ok := tsKinds[d.Type()]
			return ok
		}
	}
	return false
}
