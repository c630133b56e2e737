package markdown

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// DirectiveHandler rewrites directive nodes. Each registered handler runs as
// its own AST transform stage, in registration order.
type DirectiveHandler interface {
	// Name is the directive name handled, or "" to handle every directive
	// still present in the tree.
	Name() string
	// Handle returns the node that replaces d, or nil to leave d in place.
	// A returned error aborts the compile.
	Handle(hc *HandleContext, d Directive) (ast.Node, error)
}

// HandleContext carries per-compile state to directive handlers.
type HandleContext struct {
	Ctx    context.Context
	Path   string
	Source []byte
	Logger *slog.Logger
}

var compileStateKey = parser.NewContextKey()

// compileState is stored in the parser.Context for the duration of one
// Compile call.
type compileState struct {
	hc  HandleContext
	toc []TOCEntry
	err error
}

func stateOf(pc parser.Context) *compileState {
	st, _ := pc.Get(compileStateKey).(*compileState)
	return st
}

type directiveTransformer struct {
	handler DirectiveHandler
}

func (t *directiveTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	st := stateOf(pc)
	if st == nil || st.err != nil {
		return
	}
	name := t.handler.Name()

	var targets []Directive
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if d, ok := n.(Directive); ok && (name == "" || d.Info().Name == name) {
			targets = append(targets, d)
		}
		return ast.WalkContinue, nil
	})

	hc := st.hc
	hc.Source = reader.Source()
	for _, d := range targets {
		if !attached(doc, d) {
			continue
		}
		if err := hc.Ctx.Err(); err != nil {
			st.err = err
			return
		}
		repl, err := t.handler.Handle(&hc, d)
		if err != nil {
			st.err = fmt.Errorf("directive %q: %w", d.Info().Name, err)
			return
		}
		if repl == nil || repl == ast.Node(d) {
			continue
		}
		parent := d.Parent()
		parent.ReplaceChild(parent, d, repl)
	}
}

// attached reports whether n is still reachable from doc.
func attached(doc ast.Node, n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p == doc {
			return true
		}
	}
	return false
}
