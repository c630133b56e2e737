// Package markdown compiles markdown documents with directive, wikiref and
// diagram extensions to HTML plus metadata.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/intersect-sdl/sdl-doc-gen/internal/frontmatter"
)

// Result is a compiled document.
type Result struct {
	Code string         `json:"code"`
	Data map[string]any `json:"data"`
}

// Compiler turns markdown source into a Result. It is safe for concurrent
// use.
type Compiler struct {
	logger   *slog.Logger
	resolver WikirefResolver
	diagram  DiagramConfig
	cache    RenderCache
	extra    []DirectiveHandler
	tocSkip  []int

	handlers []DirectiveHandler
	md       goldmark.Markdown
}

// New builds a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{tocSkip: DefaultTOCSkipLevels}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.resolver == nil {
		c.resolver = DefaultWikirefResolver
	}
	if c.cache == nil {
		c.cache = NewTTLCache(DefaultCacheTTL)
	}

	c.handlers = append(c.handlers, NewDiagramHandler(c.diagram, c.cache, c.logger), OpenAPIHandler{})
	c.handlers = append(c.handlers, c.extra...)
	c.handlers = append(c.handlers, GenericHandler{})

	transformers := []util.PrioritizedValue{
		util.Prioritized(&sectionTransformer{}, 100),
	}
	for i, h := range c.handlers {
		transformers = append(transformers, util.Prioritized(&directiveTransformer{handler: h}, 200+i))
	}
	transformers = append(transformers, util.Prioritized(newTOCTransformer(c.tocSkip), 900))

	c.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.DefinitionList),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithBlockParsers(util.Prioritized(NewDirectiveBlockParser(), 50)),
			parser.WithInlineParsers(
				util.Prioritized(NewDirectiveInlineParser(), 150),
				util.Prioritized(NewWikirefParser(c.resolver), 199),
			),
			parser.WithASTTransformers(transformers...),
		),
		goldmark.WithRendererOptions(
			html.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(newNodeRenderer(), 100)),
		),
	)
	return c
}

// Cache returns the diagram render cache.
func (c *Compiler) Cache() RenderCache {
	return c.cache
}

// Compile parses source, runs every transform stage and renders HTML. path
// is used for error messages and to resolve relative diagram sources.
// Data holds the frontmatter attributes plus "toc".
func (c *Compiler) Compile(ctx context.Context, source []byte, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("markdown: compile %s: %w", path, err)
	}
	attrs, body := frontmatter.Extract(source)

	st := &compileState{hc: HandleContext{Ctx: ctx, Path: path, Logger: c.logger}}
	pc := parser.NewContext()
	pc.Set(compileStateKey, st)
	doc := c.md.Parser().Parse(text.NewReader(body), parser.WithContext(pc))
	if st.err != nil {
		return nil, fmt.Errorf("markdown: compile %s: %w", path, st.err)
	}

	var buf bytes.Buffer
	if err := c.md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("markdown: compile %s: %w", path, err)
	}

	data := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		data[k] = v
	}
	toc := st.toc
	if toc == nil {
		toc = []TOCEntry{}
	}
	data["toc"] = toc
	return &Result{Code: buf.String(), Data: data}, nil
}
