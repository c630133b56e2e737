package markdown

import "log/slog"

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) { c.logger = l }
}

// WithWikirefResolver sets how `[[Name]]` tokens become links.
func WithWikirefResolver(r WikirefResolver) Option {
	return func(c *Compiler) { c.resolver = r }
}

// WithDiagramConfig configures the bpmn directive.
func WithDiagramConfig(cfg DiagramConfig) Option {
	return func(c *Compiler) { c.diagram = cfg }
}

// WithRenderCache sets the diagram render cache.
func WithRenderCache(cache RenderCache) Option {
	return func(c *Compiler) { c.cache = cache }
}

// WithDirectiveHandlers registers extra handlers. They run after the
// built-in bpmn and openapi handlers and before the generic fallback.
func WithDirectiveHandlers(h ...DirectiveHandler) Option {
	return func(c *Compiler) { c.extra = append(c.extra, h...) }
}

// WithTOCSkipLevels sets the heading levels left out of the table of
// contents.
func WithTOCSkipLevels(levels ...int) Option {
	return func(c *Compiler) { c.tocSkip = levels }
}
