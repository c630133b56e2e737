package markdown

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// Diagram defaults.
const (
	DefaultMaxDiagramSize int64 = 5 * 1024 * 1024
	DefaultDiagramWidth         = 800
	DefaultDiagramHeight        = 600
)

// DefaultDiagramClasses are always present on a rendered diagram container.
var DefaultDiagramClasses = []string{"bpmn-diagram", "ornl-theme"}

// DiagramConfig configures the bpmn directive.
type DiagramConfig struct {
	// BaseDir resolves relative src attributes. Empty means the directory of
	// the document being compiled.
	BaseDir     string
	MaxFileSize int64
	// NoFallback makes diagram failures abort the compile instead of
	// rendering an inline error block.
	NoFallback bool
	Width      int
	Height     int
	Classes    []string
}

func (c DiagramConfig) withDefaults() DiagramConfig {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxDiagramSize
	}
	if c.Width <= 0 {
		c.Width = DefaultDiagramWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultDiagramHeight
	}
	if len(c.Classes) == 0 {
		c.Classes = DefaultDiagramClasses
	}
	return c
}

// DiagramHandler renders `::bpmn{src=...}` and `:::bpmn{src=...}` directives
// as inline SVG.
type DiagramHandler struct {
	cfg    DiagramConfig
	cache  RenderCache
	logger *slog.Logger
}

// NewDiagramHandler returns a handler for the bpmn directive. A nil cache
// disables caching.
func NewDiagramHandler(cfg DiagramConfig, cache RenderCache, logger *slog.Logger) *DiagramHandler {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagramHandler{cfg: cfg.withDefaults(), cache: cache, logger: logger}
}

// Name implements DirectiveHandler.
func (h *DiagramHandler) Name() string { return "bpmn" }

// Handle implements DirectiveHandler.
func (h *DiagramHandler) Handle(hc *HandleContext, d Directive) (ast.Node, error) {
	info := d.Info()
	if info.Form == TextDirective {
		return nil, nil
	}
	src := info.Attrs["src"]
	if src == "" {
		return h.fail(hc, errors.New(`BPMN directive missing required "src" attribute`))
	}
	diagram, err := h.load(hc, src)
	if err != nil {
		return h.fail(hc, fmt.Errorf("Failed to process BPMN file %q: %w", src, err))
	}
	return NewHTMLFragment(h.container(diagram, info.Attrs)), nil
}

func (h *DiagramHandler) fail(hc *HandleContext, err error) (ast.Node, error) {
	if h.cfg.NoFallback {
		return nil, err
	}
	h.logger.Warn("bpmn directive failed",
		slog.String("path", hc.Path),
		slog.String("error", err.Error()),
	)
	return NewHTMLFragment(DiagramErrorHTML(err.Error())), nil
}

func (h *DiagramHandler) resolve(hc *HandleContext, src string) (string, error) {
	if filepath.IsAbs(src) {
		return filepath.Clean(src), nil
	}
	base := h.cfg.BaseDir
	if base == "" && hc.Path != "" {
		base = filepath.Dir(hc.Path)
	}
	return filepath.Abs(filepath.Join(base, filepath.FromSlash(src)))
}

func (h *DiagramHandler) load(hc *HandleContext, src string) (*Diagram, error) {
	abs, err := h.resolve(hc, src)
	if err != nil {
		return nil, err
	}
	if d, ok := h.cache.Get(abs); ok {
		return d, nil
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if info.Size() > h.cfg.MaxFileSize {
		return nil, fmt.Errorf("File too large: %d bytes (max: %d)", info.Size(), h.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	d, err := ParseBPMN(data)
	if err != nil {
		return nil, err
	}
	h.cache.Put(abs, d)
	return d, nil
}

func (h *DiagramHandler) container(d *Diagram, attrs map[string]string) string {
	classes := append([]string{}, h.cfg.Classes...)
	classes = append(classes, strings.Fields(attrs["class"])...)

	width, height := h.cfg.Width, h.cfg.Height
	var style []string
	if v, ok := pixels(attrs["width"]); ok {
		width = v
		style = append(style, "width: "+strconv.Itoa(v)+"px")
	}
	if v, ok := pixels(attrs["height"]); ok {
		height = v
		style = append(style, "height: "+strconv.Itoa(v)+"px")
	}
	zoom := 1.0
	if z, err := strconv.ParseFloat(attrs["zoom"], 64); err == nil && z > 0 {
		zoom = z
	}

	var b strings.Builder
	b.WriteString(`<div class="`)
	b.WriteString(html.EscapeString(strings.Join(classes, " ")))
	b.WriteString(`" data-bpmn-diagram="true"`)
	if len(style) > 0 {
		b.WriteString(` style="`)
		b.WriteString(strings.Join(style, "; "))
		b.WriteString(`;"`)
	}
	b.WriteString(`><div class="bpmn-svg-container">`)
	b.WriteString(d.SVG(width, height, zoom))
	b.WriteString(`</div></div>`)
	return b.String()
}

func pixels(v string) (int, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// DiagramErrorHTML is the inline block shown in place of a diagram that
// could not be rendered.
func DiagramErrorHTML(msg string) string {
	return `<div class="bpmn-error ornl-theme"><div class="error-icon">⚠️</div>` +
		`<p class="error-message">Failed to load BPMN diagram</p>` +
		`<p class="error-details">` + html.EscapeString(msg) + `</p></div>`
}
