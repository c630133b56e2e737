// Package content assembles sites from the configured content roots: page
// lookup by slug, per-site entry lists and the site table of contents.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/intersect-sdl/sdl-doc-gen/internal/apperr"
	"github.com/intersect-sdl/sdl-doc-gen/internal/frontmatter"
	"github.com/intersect-sdl/sdl-doc-gen/internal/markdown"
	"github.com/intersect-sdl/sdl-doc-gen/internal/paths"
	"github.com/intersect-sdl/sdl-doc-gen/internal/storage"
)

// Page is one compiled document.
type Page struct {
	Slug string         `json:"slug"`
	Path string         `json:"path"`
	Code string         `json:"code"`
	Data map[string]any `json:"data"`
}

// Entry identifies one page of a site.
type Entry struct {
	Slug  string `json:"slug"`
	UUID  string `json:"uuid,omitempty"`
	Title string `json:"title,omitempty"`
}

// TOCItem is one page in a site table of contents.
type TOCItem struct {
	Slug        string                 `json:"slug"`
	UUID        string                 `json:"uuid,omitempty"`
	Frontmatter frontmatter.Attributes `json:"frontmatter"`
}

// Loader reads sites from disk. It is safe for concurrent use.
type Loader struct {
	cfg      *paths.Config
	compiler *markdown.Compiler
	logger   *slog.Logger
}

// NewLoader returns a Loader. A nil logger means slog.Default().
func NewLoader(cfg *paths.Config, compiler *markdown.Compiler, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{cfg: cfg, compiler: compiler, logger: logger}
}

// Config returns the content layout.
func (l *Loader) Config() *paths.Config {
	return l.cfg
}

// Sites returns the configured content roots.
func (l *Loader) Sites() []string {
	out := make([]string, len(l.cfg.ContentRoots))
	copy(out, l.cfg.ContentRoots)
	return out
}

func (l *Loader) site(name string) (*storage.FS, error) {
	if !l.cfg.HasContentRoot(name) {
		return nil, fmt.Errorf("content: site %q: %w", name, apperr.ErrNotFound)
	}
	fsys, err := storage.NewFS(l.cfg.ContentRootPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("content: site %q: %w", name, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("content: site %q: %w", name, err)
	}
	return fsys, nil
}

// candidates lists the files that may hold slug, in lookup order.
func candidates(slug string) []string {
	slug = strings.Trim(path.Clean("/"+slug), "/")
	if slug == "" {
		return []string{"index.md", "index.mdx"}
	}
	return []string{slug + ".md", slug + ".mdx", slug + "/index.md"}
}

// Page compiles the page at slug within site. The slug is the site-relative
// path without extension; data gains "slug" and, when declared, "uuid".
// Only files with a configured extension are considered.
func (l *Loader) Page(ctx context.Context, site, slug string) (*Page, error) {
	fsys, err := l.site(site)
	if err != nil {
		return nil, err
	}
	for _, rel := range candidates(slug) {
		if !l.cfg.IsContentFile(rel) {
			continue
		}
		src, err := fsys.Read(rel)
		if err != nil {
			continue
		}
		abs, _ := fsys.Abs(rel)
		return l.compile(ctx, abs, src)
	}
	return nil, fmt.Errorf("content: page %s/%s: %w", site, slug, apperr.ErrNotFound)
}

func (l *Loader) compile(ctx context.Context, abs string, src []byte) (*Page, error) {
	res, err := l.compiler.Compile(ctx, src, abs)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	slug := l.cfg.PathToSlug(abs)
	res.Data["slug"] = slug
	if id, ok := res.Data["uuid"]; ok {
		res.Data["uuid"] = fmt.Sprint(id)
	}
	return &Page{Slug: slug, Path: abs, Code: res.Code, Data: res.Data}, nil
}

type file struct {
	rel   string
	abs   string
	slug  string
	attrs frontmatter.Attributes
}

func (l *Loader) files(site string) ([]file, *storage.FS, error) {
	fsys, err := l.site(site)
	if err != nil {
		return nil, nil, err
	}
	metas, err := fsys.List("", l.cfg.Patterns()...)
	if err != nil {
		return nil, nil, fmt.Errorf("content: list %s: %w", site, err)
	}
	out := make([]file, 0, len(metas))
	for _, m := range metas {
		abs, err := fsys.Abs(m.Path)
		if err != nil {
			continue
		}
		out = append(out, file{rel: m.Path, abs: abs, slug: l.cfg.PathToSlug(abs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].slug < out[j].slug })
	return out, fsys, nil
}

// frontmatters reads the frontmatter of every content file in site. Files
// that cannot be read are logged and skipped.
func (l *Loader) frontmatters(ctx context.Context, site string) ([]file, error) {
	files, fsys, err := l.files(site)
	if err != nil {
		return nil, err
	}
	out := files[:0]
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("content: %s: %w", site, err)
		}
		src, err := fsys.Read(f.rel)
		if err != nil {
			l.logger.Warn("content: read failed", slog.String("path", f.abs), slog.String("error", err.Error()))
			continue
		}
		f.attrs, _ = frontmatter.Extract(src)
		out = append(out, f)
	}
	return out, nil
}

// Entries lists every page of site with its slug and declared UUID, sorted
// by slug.
func (l *Loader) Entries(ctx context.Context, site string) ([]Entry, error) {
	files, err := l.frontmatters(ctx, site)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(files))
	for _, f := range files {
		out = append(out, Entry{Slug: f.slug, UUID: f.attrs.String("uuid"), Title: f.attrs.String("title")})
	}
	return out, nil
}

// SiteTOC returns the frontmatter of every page of site, sorted by slug.
func (l *Loader) SiteTOC(ctx context.Context, site string) ([]TOCItem, error) {
	files, err := l.frontmatters(ctx, site)
	if err != nil {
		return nil, err
	}
	out := make([]TOCItem, 0, len(files))
	for _, f := range files {
		attrs := f.attrs.Clone()
		attrs["slug"] = f.slug
		out = append(out, TOCItem{Slug: f.slug, UUID: attrs.String("uuid"), Frontmatter: attrs})
	}
	return out, nil
}

// Pages compiles every page of site, sorted by slug. A page that fails to
// compile is logged and left out.
func (l *Loader) Pages(ctx context.Context, site string) ([]*Page, error) {
	files, fsys, err := l.files(site)
	if err != nil {
		return nil, err
	}
	pages := make([]*Page, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			src, err := fsys.Read(f.rel)
			if err != nil {
				l.logger.Warn("content: read failed", slog.String("path", f.abs), slog.String("error", err.Error()))
				return nil
			}
			p, err := l.compile(gctx, f.abs, src)
			if err != nil {
				l.logger.Warn("content: compile failed", slog.String("path", f.abs), slog.String("error", err.Error()))
				return nil
			}
			pages[i] = p
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("content: %s: %w", site, err)
	}
	out := pages[:0]
	for _, p := range pages {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}
