// Package docservice coordinates the content loader, the markdown compiler,
// the link-graph builder and the SQLite link-graph store behind one API used
// by the HTTP, MCP and CLI surfaces.
package docservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/intersect-sdl/sdl-doc-gen/internal/apperr"
	"github.com/intersect-sdl/sdl-doc-gen/internal/content"
	"github.com/intersect-sdl/sdl-doc-gen/internal/index"
	"github.com/intersect-sdl/sdl-doc-gen/internal/linkgraph"
	"github.com/intersect-sdl/sdl-doc-gen/internal/markdown"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
	"github.com/intersect-sdl/sdl-doc-gen/internal/paths"
)

// Change event kinds passed to the Notifier.
const (
	EventIndexRebuilt  = "index.rebuilt"
	EventLinksResolved = "links.resolved"
)

// Outputs names the optional JSON files written on reindex. Empty paths are
// not written.
type Outputs struct {
	UUIDCache string
	Backlinks string
}

// ReindexResult summarises a reindex pass.
type ReindexResult struct {
	Roots    []string    `json:"roots"`
	Files    int         `json:"files"`
	UUIDs    int         `json:"uuids"`
	Refs     int         `json:"refs"`
	Orphans  []string    `json:"orphans"`
	Changed  bool        `json:"changed"`
	Stats    index.Stats `json:"stats"`
	Failures []string    `json:"failures,omitempty"`
}

// ResolveResult summarises a resolver pass over every content root.
type ResolveResult struct {
	Roots  []string         `json:"roots"`
	Report linkgraph.Report `json:"report"`
}

// Notifier receives link-graph change events.
type Notifier interface {
	GraphChanged(kind string, data any)
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes reindex and resolve results to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// Service is safe for concurrent use. Reindex and Resolve are serialised.
type Service struct {
	cfg      *paths.Config
	loader   *content.Loader
	compiler *markdown.Compiler
	builder  *linkgraph.Builder
	db       *index.DB
	outputs  Outputs
	logger   *slog.Logger
	notifier Notifier

	mu sync.Mutex
}

// New creates a Service.
func New(cfg *paths.Config, compiler *markdown.Compiler, builder *linkgraph.Builder, db *index.DB, outputs Outputs, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:      cfg,
		loader:   content.NewLoader(cfg, compiler, logger),
		compiler: compiler,
		builder:  builder,
		db:       db,
		outputs:  outputs,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notify(kind string, data any) {
	if s.notifier != nil {
		s.notifier.GraphChanged(kind, data)
	}
}

// Config returns the content layout.
func (s *Service) Config() *paths.Config {
	return s.cfg
}

// roots returns the content-root directories that exist on disk.
func (s *Service) roots() []string {
	var out []string
	for _, dir := range s.cfg.ContentRootPaths() {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			out = append(out, dir)
			continue
		}
		s.logger.Warn("docservice: content root missing", slog.String("path", dir))
	}
	return out
}

// Reindex scans every content root, stores the link graph and writes the
// configured JSON outputs.
func (s *Service) Reindex(ctx context.Context) (*ReindexResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &ReindexResult{Roots: s.roots()}
	var scans []linkgraph.FileScan
	for _, root := range res.Roots {
		part, err := s.builder.Scan(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("docservice: reindex: %w", err)
		}
		scans = append(scans, part...)
	}

	records := make([]index.FileRecord, 0, len(scans))
	for _, sc := range scans {
		if sc.Err != nil {
			res.Failures = append(res.Failures, sc.Path)
			continue
		}
		records = append(records, index.FileRecord{
			Path:     sc.Path,
			Kind:     sc.Kind,
			Checksum: sc.Checksum,
			Entries:  sc.Entries,
			Refs:     sc.Refs,
		})
	}

	synced, err := index.Sync(ctx, s.db, records, s.logger)
	if err != nil {
		return nil, fmt.Errorf("docservice: reindex: %w", err)
	}
	res.Files, res.UUIDs, res.Refs, res.Changed = synced.Files, synced.UUIDs, synced.Refs, synced.Changed

	if s.outputs.UUIDCache != "" {
		if err := linkgraph.WriteJSON(s.outputs.UUIDCache, s.builder.MergeIndex(scans)); err != nil {
			s.logger.Error("docservice: write uuid cache", slog.String("path", s.outputs.UUIDCache), slog.String("error", err.Error()))
		}
	}
	if s.outputs.Backlinks != "" {
		if err := linkgraph.WriteBacklinkIndex(linkgraph.MergeBacklinks(scans), s.outputs.Backlinks); err != nil {
			s.logger.Error("docservice: write backlinks", slog.String("path", s.outputs.Backlinks), slog.String("error", err.Error()))
		}
	}

	if res.Stats, err = s.db.Stats(ctx); err != nil {
		return nil, fmt.Errorf("docservice: reindex: %w", err)
	}
	if res.Orphans, err = s.db.Orphans(ctx); err != nil {
		return nil, fmt.Errorf("docservice: reindex: %w", err)
	}
	if !res.Changed {
		// Sync skipped the write; report what is stored.
		res.UUIDs, res.Refs = res.Stats.UUIDs, res.Stats.Refs
	}
	s.logger.Info("reindex complete",
		slog.Int("files", res.Files),
		slog.Int("uuids", res.UUIDs),
		slog.Int("orphans", len(res.Orphans)),
		slog.Bool("changed", res.Changed),
	)
	if res.Changed {
		// Diagram sources may have changed with the tree.
		if c, ok := s.compiler.Cache().(interface{ Clear() }); ok {
			c.Clear()
		}
		s.notify(EventIndexRebuilt, res)
	}
	return res, nil
}

// Resolve rewrites `[[uuid:...]]` tokens in every content root, then
// reindexes so the store reflects the rewritten files. UUIDs are resolved
// within the root that declares them.
func (s *Service) Resolve(ctx context.Context) (*ResolveResult, error) {
	s.mu.Lock()
	res := &ResolveResult{Roots: s.roots()}
	for _, root := range res.Roots {
		rep, err := s.builder.ResolveUUIDLinks(ctx, root, "")
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("docservice: resolve: %w", err)
		}
		res.Report.Scanned += rep.Scanned
		res.Report.Rewritten += rep.Rewritten
		res.Report.Resolved += rep.Resolved
		res.Report.Missing += rep.Missing
	}
	s.mu.Unlock()

	if _, err := s.Reindex(ctx); err != nil {
		return nil, err
	}
	s.notify(EventLinksResolved, res)
	return res, nil
}

func validUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("docservice: %q: %w", id, apperr.ErrInvalidUUID)
	}
	return nil
}

// Lookup returns the owner of id.
func (s *Service) Lookup(ctx context.Context, id string) (*models.UUIDEntry, error) {
	if err := validUUID(id); err != nil {
		return nil, err
	}
	return s.db.Lookup(ctx, id)
}

// Backlinks returns every reference to id. An unreferenced id yields an
// empty Backlink, not an error.
func (s *Service) Backlinks(ctx context.Context, id string) (*models.Backlink, error) {
	if err := validUUID(id); err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return &models.Backlink{Sources: []string{}}, nil
	}
	return bl, err
}

// UUIDs lists indexed UUID entries, optionally filtered by file kind.
func (s *Service) UUIDs(ctx context.Context, kind models.Kind) ([]models.UUIDEntry, error) {
	switch kind {
	case "", models.KindMarkdown, models.KindTypeScript, models.KindPython:
	default:
		return nil, fmt.Errorf("docservice: kind %q: %w", kind, apperr.ErrUnsupported)
	}
	return s.db.Entries(ctx, kind)
}

// Stats reports the stored link graph.
func (s *Service) Stats(ctx context.Context) (index.Stats, error) {
	return s.db.Stats(ctx)
}

// Orphans lists referenced UUIDs no file declares.
func (s *Service) Orphans(ctx context.Context) ([]string, error) {
	return s.db.Orphans(ctx)
}

// Sites returns the configured content roots.
func (s *Service) Sites() []string {
	return s.loader.Sites()
}

// Page compiles one page of site.
func (s *Service) Page(ctx context.Context, site, slug string) (*content.Page, error) {
	return s.loader.Page(ctx, site, slug)
}

// Entries lists the pages of site.
func (s *Service) Entries(ctx context.Context, site string) ([]content.Entry, error) {
	return s.loader.Entries(ctx, site)
}

// SiteTOC returns the table of contents of site.
func (s *Service) SiteTOC(ctx context.Context, site string) ([]content.TOCItem, error) {
	return s.loader.SiteTOC(ctx, site)
}

// Pages compiles every page of site, sorted by slug.
func (s *Service) Pages(ctx context.Context, site string) ([]*content.Page, error) {
	return s.loader.Pages(ctx, site)
}

// Compile renders source. name picks relative diagram sources and must be
// a markdown-family file name when set.
func (s *Service) Compile(ctx context.Context, source []byte, name string) (*markdown.Result, error) {
	if name == "" {
		name = "input.md"
	}
	if !markdown.IsMarkdown(name) {
		return nil, fmt.Errorf("docservice: compile %s: %w", name, apperr.ErrUnsupported)
	}
	return s.compiler.Compile(ctx, source, name)
}

// NewUUID returns a fresh random UUID.
func NewUUID() string {
	return uuid.NewString()
}
