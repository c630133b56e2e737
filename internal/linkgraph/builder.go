// Package linkgraph builds the UUID index and backlink index of a content
// tree and rewrites `[[uuid:...]]` references into relative links.
package linkgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/intersect-sdl/sdl-doc-gen/internal/checksum"
	"github.com/intersect-sdl/sdl-doc-gen/internal/docextract"
	"github.com/intersect-sdl/sdl-doc-gen/internal/frontmatter"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
	"github.com/intersect-sdl/sdl-doc-gen/internal/storage"
)

// Patterns selects the files that take part in the link graph.
var Patterns = []string{"**/*.{md,mdx,svx,ts,py}"}

// refPattern matches a UUID reference token.
var refPattern = regexp.MustCompile(`\[\[uuid:([0-9a-fA-F-]{36})\]\]`)

// Builder scans content trees. It is safe for concurrent use.
type Builder struct {
	logger      *slog.Logger
	extractors  docextract.Registry
	concurrency int
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithExtractors sets the source-code extractors by file kind.
func WithExtractors(r docextract.Registry) Option {
	return func(b *Builder) { b.extractors = r }
}

// WithConcurrency bounds how many files are scanned at once. Zero or less
// means runtime.NumCPU().
func WithConcurrency(n int) Option {
	return func(b *Builder) { b.concurrency = n }
}

// NewBuilder returns a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.extractors == nil {
		b.extractors = docextract.DefaultRegistry(b.logger)
	}
	if b.concurrency <= 0 {
		b.concurrency = runtime.NumCPU()
	}
	return b
}

// FileScan is what one pass learned about one file.
type FileScan struct {
	Path     string             `json:"path"`
	Kind     models.Kind        `json:"kind"`
	Checksum string             `json:"checksum"`
	Entries  []models.UUIDEntry `json:"entries"`
	// Refs lists referenced UUIDs in occurrence order, duplicates kept.
	Refs []string `json:"refs"`
	Err  error    `json:"-"`
}

// Snapshot is a full scan of a content tree.
type Snapshot struct {
	Root      string               `json:"root"`
	Files     []FileScan           `json:"files"`
	Index     models.UUIDIndex     `json:"index"`
	Backlinks models.BacklinkIndex `json:"backlinks"`
}

// list returns the absolute paths of every link-graph file under root,
// sorted.
func list(root string) ([]string, error) {
	fsys, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("linkgraph: %w", err)
	}
	metas, err := fsys.List("", Patterns...)
	if err != nil {
		return nil, fmt.Errorf("linkgraph: %w", err)
	}
	paths := make([]string, len(metas))
	for i, m := range metas {
		paths[i] = filepath.Join(fsys.Root(), filepath.FromSlash(m.Path))
	}
	return paths, nil
}

// Scan reads every link-graph file under contentDir. Results are ordered by
// path. Per-file failures are logged and recorded in FileScan.Err.
func (b *Builder) Scan(ctx context.Context, contentDir string) ([]FileScan, error) {
	paths, err := list(contentDir)
	if err != nil {
		return nil, err
	}
	scans := make([]FileScan, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, p := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				scans[i] = FileScan{Path: p, Kind: models.KindOf(p), Err: gctx.Err()}
				return nil
			}
			scans[i] = b.scanFile(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("linkgraph: scan %s: %w", contentDir, err)
	}
	return scans, nil
}

func (b *Builder) scanFile(ctx context.Context, path string) FileScan {
	scan := FileScan{Path: path, Kind: models.KindOf(path)}
	content, err := os.ReadFile(path)
	if err != nil {
		b.logger.Warn("linkgraph: read failed", slog.String("path", path), slog.String("error", err.Error()))
		scan.Err = err
		return scan
	}
	scan.Checksum = checksum.Sum(content)
	for _, m := range refPattern.FindAllSubmatch(content, -1) {
		scan.Refs = append(scan.Refs, string(m[1]))
	}

	switch scan.Kind {
	case models.KindMarkdown:
		attrs, _ := frontmatter.Extract(content)
		if id := attrs.String("uuid"); id != "" {
			scan.Entries = append(scan.Entries, models.UUIDEntry{
				UUID:     id,
				FilePath: path,
				Type:     models.KindMarkdown,
				Title:    attrs.String("title"),
			})
		}
	case models.KindTypeScript, models.KindPython:
		ex := b.extractors.For(scan.Kind)
		if ex == nil {
			return scan
		}
		for _, doc := range ex.Extract(ctx, path) {
			if doc.UUID == "" {
				continue
			}
			scan.Entries = append(scan.Entries, models.UUIDEntry{
				UUID:     doc.UUID,
				FilePath: doc.FilePath,
				Type:     scan.Kind,
				Title:    doc.Name,
			})
		}
	}
	return scan
}

// MergeIndex folds scans into a UUID index in scan order; on a collision
// the later entry wins and a warning is logged.
func (b *Builder) MergeIndex(scans []FileScan) models.UUIDIndex {
	index := models.UUIDIndex{}
	for _, s := range scans {
		for _, e := range s.Entries {
			if _, err := uuid.Parse(e.UUID); err != nil {
				b.logger.Warn("linkgraph: non-canonical uuid",
					slog.String("uuid", e.UUID),
					slog.String("path", e.FilePath),
				)
			}
			if prev, ok := index[e.UUID]; ok {
				b.logger.Warn("linkgraph: duplicate uuid",
					slog.String("uuid", e.UUID),
					slog.String("previous", prev.FilePath),
					slog.String("path", e.FilePath),
				)
			}
			index[e.UUID] = e
		}
	}
	return index
}

// MergeBacklinks folds scans into a backlink index.
func MergeBacklinks(scans []FileScan) models.BacklinkIndex {
	backlinks := models.BacklinkIndex{}
	for _, s := range scans {
		for _, ref := range s.Refs {
			backlinks.Add(ref, s.Path)
		}
	}
	return backlinks
}

// Snapshot scans contentDir once and derives both indexes from it.
func (b *Builder) Snapshot(ctx context.Context, contentDir string) (*Snapshot, error) {
	scans, err := b.Scan(ctx, contentDir)
	if err != nil {
		return nil, err
	}
	root, _ := filepath.Abs(contentDir)
	return &Snapshot{
		Root:      root,
		Files:     scans,
		Index:     b.MergeIndex(scans),
		Backlinks: MergeBacklinks(scans),
	}, nil
}

// BuildUUIDIndex maps every UUID declared under contentDir to its owner. When
// outputFile is set the index is also written there as JSON; a write failure
// is logged, not returned.
func (b *Builder) BuildUUIDIndex(ctx context.Context, contentDir, outputFile string) (models.UUIDIndex, error) {
	scans, err := b.Scan(ctx, contentDir)
	if err != nil {
		return nil, err
	}
	index := b.MergeIndex(scans)
	if outputFile != "" {
		if err := WriteJSON(outputFile, index); err != nil {
			b.logger.Error("linkgraph: write uuid index",
				slog.String("path", outputFile),
				slog.String("error", err.Error()),
			)
		}
	}
	b.logger.Info("uuid index built", slog.String("root", contentDir), slog.Int("files", len(scans)), slog.Int("uuids", len(index)))
	return index, nil
}

// BuildBacklinkIndex counts every reference token under contentDir.
func (b *Builder) BuildBacklinkIndex(ctx context.Context, contentDir string) (models.BacklinkIndex, error) {
	scans, err := b.Scan(ctx, contentDir)
	if err != nil {
		return nil, err
	}
	return MergeBacklinks(scans), nil
}

// WriteBacklinkIndex writes index to path as indented JSON.
func WriteBacklinkIndex(index models.BacklinkIndex, path string) error {
	return WriteJSON(path, index)
}

// WriteJSON atomically writes v to path as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("linkgraph: marshal: %w", err)
	}
	if err := storage.WriteFile(path, append(data, '\n')); err != nil {
		return fmt.Errorf("linkgraph: %w", err)
	}
	return nil
}
