package linkgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
	"github.com/intersect-sdl/sdl-doc-gen/internal/storage"
)

// DefaultLinkTitle is the link text used when an entry has no title.
const DefaultLinkTitle = "Link"

// Stats counts the tokens handled in one file.
type Stats struct {
	Resolved int `json:"resolved"`
	Missing  int `json:"missing"`
}

// Report summarises a resolver pass.
type Report struct {
	Scanned   int `json:"scanned"`
	Rewritten int `json:"rewritten"`
	Resolved  int `json:"resolved"`
	Missing   int `json:"missing"`
}

// Lookup finds id in index. Hex digits match regardless of case.
func Lookup(index models.UUIDIndex, id string) (models.UUIDEntry, bool) {
	if e, ok := index[id]; ok {
		return e, true
	}
	for key, e := range index {
		if strings.EqualFold(key, id) {
			return e, true
		}
	}
	return models.UUIDEntry{}, false
}

// RelativeLink returns the path from the directory of from to to, with
// forward slashes and a leading "./" when it does not start with ".".
func RelativeLink(from, to string) string {
	rel, err := filepath.Rel(filepath.Dir(from), to)
	if err != nil {
		rel = to
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

// ResolveContent replaces every `[[uuid:<id>]]` in content, which lives at
// filePath, with a markdown link to the owning file or a missing marker.
func ResolveContent(index models.UUIDIndex, filePath, content string) (string, Stats) {
	var st Stats
	out := refPattern.ReplaceAllStringFunc(content, func(token string) string {
		id := refPattern.FindStringSubmatch(token)[1]
		entry, ok := Lookup(index, id)
		if !ok {
			st.Missing++
			return "[[MISSING UUID: " + id + "]]"
		}
		st.Resolved++
		title := entry.Title
		if title == "" {
			title = DefaultLinkTitle
		}
		return "[" + title + "](" + RelativeLink(filePath, entry.FilePath) + ")"
	})
	return out, st
}

type resolveResult struct {
	stats     Stats
	rewritten bool
}

// ResolveUUIDLinks builds a fresh UUID index of contentDir, caching it at
// cachePath when set, and rewrites reference tokens in place. Only files
// that change are written.
func (b *Builder) ResolveUUIDLinks(ctx context.Context, contentDir, cachePath string) (Report, error) {
	index, err := b.BuildUUIDIndex(ctx, contentDir, cachePath)
	if err != nil {
		return Report{}, err
	}
	paths, err := list(contentDir)
	if err != nil {
		return Report{}, err
	}

	results := make([]resolveResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, p := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			results[i] = b.resolveFile(index, p)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Report{}, fmt.Errorf("linkgraph: resolve %s: %w", contentDir, err)
	}

	report := Report{Scanned: len(paths)}
	for _, r := range results {
		report.Resolved += r.stats.Resolved
		report.Missing += r.stats.Missing
		if r.rewritten {
			report.Rewritten++
		}
	}
	b.logger.Info("uuid links resolved",
		slog.String("root", contentDir),
		slog.Int("scanned", report.Scanned),
		slog.Int("rewritten", report.Rewritten),
		slog.Int("missing", report.Missing),
	)
	return report, nil
}

func (b *Builder) resolveFile(index models.UUIDIndex, path string) resolveResult {
	content, err := os.ReadFile(path)
	if err != nil {
		b.logger.Warn("linkgraph: read failed", slog.String("path", path), slog.String("error", err.Error()))
		return resolveResult{}
	}
	updated, st := ResolveContent(index, path, string(content))
	if updated == string(content) {
		return resolveResult{stats: st}
	}
	if err := storage.WriteFile(path, []byte(updated)); err != nil {
		b.logger.Warn("linkgraph: write failed", slog.String("path", path), slog.String("error", err.Error()))
		return resolveResult{stats: st}
	}
	if st.Missing > 0 {
		b.logger.Warn("linkgraph: unresolved uuid references", slog.String("path", path), slog.Int("missing", st.Missing))
	}
	return resolveResult{stats: st, rewritten: true}
}
