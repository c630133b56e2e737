package docservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/intersect-sdl/sdl-doc-gen/internal/apperr"
	"github.com/intersect-sdl/sdl-doc-gen/internal/docextract"
	"github.com/intersect-sdl/sdl-doc-gen/internal/linkgraph"
	"github.com/intersect-sdl/sdl-doc-gen/internal/markdown"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
	"github.com/intersect-sdl/sdl-doc-gen/internal/paths"
	"github.com/intersect-sdl/sdl-doc-gen/internal/testutil"
)

const (
	targetID = "cccccccc-cccc-cccc-cccc-cccccccccccc"
	pyID     = "dddddddd-dddd-dddd-dddd-dddddddddddd"
	orphanID = "eeeeeeee-eeee-eeee-eeee-eeeeeeeeeeee"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir, _ := testutil.TestTree(t, map[string]string{
		"docs/target.md":        "---\nuuid: " + targetID + "\ntitle: Target\n---\n# Target\n",
		"docs/source.md":        "---\ntitle: Source\n---\nLink to [[uuid:" + targetID + "]] and [[uuid:" + orphanID + "]].",
		"docs/api/module.py":    "def handler():\n    \"\"\"uuid: " + pyID + "\"\"\"\n",
		"platforms/overview.md": "See [[uuid:" + targetID + "]].",
	})
	cfg, err := paths.ResolveWith(paths.Options{BasePath: dir},
		func(string) (string, bool) { return "", false },
		func() (string, error) { return dir, nil },
	)
	if err != nil {
		t.Fatalf("ResolveWith: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	builder := linkgraph.NewBuilder(
		linkgraph.WithLogger(logger),
		linkgraph.WithExtractors(docextract.Registry{models.KindPython: docextract.NewPython(logger)}),
	)
	outputs := Outputs{
		UUIDCache: filepath.Join(dir, ".docgen", "uuid-index.json"),
		Backlinks: filepath.Join(dir, ".docgen", "backlinks.json"),
	}
	svc := New(cfg, markdown.New(markdown.WithLogger(logger)), builder, testutil.TestDB(t), outputs, logger)
	return svc, dir
}

func TestReindex(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	res, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if !res.Changed || res.Files != 4 || res.UUIDs != 2 || res.Refs != 3 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Orphans) != 1 || res.Orphans[0] != orphanID {
		t.Errorf("orphans = %v", res.Orphans)
	}

	e, err := svc.Lookup(ctx, targetID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.Title != "Target" || e.FilePath != filepath.Join(dir, "docs", "target.md") {
		t.Errorf("entry = %+v", e)
	}

	bl, err := svc.Backlinks(ctx, targetID)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if bl.Count != 2 {
		t.Errorf("backlinks = %+v", bl)
	}

	py, err := svc.UUIDs(ctx, models.KindPython)
	if err != nil {
		t.Fatalf("UUIDs: %v", err)
	}
	if len(py) != 1 || py[0].Title != "handler" {
		t.Errorf("python uuids = %+v", py)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".docgen", "backlinks.json"))
	if err != nil {
		t.Fatalf("backlinks.json: %v", err)
	}
	var backlinks models.BacklinkIndex
	if err := json.Unmarshal(data, &backlinks); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if backlinks[targetID].Count != 2 {
		t.Errorf("backlinks.json = %s", data)
	}

	again, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("second Reindex: %v", err)
	}
	if again.Changed || again.UUIDs != 2 {
		t.Errorf("second result = %+v", again)
	}
}

func TestLookup_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if _, err := svc.Lookup(ctx, "not-a-uuid"); !errors.Is(err, apperr.ErrInvalidUUID) {
		t.Errorf("err = %v, want ErrInvalidUUID", err)
	}
	if _, err := svc.Lookup(ctx, orphanID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	bl, err := svc.Backlinks(ctx, pyID)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if bl.Count != 0 || bl.Sources == nil {
		t.Errorf("unreferenced backlinks = %+v", bl)
	}
	if _, err := svc.UUIDs(ctx, "java"); !errors.Is(err, apperr.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestResolve(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	res, err := svc.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Report.Resolved != 1 || res.Report.Missing != 2 {
		t.Errorf("report = %+v", res.Report)
	}
	got := testutil.ReadFile(t, dir, "docs/source.md")
	if !strings.Contains(got, "[Target](./target.md)") || !strings.Contains(got, "[[MISSING UUID: "+orphanID+"]]") {
		t.Errorf("source.md = %q", got)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Refs != 0 {
		t.Errorf("refs after resolve = %d, want 0", stats.Refs)
	}
}

func TestPageAndCompile(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Page(ctx, "docs", "/target")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if p.Data["uuid"] != targetID {
		t.Errorf("uuid = %v", p.Data["uuid"])
	}

	res, err := svc.Compile(ctx, []byte("# Hello World"), "")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(res.Code, "<h1") || !strings.Contains(res.Code, "Hello World") {
		t.Errorf("code = %s", res.Code)
	}
	if _, err := svc.Compile(ctx, []byte("x"), "main.go"); !errors.Is(err, apperr.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestNewUUID(t *testing.T) {
	id := NewUUID()
	if err := validUUID(id); err != nil {
		t.Errorf("NewUUID() = %q: %v", id, err)
	}
}

type recordingNotifier struct {
	kinds []string
}

func (r *recordingNotifier) GraphChanged(kind string, _ any) {
	r.kinds = append(r.kinds, kind)
}

func TestNotifier(t *testing.T) {
	svc, _ := newTestService(t)
	rec := &recordingNotifier{}
	WithNotifier(rec)(svc)
	ctx := context.Background()

	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	// Unchanged tree; nothing published.
	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if _, err := svc.Resolve(ctx); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []string{EventIndexRebuilt, EventIndexRebuilt, EventLinksResolved}
	if strings.Join(rec.kinds, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", rec.kinds, want)
	}
}

func TestReindexClearsDiagramCache(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()
	cache := svc.compiler.Cache()

	cache.Put(filepath.Join(dir, "docs", "flow.bpmn"), &markdown.Diagram{})
	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("cache len after changed reindex = %d, want 0", cache.Len())
	}

	cache.Put(filepath.Join(dir, "docs", "flow.bpmn"), &markdown.Diagram{})
	if _, err := svc.Reindex(ctx); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("cache len after unchanged reindex = %d, want 1", cache.Len())
	}
}

func TestPages(t *testing.T) {
	svc, _ := newTestService(t)
	pages, err := svc.Pages(context.Background(), "docs")
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("pages = %d, want 2", len(pages))
	}
	if _, err := svc.Pages(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
