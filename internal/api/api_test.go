package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/intersect-sdl/sdl-doc-gen/internal/docextract"
	"github.com/intersect-sdl/sdl-doc-gen/internal/docservice"
	"github.com/intersect-sdl/sdl-doc-gen/internal/linkgraph"
	"github.com/intersect-sdl/sdl-doc-gen/internal/markdown"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
	"github.com/intersect-sdl/sdl-doc-gen/internal/paths"
	"github.com/intersect-sdl/sdl-doc-gen/internal/testutil"
)

const (
	introID = "11111111-1111-4111-8111-111111111111"
	pyID    = "22222222-2222-4222-8222-222222222222"
)

// testEnv sets up a temp content tree, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithTree(t, authToken)
	return svc, router
}

func testEnvWithTree(t *testing.T, authToken string) (*docservice.Service, http.Handler, string) {
	t.Helper()
	dir, _ := testutil.TestTree(t, map[string]string{
		"docs/intro.md":        "---\ntitle: Intro\nuuid: " + introID + "\n---\n# Intro\n\n## Setup\n",
		"docs/guide/usage.md":  "---\ntitle: Usage\n---\nSee [[uuid:" + introID + "]].",
		"docs/tools/script.py": "def run():\n    \"\"\"uuid: " + pyID + "\"\"\"\n",
		"platforms/hpc.md":     "---\ntitle: HPC\n---\nCluster notes.",
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
	svc := docservice.New(cfg, markdown.New(markdown.WithLogger(logger)), builder, testutil.TestDB(t), docservice.Outputs{}, logger)
	if _, err := svc.Reindex(t.Context()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	enabled := authToken != ""
	return svc, NewRouter(svc, enabled, authToken, nil), dir
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListSites(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/sites", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SitesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Sites) != 2 || resp.Sites[0] != "docs" {
		t.Errorf("sites = %v", resp.Sites)
	}
}

func TestListEntries(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/sites/docs/entries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp EntriesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 2 {
		t.Fatalf("entries = %+v", resp.Entries)
	}
	if resp.Entries[1].Slug != "/intro" || resp.Entries[1].UUID != introID {
		t.Errorf("entry = %+v", resp.Entries[1])
	}

	w = do(t, router, http.MethodGet, "/sites/unknown/entries", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown site = %d, want 404", w.Code)
	}
}

func TestSiteTOC(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/sites/platforms/toc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp TOCResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.TOC) != 1 || resp.TOC[0].Frontmatter["title"] != "HPC" {
		t.Errorf("toc = %+v", resp.TOC)
	}
}

func TestGetPage(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/sites/docs/pages/intro", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var page Page
	_ = json.Unmarshal(w.Body.Bytes(), &page)
	if page.Slug != "/intro" || !strings.Contains(page.Code, "Intro") {
		t.Errorf("page = %+v", page)
	}
	if page.Data["uuid"] != introID {
		t.Errorf("uuid = %v", page.Data["uuid"])
	}

	w = do(t, router, http.MethodGet, "/sites/docs/pages/guide%2Fusage", nil)
	if w.Code != http.StatusOK {
		t.Errorf("encoded slug = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/sites/docs/pages/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing page = %d, want 404", w.Code)
	}
}

func TestListPages(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/sites/docs/pages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PagesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	var slugs []string
	for _, p := range resp.Pages {
		slugs = append(slugs, p.Slug)
	}
	if strings.Join(slugs, ",") != "/guide/usage,/intro" {
		t.Errorf("slugs = %v", slugs)
	}

	w = do(t, router, http.MethodGet, "/sites/unknown/pages", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown site = %d, want 404", w.Code)
	}
}

func TestUUIDEndpoints(t *testing.T) {
	_, router, dir := testEnvWithTree(t, "")

	w := do(t, router, http.MethodGet, "/uuids/"+introID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", w.Code)
	}
	var entry models.UUIDEntry
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.FilePath != filepath.Join(dir, "docs", "intro.md") || entry.Title != "Intro" {
		t.Errorf("entry = %+v", entry)
	}

	w = do(t, router, http.MethodGet, "/uuids/"+introID+"/backlinks", nil)
	var bl BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &bl)
	if bl.Count != 1 || len(bl.Sources) != 1 {
		t.Errorf("backlinks = %+v", bl)
	}

	w = do(t, router, http.MethodGet, "/uuids?type=python", nil)
	var list UUIDListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.UUIDs) != 1 || list.UUIDs[0].UUID != pyID {
		t.Errorf("python uuids = %+v", list.UUIDs)
	}
}

func TestUUIDEndpoints_Errors(t *testing.T) {
	_, router := testEnv(t, "")
	tests := []struct {
		target string
		want   int
	}{
		{"/uuids/not-a-uuid", http.StatusBadRequest},
		{"/uuids/33333333-3333-4333-8333-333333333333", http.StatusNotFound},
		{"/uuids/not-a-uuid/backlinks", http.StatusBadRequest},
		{"/uuids?type=java", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := do(t, router, http.MethodGet, tt.target, nil); w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.target, w.Code, tt.want)
		}
	}
}

func TestCompile(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/compile", CompileRequest{Content: "---\ntitle: T\n---\n# Hello World"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res CompileResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !strings.Contains(res.Code, "<h1") || res.Data["title"] != "T" {
		t.Errorf("result = %+v", res)
	}

	if w := do(t, router, http.MethodPost, "/compile", CompileRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty content = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/compile", CompileRequest{Content: "x", Filename: "a.go"}); w.Code != http.StatusBadRequest {
		t.Errorf("unsupported filename = %d, want 400", w.Code)
	}
}

func TestReindexAndResolve(t *testing.T) {
	_, router, dir := testEnvWithTree(t, "")

	w := do(t, router, http.MethodPost, "/reindex", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reindex status = %d", w.Code)
	}
	var rr ReindexResponse
	_ = json.Unmarshal(w.Body.Bytes(), &rr)
	if rr.Files != 4 || rr.UUIDs != 2 {
		t.Errorf("reindex = %+v", rr)
	}

	w = do(t, router, http.MethodPost, "/resolve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status = %d", w.Code)
	}
	if got := testutil.ReadFile(t, dir, "docs/guide/usage.md"); !strings.Contains(got, "[Intro](../intro.md)") {
		t.Errorf("usage.md = %q", got)
	}

	w = do(t, router, http.MethodGet, "/orphans", nil)
	var orphans OrphansResponse
	_ = json.Unmarshal(w.Body.Bytes(), &orphans)
	if len(orphans.UUIDs) != 0 {
		t.Errorf("orphans = %v", orphans.UUIDs)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/sites", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/sites", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/sites", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/sites", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestEventsRoute(t *testing.T) {
	_, router := testEnv(t, "")
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Errorf("events without handler = %d, want 404", w.Code)
	}

	svc, _ := testEnv(t, "")
	events := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: index.rebuilt\ndata: {}\n\n"))
	})
	router = NewRouter(svc, true, "secret", events)

	w = do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated events = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "index.rebuilt") {
		t.Errorf("events = %d %q", w.Code, w.Body.String())
	}
}
