package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/intersect-sdl/sdl-doc-gen/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestContentConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ContentConfig
		ok   bool
	}{
		{"defaults", NewDefaultConfig().Content, true},
		{"dotted extension", ContentConfig{ContentRoots: []string{"docs"}, Extensions: []string{".md"}}, true},
		{"no roots", ContentConfig{Extensions: []string{"md"}}, false},
		{"empty root", ContentConfig{ContentRoots: []string{""}, Extensions: []string{"md"}}, false},
		{"glob extension", ContentConfig{ContentRoots: []string{"docs"}, Extensions: []string{"*.md"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestContentConfig_Paths(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig().Content
	cfg.BasePath = dir
	pc, err := cfg.Paths()
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if pc.BasePath != dir || pc.ContentRootPath("docs") != filepath.Join(dir, "docs") {
		t.Errorf("paths = %+v", pc)
	}
}

func TestDiagramConfig_Validation(t *testing.T) {
	cfg := NewDefaultConfig().Diagram
	cfg.MaxFileSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero max_file_size should fail")
	}
	cfg = NewDefaultConfig().Diagram
	cfg.CacheTTL = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative cache_ttl should fail")
	}
	if got := NewDefaultConfig().Diagram.Markdown().MaxFileSize; got != 5*1024*1024 {
		t.Errorf("max size = %d", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	t.Setenv("DOCGEN_TEST_TOKEN", "s3cret")
	data := `
app:
  log_level: debug
  http:
    port: 9090
auth:
  mode: token
  token: ${DOCGEN_TEST_TOKEN}
content:
  base_path: /srv/site
  content_roots: [guides]
diagram:
  cache_ttl: 30s
index:
  concurrency: 4
  sqlite_path: /tmp/links.db
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("app/auth = %+v / %+v", cfg.App, cfg.Auth)
	}
	if cfg.Content.ContentRoots[0] != "guides" || cfg.Content.Extensions[0] != "md" {
		t.Errorf("content = %+v", cfg.Content)
	}
	if cfg.Diagram.CacheTTL != 30*time.Second || cfg.Diagram.MaxFileSize != 5*1024*1024 {
		t.Errorf("diagram = %+v", cfg.Diagram)
	}
	if cfg.Index.Concurrency != 4 || cfg.Index.UUIDCache != ".docgen/uuid-index.json" {
		t.Errorf("index = %+v", cfg.Index)
	}
}

func TestLoadWithDefaults_MissingFile(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(filepath.Join(t.TempDir(), "none.yaml"), "", cfg); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
}
