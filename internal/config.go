package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/intersect-sdl/sdl-doc-gen/internal/markdown"
	"github.com/intersect-sdl/sdl-doc-gen/internal/paths"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var extensionRe = regexp.MustCompile(`^\.?[A-Za-z0-9]+$`)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Auth    AuthConfig        `yaml:"auth"`
	Content ContentConfig     `yaml:"content"`
	Diagram DiagramConfig     `yaml:"diagram"`
	Index   IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Diagram.Validate(); err != nil {
		return err
	}
	return c.Index.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ContentConfig describes the content layout.
//
// BasePath may be a directory or the name of an environment variable that
// holds one. When empty, DOC_GEN_BASE_PATH, PROJECT_ROOT, WORKSPACE_ROOT and
// PWD are tried in order, then the working directory.
type ContentConfig struct {
	BasePath     string   `yaml:"base_path"`
	ContentRoots []string `yaml:"content_roots"`
	SlugPrefixes []string `yaml:"slug_prefixes"`
	Extensions   []string `yaml:"extensions"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ContentRoots, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.SlugPrefixes, validation.Each(validation.Required)),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.Required, validation.Match(extensionRe))),
	)
}

// Paths resolves the content layout against the environment.
func (c *ContentConfig) Paths() (*paths.Config, error) {
	return paths.Resolve(paths.Options{
		BasePath:     c.BasePath,
		ContentRoots: c.ContentRoots,
		SlugPrefixes: c.SlugPrefixes,
		Extensions:   c.Extensions,
	})
}

// DiagramConfig holds settings for the bpmn directive.
type DiagramConfig struct {
	BaseDir     string        `yaml:"base_dir"`
	MaxFileSize int64         `yaml:"max_file_size"`
	NoFallback  bool          `yaml:"no_fallback"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
}

// Validate validates the diagram configuration.
func (c *DiagramConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxFileSize, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.Width, validation.Min(0)),
		validation.Field(&c.Height, validation.Min(0)),
	)
}

// Markdown converts the settings into compiler form.
func (c *DiagramConfig) Markdown() markdown.DiagramConfig {
	return markdown.DiagramConfig{
		BaseDir:     c.BaseDir,
		MaxFileSize: c.MaxFileSize,
		NoFallback:  c.NoFallback,
		Width:       c.Width,
		Height:      c.Height,
	}
}

// IndexConfig holds link-graph settings. Empty output paths are not written.
type IndexConfig struct {
	Concurrency int    `yaml:"concurrency"`
	UUIDCache   string `yaml:"uuid_cache"`
	Backlinks   string `yaml:"backlinks"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Min(0)),
		validation.Field(&c.SQLitePath, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Content: ContentConfig{
			ContentRoots: append([]string(nil), paths.DefaultContentRoots...),
			SlugPrefixes: append([]string(nil), paths.DefaultSlugPrefixes...),
			Extensions:   append([]string(nil), paths.DefaultExtensions...),
		},
		Diagram: DiagramConfig{
			BaseDir:     ".",
			MaxFileSize: markdown.DefaultMaxDiagramSize,
			CacheTTL:    markdown.DefaultCacheTTL,
			Width:       markdown.DefaultDiagramWidth,
			Height:      markdown.DefaultDiagramHeight,
		},
		Index: IndexConfig{
			UUIDCache:  ".docgen/uuid-index.json",
			Backlinks:  ".docgen/backlinks.json",
			SQLitePath: ".docgen/links.db",
		},
	}
}
