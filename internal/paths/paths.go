// Package paths holds the content-layout rules: where the base path is, which
// directories are content roots and how file paths map to slugs.
package paths

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// BasePathEnvVars are consulted in order when no explicit base path is set.
var BasePathEnvVars = []string{
	"DOC_GEN_BASE_PATH",
	"PROJECT_ROOT",
	"WORKSPACE_ROOT",
	"PWD",
}

var (
	windowsAbsRe   = regexp.MustCompile(`^[A-Za-z]:[\\/]`)
	windowsDriveRe = regexp.MustCompile(`^/[A-Za-z]:`)
	extensionRe    = regexp.MustCompile(`\.[^/.]+$`)
)

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// Config is the resolved content layout. Construct it once with Resolve and
// pass it to whatever needs slug or content-root rules.
type Config struct {
	BasePath     string   `json:"basePath"`
	ContentRoots []string `json:"contentRoots"`
	SlugPrefixes []string `json:"slugPrefixes"`
	Extensions   []string `json:"fileExtensions"`
}

// Options are the unresolved inputs to Resolve. Empty fields take defaults.
type Options struct {
	BasePath     string
	ContentRoots []string
	SlugPrefixes []string
	Extensions   []string
}

// Defaults.
var (
	DefaultContentRoots = []string{"docs", "platforms"}
	DefaultSlugPrefixes = []string{"/docs/", "/platforms/"}
	DefaultExtensions   = []string{"md", "mdx"}
)

// Resolve builds a Config from opts using the process environment and
// working directory.
func Resolve(opts Options) (*Config, error) {
	return ResolveWith(opts, os.LookupEnv, os.Getwd)
}

// ResolveWith is Resolve with injectable environment and working directory.
func ResolveWith(opts Options, lookup LookupFunc, getwd func() (string, error)) (*Config, error) {
	base, err := ResolveBasePath(opts.BasePath, lookup, getwd)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		BasePath:     base,
		ContentRoots: orDefault(opts.ContentRoots, DefaultContentRoots),
		SlugPrefixes: orDefault(opts.SlugPrefixes, DefaultSlugPrefixes),
		Extensions:   orDefault(opts.Extensions, DefaultExtensions),
	}
	for i, ext := range cfg.Extensions {
		cfg.Extensions[i] = strings.TrimPrefix(ext, ".")
	}
	return cfg, nil
}

// ResolveBasePath applies the fallback order: explicit value (itself possibly
// the name of a set environment variable), then BasePathEnvVars, then the
// working directory.
func ResolveBasePath(explicit string, lookup LookupFunc, getwd func() (string, error)) (string, error) {
	if explicit != "" {
		return resolveExplicit(explicit, lookup, getwd)
	}
	for _, key := range BasePathEnvVars {
		if v, ok := lookup(key); ok && v != "" {
			return absolute(v, getwd)
		}
	}
	wd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("paths: working directory: %w", err)
	}
	return wd, nil
}

func resolveExplicit(v string, lookup LookupFunc, getwd func() (string, error)) (string, error) {
	if env, ok := lookup(v); ok && env != "" {
		return absolute(env, getwd)
	}
	if windowsAbsRe.MatchString(v) {
		return strings.ReplaceAll(v, `\`, "/"), nil
	}
	return absolute(v, getwd)
}

func absolute(p string, getwd func() (string, error)) (string, error) {
	if windowsAbsRe.MatchString(p) {
		return strings.ReplaceAll(p, `\`, "/"), nil
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	wd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("paths: working directory: %w", err)
	}
	return filepath.Join(wd, p), nil
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		v = def
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

// ContentRootPaths returns the absolute directory of every content root.
func (c *Config) ContentRootPaths() []string {
	out := make([]string, 0, len(c.ContentRoots))
	for _, root := range c.ContentRoots {
		out = append(out, c.ContentRootPath(root))
	}
	return out
}

// ContentRootPath returns the absolute directory of one content root.
func (c *Config) ContentRootPath(root string) string {
	if filepath.IsAbs(root) {
		return root
	}
	return filepath.Join(c.BasePath, root)
}

// HasContentRoot reports whether name is a configured content root.
func (c *Config) HasContentRoot(name string) bool {
	for _, root := range c.ContentRoots {
		if root == name {
			return true
		}
	}
	return false
}

// Patterns returns one doublestar pattern per configured extension.
func (c *Config) Patterns() []string {
	out := make([]string, 0, len(c.Extensions))
	for _, ext := range c.Extensions {
		out = append(out, "**/*."+ext)
	}
	return out
}

// IsContentFile reports whether name matches one of the content patterns.
func (c *Config) IsContentFile(name string) bool {
	name = filepath.ToSlash(name)
	for _, p := range c.Patterns() {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// PathToSlug converts a file path into a slug: forward slashes, no
// extension, base path removed, Windows drive removed and the first
// matching slug prefix collapsed to "/".
func (c *Config) PathToSlug(filePath string) string {
	normalized := normalize(filePath)
	base := normalize(c.BasePath)

	slug := extensionRe.ReplaceAllString(normalized, "")
	if base != "" && base != "/" && strings.HasPrefix(slug, base) {
		slug = slug[len(base):]
	}
	slug = windowsDriveRe.ReplaceAllString(slug, "")

	for _, prefix := range c.SlugPrefixes {
		if strings.HasPrefix(slug, prefix) {
			slug = "/" + slug[len(prefix):]
			break
		}
	}
	return slug
}

func normalize(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}
