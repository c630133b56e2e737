// Package docextract pulls documentation records and UUID identifiers out of
// TypeScript and Python source files.
package docextract

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
)

// Parameter documents one function parameter.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Returns documents a function's return value.
type Returns struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// CodeInfo locates a function or method and describes its signature.
type CodeInfo struct {
	Line       int         `json:"line"`
	Column     int         `json:"column"`
	Parameters []Parameter `json:"parameters"`
	Returns    *Returns    `json:"returns,omitempty"`
}

// ExtractedDoc is one documented construct found in a source file.
type ExtractedDoc struct {
	Name          string              `json:"name"`
	Kind          string              `json:"kind"`
	Documentation string              `json:"documentation"`
	FilePath      string              `json:"filePath"`
	UUID          string              `json:"uuid,omitempty"`
	Tags          map[string][]string `json:"tags,omitempty"`
	CodeInfo      *CodeInfo           `json:"codeInfo,omitempty"`
}

// Extractor reads a source file and returns its documented constructs.
// Failures are logged and yield no records.
type Extractor interface {
	Extract(ctx context.Context, path string) []ExtractedDoc
}

var uuidPattern = regexp.MustCompile(`(?i)uuid\s*[:=]\s*([0-9a-f-]{36})`)

var uuidValue = regexp.MustCompile(`(?i)^[0-9a-f-]{36}$`)

// FindUUID returns the first `uuid: <id>` or `uuid = <id>` value in s.
func FindUUID(s string) string {
	m := uuidPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// Registry maps a file kind to the extractor for it.
type Registry map[models.Kind]Extractor

// DefaultRegistry returns the Python extractor and, when built with cgo,
// the TypeScript extractor.
func DefaultRegistry(logger *slog.Logger) Registry {
	r := Registry{models.KindPython: NewPython(logger)}
	if ts := NewTypeScript(logger); ts != nil {
		r[models.KindTypeScript] = ts
	}
	return r
}

// For returns the extractor registered for kind, or nil.
func (r Registry) For(kind models.Kind) Extractor {
	if r == nil {
		return nil
	}
	return r[kind]
}
