// Package storage defines the content-tree file-system abstraction.
package storage

import "github.com/intersect-sdl/sdl-doc-gen/internal/models"

// Provider is the interface for content-tree file operations. Paths are
// relative to the provider root and use forward slashes.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns every file under dir matching at least one doublestar pattern.
	List(dir string, patterns ...string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
}
