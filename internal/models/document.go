// Package models defines the domain types shared across sdl-doc-gen.
package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind classifies a source file by how it is scanned for identifiers.
type Kind string

// Supported kinds.
const (
	KindMarkdown   Kind = "markdown"
	KindTypeScript Kind = "typescript"
	KindPython     Kind = "python"
)

// KindOf returns the kind implied by a file name's extension, or "" when the
// file is not part of the link-graph universe.
func KindOf(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".mdx", ".svx":
		return KindMarkdown
	case ".ts":
		return KindTypeScript
	case ".py":
		return KindPython
	default:
		return ""
	}
}

// Document is a file read from disk.
type Document struct {
	Path    string `json:"path"`
	Ext     string `json:"ext"`
	Kind    Kind   `json:"kind"`
	Content []byte `json:"-"`
}

// NewDocument builds a Document for an absolute path and its raw bytes.
func NewDocument(path string, content []byte) Document {
	return Document{
		Path:    path,
		Ext:     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Kind:    KindOf(path),
		Content: content,
	}
}

// FileMeta is a lightweight representation returned by list operations.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
