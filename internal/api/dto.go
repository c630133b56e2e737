package api

import (
	"github.com/intersect-sdl/sdl-doc-gen/internal/content"
	"github.com/intersect-sdl/sdl-doc-gen/internal/docservice"
	"github.com/intersect-sdl/sdl-doc-gen/internal/markdown"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
)

// CompileRequest is the request body for compiling markdown.
type CompileRequest struct {
	Content  string `json:"content" example:"# Hello" validate:"required"`
	Filename string `json:"filename,omitempty" example:"docs/hello.md"`
}

// Page is a compiled page (aliased from the domain layer).
type Page = content.Page

// CompileResponse is a compiled document (aliased from the domain layer).
type CompileResponse = markdown.Result

// ReindexResponse summarises a reindex (aliased from the domain layer).
type ReindexResponse = docservice.ReindexResult

// ResolveResponse summarises a resolver pass (aliased from the domain layer).
type ResolveResponse = docservice.ResolveResult

// SitesResponse lists the configured content roots.
type SitesResponse struct {
	Sites []string `json:"sites" validate:"required"`
}

// EntriesResponse lists the pages of a site.
type EntriesResponse struct {
	Site    string          `json:"site" example:"docs" validate:"required"`
	Entries []content.Entry `json:"entries" validate:"required"`
}

// PagesResponse holds every compiled page of a site.
type PagesResponse struct {
	Site  string  `json:"site" example:"docs" validate:"required"`
	Pages []*Page `json:"pages" validate:"required"`
}

// TOCResponse is a site table of contents.
type TOCResponse struct {
	Site string            `json:"site" example:"docs" validate:"required"`
	TOC  []content.TOCItem `json:"toc" validate:"required"`
}

// UUIDListResponse lists indexed UUIDs.
type UUIDListResponse struct {
	UUIDs []models.UUIDEntry `json:"uuids" validate:"required"`
}

// BacklinksResponse lists the references to one UUID.
type BacklinksResponse struct {
	UUID    string   `json:"uuid" example:"3f1c2a9e-6b1d-4c55-9f0e-2d8a7b4c1e90" validate:"required"`
	Count   int      `json:"count" example:"2"`
	Sources []string `json:"sources" validate:"required"`
}

// OrphansResponse lists referenced UUIDs with no owner.
type OrphansResponse struct {
	UUIDs []string `json:"uuids" validate:"required"`
}
