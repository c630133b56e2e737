package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/intersect-sdl/sdl-doc-gen/internal/docservice"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pageSlug extracts the slug from the URL (everything after /pages/).
// Supports encoded slashes from OpenAPI clients (e.g. guide%2Fintro).
func pageSlug(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "/" + raw
	}
	return "/" + decoded
}

// ListSites handles GET /api/sites.
//
//	@Summary		List content roots
//	@Tags			sites
//	@Produce		json
//	@Success		200	{object}	SitesResponse
//	@Security		BearerAuth
//	@Router			/sites [get]
func (h *Handler) ListSites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SitesResponse{Sites: h.svc.Sites()})
}

// ListEntries handles GET /api/sites/{site}/entries.
//
//	@Summary		List the pages of a site
//	@Tags			sites
//	@Produce		json
//	@Param			site	path		string	true	"Content root"
//	@Success		200		{object}	EntriesResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sites/{site}/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	entries, err := h.svc.Entries(r.Context(), site)
	if err != nil {
		writeError(w, "list entries", err, slog.String("site", site))
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Site: site, Entries: entries})
}

// SiteTOC handles GET /api/sites/{site}/toc.
//
//	@Summary		Get the table of contents of a site
//	@Tags			sites
//	@Produce		json
//	@Param			site	path		string	true	"Content root"
//	@Success		200		{object}	TOCResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sites/{site}/toc [get]
func (h *Handler) SiteTOC(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	toc, err := h.svc.SiteTOC(r.Context(), site)
	if err != nil {
		writeError(w, "site toc", err, slog.String("site", site))
		return
	}
	writeJSON(w, http.StatusOK, TOCResponse{Site: site, TOC: toc})
}

// ListPages handles GET /api/sites/{site}/pages.
//
//	@Summary		Compile every page of a site
//	@Tags			sites
//	@Produce		json
//	@Param			site	path		string	true	"Content root"
//	@Success		200		{object}	PagesResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sites/{site}/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	pages, err := h.svc.Pages(r.Context(), site)
	if err != nil {
		writeError(w, "list pages", err, slog.String("site", site))
		return
	}
	writeJSON(w, http.StatusOK, PagesResponse{Site: site, Pages: pages})
}

// GetPage handles GET /api/sites/{site}/pages/*.
//
//	@Summary		Compile a page by slug
//	@Tags			sites
//	@Produce		json
//	@Param			site	path		string	true	"Content root"
//	@Param			slug	path		string	true	"Page slug"
//	@Success		200		{object}	Page
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sites/{site}/pages/{slug} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	slug := pageSlug(r)
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	page, err := h.svc.Page(r.Context(), site, slug)
	if err != nil {
		writeError(w, "get page", err, slog.String("site", site), slog.String("slug", slug))
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListUUIDs handles GET /api/uuids.
//
//	@Summary		List indexed UUIDs
//	@Tags			uuids
//	@Produce		json
//	@Param			type	query		string	false	"File kind"	Enums(markdown, typescript, python)
//	@Success		200		{object}	UUIDListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uuids [get]
func (h *Handler) ListUUIDs(w http.ResponseWriter, r *http.Request) {
	kind := models.Kind(r.URL.Query().Get("type"))
	entries, err := h.svc.UUIDs(r.Context(), kind)
	if err != nil {
		writeError(w, "list uuids", err)
		return
	}
	writeJSON(w, http.StatusOK, UUIDListResponse{UUIDs: entries})
}

// GetUUID handles GET /api/uuids/{uuid}.
//
//	@Summary		Look up the owner of a UUID
//	@Tags			uuids
//	@Produce		json
//	@Param			uuid	path		string	true	"UUID"
//	@Success		200		{object}	models.UUIDEntry
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uuids/{uuid} [get]
func (h *Handler) GetUUID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	entry, err := h.svc.Lookup(r.Context(), id)
	if err != nil {
		writeError(w, "lookup uuid", err, slog.String("uuid", id))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Backlinks handles GET /api/uuids/{uuid}/backlinks.
//
//	@Summary		List the files referencing a UUID
//	@Tags			uuids
//	@Produce		json
//	@Param			uuid	path		string	true	"UUID"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/uuids/{uuid}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	bl, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, "backlinks", err, slog.String("uuid", id))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{UUID: id, Count: bl.Count, Sources: bl.Sources})
}

// Orphans handles GET /api/orphans.
//
//	@Summary		List referenced UUIDs that no file declares
//	@Tags			uuids
//	@Produce		json
//	@Success		200	{object}	OrphansResponse
//	@Security		BearerAuth
//	@Router			/orphans [get]
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Orphans(r.Context())
	if err != nil {
		writeError(w, "orphans", err)
		return
	}
	writeJSON(w, http.StatusOK, OrphansResponse{UUIDs: ids})
}

// Compile handles POST /api/compile.
//
//	@Summary		Compile markdown to HTML
//	@Tags			pipeline
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompileRequest	true	"Markdown source"
//	@Success		200		{object}	CompileResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/compile [post]
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	res, err := h.svc.Compile(r.Context(), []byte(req.Content), req.Filename)
	if err != nil {
		writeError(w, "compile", err, slog.String("filename", req.Filename))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Reindex handles POST /api/reindex.
//
//	@Summary		Rescan content roots and rebuild the link graph
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	ReindexResponse
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reindex(r.Context())
	if err != nil {
		writeError(w, "reindex", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Resolve handles POST /api/resolve.
//
//	@Summary		Rewrite uuid reference tokens into links
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	ResolveResponse
//	@Security		BearerAuth
//	@Router			/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Resolve(r.Context())
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
