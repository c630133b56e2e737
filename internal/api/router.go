package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/intersect-sdl/sdl-doc-gen/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced. A non-nil
// events handler is served at GET /events.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Sites.
	r.Get("/sites", h.ListSites)
	r.Get("/sites/{site}/entries", h.ListEntries)
	r.Get("/sites/{site}/toc", h.SiteTOC)
	r.Get("/sites/{site}/pages", h.ListPages)
	r.Get("/sites/{site}/pages/*", h.GetPage)

	// Link graph.
	r.Get("/uuids", h.ListUUIDs)
	r.Get("/uuids/{uuid}", h.GetUUID)
	r.Get("/uuids/{uuid}/backlinks", h.Backlinks)
	r.Get("/orphans", h.Orphans)

	// Pipeline.
	r.Post("/compile", h.Compile)
	r.Post("/reindex", h.Reindex)
	r.Post("/resolve", h.Resolve)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
