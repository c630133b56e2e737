// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes docgen tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/intersect-sdl/sdl-doc-gen/internal/apperr"
	"github.com/intersect-sdl/sdl-doc-gen/internal/docservice"
	"github.com/intersect-sdl/sdl-doc-gen/internal/models"
)

// Server wraps the MCP server with docgen tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all docgen tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"docgen",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("lookup_uuid",
		mcp.WithDescription("Find the file that declares a UUID, with its kind and title."),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("UUID to look up")),
	), s.lookupUUID)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("List every file that references a UUID with a [[uuid:...]] token."),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("Referenced UUID")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the pages of a site (slug and UUID), or every indexed UUID when no site is given."),
		mcp.WithString("site", mcp.Description("Content root, e.g. docs")),
		mcp.WithString("type", mcp.Description("Filter indexed UUIDs by kind: markdown, typescript or python")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Compile a page by site and slug and return its HTML and metadata."),
		mcp.WithString("site", mcp.Required(), mcp.Description("Content root, e.g. docs")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Page slug, e.g. /getting-started")),
	), s.getPage)

	s.mcp.AddTool(mcp.NewTool("compile_markdown",
		mcp.WithDescription("Compile markdown to HTML. Supports frontmatter, directives and wiki references; "+
			"read the docgen://syntax resource for the syntax."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown source")),
		mcp.WithString("filename", mcp.Description("File name used to resolve relative diagram sources")),
	), s.compileMarkdown)

	s.mcp.AddTool(mcp.NewTool("new_uuid",
		mcp.WithDescription("Generate a fresh UUID to declare in frontmatter or a doc comment."),
	), s.newUUID)

	s.mcp.AddTool(mcp.NewTool("reindex",
		mcp.WithDescription("Rescan the content roots and rebuild the UUID and backlink graph."),
	), s.reindex)

	// Resource: syntax guide.
	s.mcp.AddResource(
		mcp.NewResource(SyntaxGuideURI, "Markdown Syntax",
			mcp.WithResourceDescription("Directive, wiki reference and UUID token syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrInvalidUUID):
		return mcp.NewToolResultError("invalid uuid")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func (s *Server) lookupUUID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("uuid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := s.svc.Lookup(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entry)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("uuid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if bl.Count == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return jsonResult(bl)
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if site, err := req.RequireString("site"); err == nil && site != "" {
		entries, err := s.svc.Entries(ctx, site)
		if err != nil {
			return toolError(err), nil
		}
		return jsonResult(entries)
	}
	kind := ""
	if k, err := req.RequireString("type"); err == nil {
		kind = k
	}
	entries, err := s.svc.UUIDs(ctx, models.Kind(kind))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(entries)
}

func (s *Server) getPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	site, err := req.RequireString("site")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Page(ctx, site, slug)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(page)
}

func (s *Server) compileMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := ""
	if f, err := req.RequireString("filename"); err == nil {
		filename = f
	}
	res, err := s.svc.Compile(ctx, []byte(content), filename)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) newUUID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(docservice.NewUUID()), nil
}

func (s *Server) reindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Reindex(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("indexed %d files: %d uuids, %d references, %d orphans",
		res.Files, res.UUIDs, res.Refs, len(res.Orphans))), nil
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SyntaxGuideURI,
			MIMEType: "text/markdown",
			Text:     SyntaxGuide,
		},
	}, nil
}
