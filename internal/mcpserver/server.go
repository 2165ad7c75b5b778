// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Eihwaz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/eihwaz/internal/hierarchy"
)

// Server wraps the MCP server with Eihwaz tools.
type Server struct {
	mcp *server.MCPServer
	svc *hierarchy.Service
}

// New creates a new MCP server with all Eihwaz tools registered.
func New(svc *hierarchy.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Eihwaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Get the full document hierarchy as an indented outline. "+
			"Each line shows the level path, display title and filename."),
	), s.getTree)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a document by its filename."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document filename (e.g. 1.2. Motivation.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_subnote",
		mcp.WithDescription("Create a new document under a parent. The filename is derived "+
			"automatically from the parent's level path and the next free sibling number; "+
			"see the eihwaz://naming-convention resource for the format."),
		mcp.WithString("parent", mcp.Description("Parent document filename (empty for a new top-level group)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title for the new document")),
	), s.createSubnote)

	s.mcp.AddTool(mcp.NewTool("move_document",
		mcp.WithDescription("Move a document and its whole subtree to a new position. "+
			"mode=child appends under the target; mode=before/after insert next to it. "+
			"Affected siblings are renumbered automatically."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Filename of the document to move")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Filename of the target document")),
		mcp.WithString("mode", mcp.Required(), mcp.Description("One of: child, before, after")),
	), s.moveDocument)

	s.mcp.AddTool(mcp.NewTool("delete_subtree",
		mcp.WithDescription("Delete a document and every descendant under it."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Filename of the subtree anchor")),
	), s.deleteSubtree)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	// Resource: filename convention.
	s.mcp.AddResource(
		mcp.NewResource("eihwaz://naming-convention", "Filename Convention",
			mcp.WithResourceDescription("How level paths are encoded in document filenames."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNamingConventionResource,
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

func (s *Server) getTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	forest, err := s.svc.Tree(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	var walk func(n *hierarchy.Node, depth int)
	walk = func(n *hierarchy.Node, depth int) {
		fmt.Fprintf(&sb, "%s%s %s (%s)\n", strings.Repeat("  ", depth), n.Doc.Path.String(), n.Doc.Title, n.Doc.Name)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	for _, r := range forest.Roots {
		walk(r, 0)
	}
	if len(forest.Orphans) > 0 {
		sb.WriteString("\nOrphans (incomplete ancestor chain):\n")
		for _, o := range forest.Orphans {
			fmt.Fprintf(&sb, "  %s\n", o.Name)
		}
	}
	if sb.Len() == 0 {
		return mcp.NewToolResultText("the vault is empty"), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Get(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) createSubnote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parent := ""
	if p, pErr := req.RequireString("parent"); pErr == nil {
		parent = p
	}

	doc, err := s.svc.Create(ctx, parent, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", doc.Name)), nil
}

func (s *Server) moveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := req.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !hierarchy.Mode(mode).Valid() {
		return mcp.NewToolResultError("mode must be child, before or after"), nil
	}

	plan, err := s.svc.Move(ctx, source, target, hierarchy.Mode(mode))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if plan.Empty() {
		return mcp.NewToolResultText("already in place, nothing to do"), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "moved with %d rename(s):\n", len(plan.Steps))
	for _, step := range plan.Steps {
		fmt.Fprintf(&sb, "  %s -> %s\n", step.OldName, step.NewName)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) deleteSubtree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Delete(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted %d document(s)", n)), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNamingConventionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "eihwaz://naming-convention",
			MIMEType: "text/markdown",
			Text:     NamingConvention,
		},
	}, nil
}
