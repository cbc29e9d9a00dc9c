// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the content tree and its index via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/reftree/internal/apperr"
	"github.com/starford/reftree/internal/doctree"
	"github.com/starford/reftree/internal/index"
	"github.com/starford/reftree/internal/schemas"
)

const (
	contractURI = "reftree://reference-format"
	listLimit   = 1000
)

// Server wraps the MCP server with content tree tools.
type Server struct {
	mcp      *server.MCPServer
	db       index.Index
	root     string
	treeOpts []doctree.Option
}

// New creates a new MCP server with all tools registered. Documents are
// read from the tree at root; listings come from db.
func New(db index.Index, root string, treeOpts ...doctree.Option) *Server {
	s := &Server{db: db, root: root, treeOpts: treeOpts}

	s.mcp = server.NewMCPServer(
		"reftree",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles and text content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Load a document from the content tree. Deep mode resolves every "+
			"$ref pointer; inline format replaces resolved pointers by their targets."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Tree path of the document (e.g. qchem/h2/dataset.json)")),
		mcp.WithString("mode", mcp.Description("shallow or deep (default deep)"), mcp.Enum("shallow", "deep")),
		mcp.WithString("format", mcp.Description("pointers or inline (default inline)"), mcp.Enum("pointers", "inline")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List indexed documents, optionally of one type (e.g. schemas.Family, text)."),
		mcp.WithString("type", mcp.Description("Optional document type")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all references that point at the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Tree path of the referenced document")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_assets",
		mcp.WithDescription("List image assets used in the content tree."),
		mcp.WithString("source", mcp.Description("Optional tree path of the document using the assets")),
	), s.listAssets)

	s.mcp.AddTool(mcp.NewTool("get_reference_contract",
		mcp.WithDescription("Returns how documents reference each other with $ref pointers. "+
			"Call this before authoring documents."),
	), s.getReferenceContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Reference Format Contract",
			mcp.WithResourceDescription("How $ref pointers and assets are written in content documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) searchDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type hit struct {
		Path    string `json:"path"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	}
	hits := make([]hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hit(r))
	}
	return jsonResult(hits)
}

func (s *Server) readDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := doctree.Deep
	if req.GetString("mode", "deep") == "shallow" {
		mode = doctree.Shallow
	}
	format := doctree.DumpInline
	if req.GetString("format", "inline") == "pointers" {
		format = doctree.DumpPointers
	}

	// Documents the index has not seen yet load untyped.
	var typ string
	row, err := s.db.GetDocument(path)
	switch {
	case err == nil:
		typ = row.Type
	case !errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(err.Error()), nil
	}

	tree, err := doctree.New(s.root, s.treeOpts...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := schemas.Load(tree, typ, path, mode)
	if err != nil {
		if errors.Is(err, doctree.ErrDocumentNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := doctree.DumpIndent(v, format, "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, _, err := s.db.ListDocuments(req.GetString("type", ""), listLimit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(rows))
	for _, d := range rows {
		lines = append(lines, d.Path+"\t"+d.Type)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getBacklinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, 0, len(bl))
	for _, r := range bl {
		lines = append(lines, r.Source+"#"+r.Field)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listAssets(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.db.Assets(req.GetString("source", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	type asset struct {
		Source   string `json:"source"`
		Location string `json:"location"`
		Local    bool   `json:"local"`
		Target   string `json:"target,omitempty"`
	}
	assets := make([]asset, 0, len(rows))
	for _, a := range rows {
		assets = append(assets, asset(a))
	}
	return jsonResult(assets)
}

func (s *Server) getReferenceContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ReferenceFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     ReferenceFormatContract,
		},
	}, nil
}
