// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the note graph to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ehwaz/internal/noteservice"
)

// Server wraps the MCP server with the ehwaz tool set.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates an MCP server with all tools registered.
func New(svc *noteservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ehwaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the raw Markdown content of a note. The name is "+
			"resolved with the same rules as a [[wikilink]], so spacing, case, and "+
			"punctuation are forgiving."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name or canonical id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_note_with_links",
		mcp.WithDescription("Get a note together with the notes it links to and the "+
			"notes that link back to it, as JSON."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Note name or canonical id")),
	), s.getNoteWithLinks)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Create a new Markdown note at the given workspace path. "+
			"Use [[wikilinks]] in the body to connect notes; read the contract first via "+
			"the get_link_contract tool or the ehwaz://link-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content, optionally with YAML front matter")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all indexed notes as 'id<TAB>title' lines."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("resolve_name",
		mcp.WithDescription("Resolve a raw link name to its canonical note id without "+
			"touching the graph."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Raw link name as written between [[ and ]]")),
	), s.resolveName)

	s.mcp.AddTool(mcp.NewTool("get_link_contract",
		mcp.WithDescription("Returns the wiki-link format contract: link syntax and the "+
			"canonicalization rules that map names to note ids."),
	), s.getLinkContract)

	// Resource: link format contract.
	s.mcp.AddResource(
		mcp.NewResource("ehwaz://link-format", "Link Format Contract",
			mcp.WithResourceDescription("Wiki-link syntax and name canonicalization rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkFormatResource,
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

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id := s.svc.Resolve(name)
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s (id %s)", name, id)), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) getNoteWithLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id := s.svc.Resolve(name)
	note, err := s.svc.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s (id %s)", name, id)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.CreateNote(ctx, path, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", note.ID, note.Path)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lines []string
	for offset := 0; ; {
		items, total := s.svc.ListNotes(ctx, 500, offset)
		for _, it := range items {
			lines = append(lines, it.ID+"\t"+it.Title)
		}
		offset += len(items)
		if offset >= total || len(items) == 0 {
			break
		}
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) resolveName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.svc.Resolve(name)), nil
}

func (s *Server) getLinkContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LinkFormatContract), nil
}

func (s *Server) readLinkFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ehwaz://link-format",
			MIMEType: "text/markdown",
			Text:     LinkFormatContract,
		},
	}, nil
}
