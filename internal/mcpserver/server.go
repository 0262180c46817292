// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes scriptor tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/scriptor/internal/apperr"
	"github.com/starford/scriptor/internal/document"
	"github.com/starford/scriptor/internal/editor"
	"github.com/starford/scriptor/internal/models"
	"github.com/starford/scriptor/internal/notestore"
	"github.com/starford/scriptor/internal/parser"
)

const (
	contractURI = "scriptor://note-format"
	commandsURI = "scriptor://commands"
	searchLimit = 20
)

// Server wraps the MCP server with scriptor tools.
type Server struct {
	mcp      *server.MCPServer
	store    *notestore.Store
	sessions *editor.Manager
	logger   *slog.Logger
}

// New creates a new MCP server with all scriptor tools registered. Edits go
// through sessions of the given manager, so they are undoable units with the
// same validation as interactive edits.
func New(store *notestore.Store, sessions *editor.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, sessions: sessions, logger: logger}

	s.mcp = server.NewMCPServer(
		"Scriptor",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, tags and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recently updated first, optionally filtered."),
		mcp.WithString("tag", mcp.Description("Only notes with this tag")),
		mcp.WithString("category", mcp.Description("Only notes in this category")),
		mcp.WithString("folder", mcp.Description("Only notes in this folder")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note rendered as Markdown (default), HTML or the stored JSON document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("format", mcp.Description("markdown, html or json"), mcp.Enum("markdown", "html", "json")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note from Markdown with optional YAML frontmatter "+
			"(title, tags, category, subject, folder, starred, public). Read the contract first via "+
			"the get_note_contract tool or the "+contractURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note content")),
		mcp.WithString("format", mcp.Description("markdown (default), html or text"), mcp.Enum(parser.Formats...)),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the scriptor note format contract. "+
			"Call this before creating or formatting notes."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("format_note",
		mcp.WithDescription("Apply an editing command to the first occurrence of a text match in a note and save it."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("match", mcp.Required(), mcp.Description("Text to select; must lie within one block")),
		mcp.WithString("command", mcp.Required(), mcp.Description("Command name from the "+commandsURI+" resource")),
		mcp.WithString("arg", mcp.Description("Command argument (color, font, size, level, URL, ROWSxCOLS)")),
	), s.formatNote)

	s.mcp.AddTool(mcp.NewTool("insert_image",
		mcp.WithDescription("Embed an image from an http(s) URL or a data: URI into a note and save it. "+
			"The image goes after the given text, or at the end of the note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
		mcp.WithString("alt", mcp.Description("Alternative text")),
		mcp.WithString("after", mcp.Description("Insert after the first occurrence of this text")),
	), s.insertImage)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown accepted by create_note and produced by read_note."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(commandsURI, "Editing Commands",
			mcp.WithResourceDescription("Command names accepted by format_note."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCommandsResource,
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

// optString returns an optional string argument, or "" when absent.
func optString(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return v
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func toolError(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.store.Search(ctx, query, searchLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, total, err := s.store.List(ctx, models.ListFilter{
		Tag:      optString(req, "tag"),
		Category: optString(req, "category"),
		Folder:   optString(req, "folder"),
		Limit:    200,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"notes": notes, "total": total}), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.store.Get(ctx, id)
	if err != nil {
		return toolError(id, err), nil
	}
	switch optString(req, "format") {
	case "html":
		out, err := document.RenderHTML(note.Document.Content)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	case "json":
		return jsonResult(note.Document), nil
	default:
		return mcp.NewToolResultText(renderMarkdown(note)), nil
	}
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := parser.Import(optString(req, "format"), []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.store.Create(ctx, d)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Info("mcp: note created", slog.String("id", note.ID))
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", note.ID)), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

// renderMarkdown writes the note as Markdown with its metadata as frontmatter,
// the same shape create_note accepts.
func renderMarkdown(note *notestore.Detail) string {
	fm := "---\n"
	if note.Title != "" {
		fm += "title: " + quoteYAML(note.Title) + "\n"
	}
	if len(note.Tags) > 0 {
		fm += "tags:\n"
		for _, t := range note.Tags {
			fm += "  - " + quoteYAML(t) + "\n"
		}
	}
	fm += "category: " + quoteYAML(note.Category) + "\n"
	if note.Subject != "" {
		fm += "subject: " + quoteYAML(note.Subject) + "\n"
	}
	if note.FolderRef != "" {
		fm += "folder: " + quoteYAML(note.FolderRef) + "\n"
	}
	fm += fmt.Sprintf("starred: %t\npublic: %t\n---\n\n", note.Starred, note.Public)
	return fm + document.RenderMarkdown(note.Document.Content)
}

func quoteYAML(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(out)
}
