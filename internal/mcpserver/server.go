// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Mural canvas tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/canvasservice"
	"github.com/arlide/mural/internal/models"
)

// Server wraps the MCP server with Mural canvas tools.
type Server struct {
	mcp *server.MCPServer
	svc *canvasservice.Service
}

// New creates a new MCP server with all Mural tools registered.
func New(svc *canvasservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Mural",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_canvas",
		mcp.WithDescription("Return the full canvas state: all notes, edges and the pending merge candidate."),
	), s.getCanvas)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note on the canvas at the given position."),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Canvas x coordinate")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Canvas y coordinate")),
		mcp.WithString("text", mcp.Description("Initial note text (max 2000 characters, truncated beyond)")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("set_note_text",
		mcp.WithDescription("Replace the text of an existing note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("New note text")),
	), s.setNoteText)

	s.mcp.AddTool(mcp.NewTool("connect_notes",
		mcp.WithDescription("Create a directed edge between two existing notes."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source note ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target note ID")),
	), s.connectNotes)

	s.mcp.AddTool(mcp.NewTool("export_canvas",
		mcp.WithDescription("Export the canvas as a portable JSON file. "+
			"The format is described by the mural://export-format resource."),
	), s.exportCanvas)

	// Resource: export file format contract.
	s.mcp.AddResource(
		mcp.NewResource("mural://export-format", "Canvas Export Format",
			mcp.WithResourceDescription("Portable JSON canvas format produced by export_canvas."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readExportFormatResource,
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

func (s *Server) getCanvas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := s.svc.State(ctx)
	out, _ := json.MarshalIndent(state, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x, err := req.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	y, err := req.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := req.GetString("text", "")

	note := s.svc.CreateNote(ctx, models.Point{X: x, Y: y}, canvas.CreateOptions{Text: text})
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setNoteText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	note, err := s.svc.UpdateNote(ctx, id, canvas.Patch{Text: &text})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) connectNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	edge, err := s.svc.Connect(ctx, source, target, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown endpoint: %s -> %s", source, target)), nil
	}
	out, _ := json.MarshalIndent(edge, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportCanvas(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, _, err := s.svc.Export(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readExportFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "mural://export-format",
			MIMEType: "text/markdown",
			Text:     ExportFormatContract,
		},
	}, nil
}
