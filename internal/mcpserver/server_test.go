package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/canvasservice"
	"github.com/arlide/mural/internal/models"
)

func testServer(t *testing.T) (*Server, *canvas.Store) {
	t.Helper()

	store := canvas.NewStore()
	svc := canvasservice.NewService(store, nil)
	return New(svc), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_canvas":
		result, err = srv.getCanvas(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "set_note_text":
		result, err = srv.setNoteText(ctx, req)
	case "connect_notes":
		result, err = srv.connectNotes(ctx, req)
	case "export_canvas":
		result, err = srv.exportCanvas(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateNoteAndGetCanvas(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"x":    float64(40),
		"y":    float64(60),
		"text": "from mcp",
	})
	var note models.Note
	if err := json.Unmarshal([]byte(resultText(r)), &note); err != nil {
		t.Fatalf("create result not a note: %v", err)
	}
	if note.Text != "from mcp" || note.Position.X != 40 {
		t.Errorf("note = %+v", note)
	}
	if note.Width != canvas.DefaultWidth {
		t.Errorf("width = %g, want default", note.Width)
	}

	r = callTool(t, srv, "get_canvas", map[string]interface{}{})
	if !strings.Contains(resultText(r), note.ID) {
		t.Errorf("canvas missing created note: %s", resultText(r))
	}
}

func TestSetNoteText(t *testing.T) {
	srv, store := testServer(t)
	n := store.CreateNote(models.Point{}, canvas.CreateOptions{Text: "old"})

	r := callTool(t, srv, "set_note_text", map[string]interface{}{
		"id":   n.ID,
		"text": "new",
	})
	if r.IsError {
		t.Fatalf("set_note_text failed: %s", resultText(r))
	}
	got, _ := store.Note(n.ID)
	if got.Text != "new" {
		t.Errorf("text = %q", got.Text)
	}
}

func TestSetNoteTextMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "set_note_text", map[string]interface{}{"id": "nope", "text": "x"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestConnectNotes(t *testing.T) {
	srv, store := testServer(t)
	a := store.CreateNote(models.Point{}, canvas.CreateOptions{})
	b := store.CreateNote(models.Point{}, canvas.CreateOptions{})

	r := callTool(t, srv, "connect_notes", map[string]interface{}{
		"source": a.ID,
		"target": b.ID,
	})
	var edge models.Edge
	if err := json.Unmarshal([]byte(resultText(r)), &edge); err != nil {
		t.Fatalf("connect result not an edge: %v", err)
	}
	if edge.Source != a.ID || edge.Target != b.ID {
		t.Errorf("edge = %+v", edge)
	}

	r = callTool(t, srv, "connect_notes", map[string]interface{}{
		"source": a.ID,
		"target": "nope",
	})
	if !r.IsError {
		t.Error("expected error for unknown endpoint")
	}
}

func TestExportCanvas(t *testing.T) {
	srv, store := testServer(t)
	store.CreateNote(models.Point{X: 1, Y: 2}, canvas.CreateOptions{Text: "exported"})

	r := callTool(t, srv, "export_canvas", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"version": "1.0.0"`) {
		t.Errorf("export missing version: %s", text)
	}
	if !strings.Contains(text, "exported") {
		t.Errorf("export missing note text: %s", text)
	}
}
