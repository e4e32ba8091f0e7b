// Package canvasservice coordinates the canvas store, the persistence
// gateway, and the import/export codec for the API and MCP layers.
package canvasservice

import (
	"context"
	"time"

	"github.com/arlide/mural/internal/apperr"
	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/codec"
	"github.com/arlide/mural/internal/models"
)

// Flusher triggers an immediate durable write, bypassing the debounce.
type Flusher interface {
	Flush() error
}

// State is the full canvas view handed to collaborators. The rendering
// layer draws from it and must never mutate notes or edges directly.
type State struct {
	Nodes          []models.Note          `json:"nodes"`
	Edges          []models.Edge          `json:"edges"`
	MergeCandidate *models.MergeCandidate `json:"mergeCandidate"`
}

// Service exposes canvas operations to transport layers.
type Service struct {
	store   *canvas.Store
	flusher Flusher
}

// NewService creates a new canvas service. flusher may be nil when no
// durable layer is attached (tests).
func NewService(store *canvas.Store, flusher Flusher) *Service {
	return &Service{store: store, flusher: flusher}
}

// State returns the current canvas contents and merge candidate.
func (s *Service) State(_ context.Context) State {
	nodes, edges := s.store.Snapshot()
	if nodes == nil {
		nodes = []models.Note{}
	}
	if edges == nil {
		edges = []models.Edge{}
	}
	return State{Nodes: nodes, Edges: edges, MergeCandidate: s.store.Candidate()}
}

// CreateNote creates a new note at position.
func (s *Service) CreateNote(_ context.Context, position models.Point, opts canvas.CreateOptions) models.Note {
	return s.store.CreateNote(position, opts)
}

// CreateChild creates a note at position linked from parentID.
func (s *Service) CreateChild(_ context.Context, parentID string, position models.Point, text string) (models.Note, models.Edge, error) {
	n, e, ok := s.store.CreateChild(parentID, position, text)
	if !ok {
		return models.Note{}, models.Edge{}, apperr.ErrNotFound
	}
	return n, e, nil
}

// UpdateNote applies a partial patch to the note.
func (s *Service) UpdateNote(_ context.Context, id string, patch canvas.Patch) (models.Note, error) {
	n, ok := s.store.UpdateNote(id, patch)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

// Resize applies clamped dimensions to the note.
func (s *Service) Resize(_ context.Context, id string, width, height float64) (models.Note, error) {
	n, ok := s.store.Resize(id, width, height)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

// BringToFront gives the note the topmost z-order.
func (s *Service) BringToFront(_ context.Context, id string) (models.Note, error) {
	n, ok := s.store.BringToFront(id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

// DeleteNote removes the note and its incident edges.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	if !s.store.DeleteNote(id) {
		return apperr.ErrNotFound
	}
	return nil
}

// Connect creates a directed edge between two existing notes.
func (s *Service) Connect(_ context.Context, source, target string, style map[string]any) (models.Edge, error) {
	e, ok := s.store.Connect(source, target, style)
	if !ok {
		return models.Edge{}, apperr.ErrNotFound
	}
	return e, nil
}

// DragStop runs overlap detection for the note whose drag ended and
// returns the resulting merge candidate, if any.
func (s *Service) DragStop(_ context.Context, id string) *models.MergeCandidate {
	return s.store.DragStop(id)
}

// ConfirmMerge fuses the current candidate pair. The boolean reports
// whether a merge happened; a stale or absent candidate is a quiet no-op.
func (s *Service) ConfirmMerge(_ context.Context, id string) (models.Note, bool) {
	return s.store.ConfirmMerge(id)
}

// Export serializes the current canvas to the portable file format.
func (s *Service) Export(_ context.Context) ([]byte, string, error) {
	nodes, edges := s.store.Snapshot()
	out, err := codec.Export(nodes, edges, time.Now())
	if err != nil {
		return nil, "", err
	}
	return out, codec.ExportFileName, nil
}

// Import replaces the canvas with the parsed file contents and makes the
// result durable immediately, bypassing the debounce. A parse or shape
// failure returns apperr.ErrInvalidSnapshot and leaves both the live state
// and durable storage untouched.
func (s *Service) Import(_ context.Context, data []byte) (int, int, error) {
	f, err := codec.Import(data)
	if err != nil {
		return 0, 0, err
	}
	s.store.ReplaceAll(f.Nodes, f.Edges)
	if s.flusher != nil {
		// Write failures are logged by the gateway and never surfaced:
		// the in-memory import already succeeded.
		_ = s.flusher.Flush()
	}
	return len(f.Nodes), len(f.Edges), nil
}
