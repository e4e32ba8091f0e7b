package api

import (
	"github.com/arlide/mural/internal/canvasservice"
	"github.com/arlide/mural/internal/models"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Position models.Point   `json:"position" validate:"required"`
	Text     string         `json:"text"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Style    map[string]any `json:"style,omitempty"`
}

// UpdateNoteRequest is the request body for patching a note. Absent
// fields leave the current values in place.
type UpdateNoteRequest struct {
	Position *models.Point  `json:"position,omitempty"`
	Width    *float64       `json:"width,omitempty"`
	Height   *float64       `json:"height,omitempty"`
	Text     *string        `json:"text,omitempty"`
	Dragging *bool          `json:"dragging,omitempty"`
	Style    map[string]any `json:"style,omitempty"`
}

// ResizeRequest is the request body for resizing a note.
type ResizeRequest struct {
	Width  float64 `json:"width" validate:"required"`
	Height float64 `json:"height" validate:"required"`
}

// CreateChildRequest is the request body for spawning a linked child note.
type CreateChildRequest struct {
	Position models.Point `json:"position" validate:"required"`
	Text     string       `json:"text"`
}

// CreateEdgeRequest is the request body for connecting two notes.
type CreateEdgeRequest struct {
	Source string         `json:"source" validate:"required"`
	Target string         `json:"target" validate:"required"`
	Style  map[string]any `json:"style,omitempty"`
}

// ConfirmMergeRequest names the note whose merge button was clicked.
type ConfirmMergeRequest struct {
	ID string `json:"id" validate:"required"`
}

// CanvasResponse is the full canvas view (aliased from the domain layer).
type CanvasResponse = canvasservice.State

// ChildResponse pairs a freshly created child note with its incoming edge.
type ChildResponse struct {
	Note models.Note `json:"note" validate:"required"`
	Edge models.Edge `json:"edge" validate:"required"`
}

// DragStopResponse reports the merge candidate after a drag ends, if any.
type DragStopResponse struct {
	MergeCandidate *models.MergeCandidate `json:"mergeCandidate"`
}

// MergeResponse reports the outcome of a merge confirmation.
type MergeResponse struct {
	Merged bool         `json:"merged" validate:"required"`
	Note   *models.Note `json:"note,omitempty"`
}

// ImportResponse reports how much a successful import loaded.
type ImportResponse struct {
	Nodes int `json:"nodes" validate:"required"`
	Edges int `json:"edges" validate:"required"`
}
