// Package codec serializes canvas snapshots to the portable export file
// format and decodes them back, validating shape on import.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/arlide/mural/internal/apperr"
	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/models"
)

// Version is stamped into every export. It is not checked on import so
// older servers can read files from newer ones.
const Version = "1.0.0"

// ExportFileName is the fixed download name for exported canvases.
const ExportFileName = "canvas-export.json"

// File is the portable snapshot bundle.
type File struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exportedAt"`
	Nodes      []models.Note `json:"nodes"`
	Edges      []models.Edge `json:"edges"`
}

// Export bundles the given canvas contents, sanitizing every note, and
// serializes the bundle as indented JSON.
func Export(notes []models.Note, edges []models.Edge, now time.Time) ([]byte, error) {
	f := File{
		Version:    Version,
		ExportedAt: now.UTC(),
		Nodes:      canvas.SanitizeAll(notes),
		Edges:      edges,
	}
	if f.Nodes == nil {
		f.Nodes = []models.Note{}
	}
	if f.Edges == nil {
		f.Edges = []models.Edge{}
	}
	out, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("codec: export: %w", err)
	}
	return out, nil
}

// envelope defers nodes/edges decoding so their shape can be checked
// before any field contents are touched.
type envelope struct {
	Version string          `json:"version"`
	Nodes   json.RawMessage `json:"nodes"`
	Edges   json.RawMessage `json:"edges"`
}

// Validate requires both nodes and edges to be present JSON arrays. Field
// contents are deliberately not deep-validated; the store normalizes every
// note on bulk load.
func (e envelope) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Nodes, validation.Required.Error("nodes field is required"), validation.By(jsonArray)),
		validation.Field(&e.Edges, validation.Required.Error("edges field is required"), validation.By(jsonArray)),
	)
}

func jsonArray(value interface{}) error {
	raw, _ := value.(json.RawMessage)
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return fmt.Errorf("must be an array")
	}
	return nil
}

// Import parses data as an export bundle. Any parse or shape failure
// returns an error wrapping apperr.ErrInvalidSnapshot and nothing else
// happens; the caller's state stays untouched by contract.
func Import(data []byte) (*File, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("codec: %w: %v", apperr.ErrInvalidSnapshot, err)
	}
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("codec: %w: %v", apperr.ErrInvalidSnapshot, err)
	}

	f := File{Version: env.Version}
	if err := json.Unmarshal(env.Nodes, &f.Nodes); err != nil {
		return nil, fmt.Errorf("codec: %w: nodes: %v", apperr.ErrInvalidSnapshot, err)
	}
	if err := json.Unmarshal(env.Edges, &f.Edges); err != nil {
		return nil, fmt.Errorf("codec: %w: edges: %v", apperr.ErrInvalidSnapshot, err)
	}
	return &f, nil
}
