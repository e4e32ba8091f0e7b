// Package models defines the domain types for Mural.
package models

// Point is a position on the unbounded canvas plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Note is a positioned, sized, text-bearing canvas cell.
//
// Dragging is UI-transient state: it is carried on the live model so the
// rendering layer can round-trip it, but it is stripped before any durable
// write or export.
type Note struct {
	ID       string         `json:"id"`
	Position Point          `json:"position"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Text     string         `json:"text"`
	Z        int64          `json:"z"`
	Dragging bool           `json:"dragging,omitempty"`
	Style    map[string]any `json:"style,omitempty"`
}

// Edge is a directed link between two notes. Style is visual metadata and
// carries no engine semantics.
type Edge struct {
	ID     string         `json:"id"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Style  map[string]any `json:"style,omitempty"`
}

// MergeCandidate is an ephemeral proposal that two specific notes be fused.
// IDs always holds exactly two distinct live note ids; TriggeredBy names the
// note whose drag ended the proposal.
type MergeCandidate struct {
	IDs         []string `json:"ids"`
	TriggeredBy string   `json:"triggeredBy"`
}

// References reports whether the candidate names the given note id.
func (c *MergeCandidate) References(id string) bool {
	if c == nil {
		return false
	}
	for _, cid := range c.IDs {
		if cid == id {
			return true
		}
	}
	return false
}
