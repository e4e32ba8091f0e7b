// Package canvas implements the authoritative in-memory canvas state engine:
// note shape normalization, the mutable state store, spatial overlap
// detection, and the merge resolver.
package canvas

import (
	"math"

	"github.com/arlide/mural/internal/models"
)

// Legal note shape bounds. Every mutation path clamps into these.
const (
	MinWidth  = 200.0
	MaxWidth  = 520.0
	MinHeight = 160.0
	MaxHeight = 460.0

	DefaultWidth  = 320.0
	DefaultHeight = 220.0

	// MaxTextLen is the maximum note text length in runes.
	MaxTextLen = 2000
)

// Normalize returns the canonical form of a possibly-partial note record.
// Width/height default to 320x220 when unset or non-finite, then clamp to
// the legal bounds. Z falls back to fallbackZ when the note carries no
// assignment (z <= 0). Text is truncated to MaxTextLen runes.
//
// Normalize is pure and total: it never fails, and it is idempotent.
func Normalize(n models.Note, fallbackZ int64) models.Note {
	n.Width = clamp(orDefault(n.Width, DefaultWidth), MinWidth, MaxWidth)
	n.Height = clamp(orDefault(n.Height, DefaultHeight), MinHeight, MaxHeight)
	if n.Z <= 0 {
		n.Z = fallbackZ
	}
	if !isFinite(n.Position.X) {
		n.Position.X = 0
	}
	if !isFinite(n.Position.Y) {
		n.Position.Y = 0
	}
	n.Text = truncateRunes(n.Text, MaxTextLen)
	return n
}

// Sanitize strips UI-transient state from a note before a durable write or
// export. The returned note carries only identity, position, shape, text,
// z-order, and style.
func Sanitize(n models.Note) models.Note {
	n.Dragging = false
	return n
}

// SanitizeAll returns sanitized copies of all notes.
func SanitizeAll(notes []models.Note) []models.Note {
	out := make([]models.Note, len(notes))
	for i, n := range notes {
		out[i] = Sanitize(n)
	}
	return out
}

func orDefault(v, def float64) float64 {
	if !isFinite(v) || v <= 0 {
		return def
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
