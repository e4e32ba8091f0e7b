package canvas

import (
	"strings"

	"github.com/google/uuid"

	"github.com/arlide/mural/internal/models"
)

// Padding added to the larger of the two source dimensions so merged text
// has room, before the final clamp into legal bounds.
const (
	mergeWidthPad  = 32.0
	mergeHeightPad = 64.0
)

// textSeparator joins the surviving texts of merged notes.
const textSeparator = "\n\n---\n\n"

// ConfirmMerge fuses the two candidate notes into one. It is only ever
// driven by explicit confirmation on one of the two candidate notes,
// identified by confirmID. If either candidate note no longer exists the
// candidate is cleared and nothing else happens; this is a defensive no-op,
// not an error.
func (s *Store) ConfirmMerge(confirmID string) (models.Note, bool) {
	s.mu.Lock()
	cand := s.candidate
	if cand == nil || len(cand.IDs) < 2 || !cand.References(confirmID) {
		s.mu.Unlock()
		return models.Note{}, false
	}

	ai := s.findLocked(cand.IDs[0])
	bi := s.findLocked(cand.IDs[1])
	if ai < 0 || bi < 0 {
		s.candidate = nil
		s.mu.Unlock()
		s.notify(Event{Kind: EventMergeCleared})
		return models.Note{}, false
	}
	a, b := s.notes[ai], s.notes[bi]

	merged := Normalize(models.Note{
		ID: uuid.NewString(),
		Position: models.Point{
			X: (a.Position.X + b.Position.X) / 2,
			Y: (a.Position.Y + b.Position.Y) / 2,
		},
		Width:  maxf(a.Width, b.Width) + mergeWidthPad,
		Height: maxf(a.Height, b.Height) + mergeHeightPad,
		Text:   joinTexts(a.Text, b.Text),
		Z:      s.bumpZ(),
	}, 0)

	s.edges = rewriteEdges(s.edges, a.ID, b.ID, merged.ID)

	kept := s.notes[:0]
	for _, n := range s.notes {
		if n.ID == a.ID || n.ID == b.ID {
			continue
		}
		kept = append(kept, n)
	}
	s.notes = append(kept, merged)
	s.candidate = nil
	s.mu.Unlock()

	s.notify(Event{Kind: EventMergeCompleted, ID: merged.ID})
	return merged, true
}

// joinTexts trims both texts, drops empty ones, and joins the survivors
// with a visible separator, in a-then-b order.
func joinTexts(a, b string) string {
	parts := make([]string, 0, 2)
	for _, t := range []string{a, b} {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, textSeparator)
}

// rewriteEdges redirects every endpoint equal to oldA or oldB onto newID.
// Edges that become self-loops are dropped. Rewritten edges are
// deduplicated by resulting (source, target) pair, first occurrence wins;
// untouched edges pass through unchanged and are never deduplicated against
// each other.
func rewriteEdges(edges []models.Edge, oldA, oldB, newID string) []models.Edge {
	out := edges[:0]
	seen := make(map[[2]string]struct{})
	for _, e := range edges {
		rewritten := false
		if e.Source == oldA || e.Source == oldB {
			e.Source = newID
			rewritten = true
		}
		if e.Target == oldA || e.Target == oldB {
			e.Target = newID
			rewritten = true
		}
		if !rewritten {
			out = append(out, e)
			continue
		}
		if e.Source == e.Target {
			continue
		}
		key := [2]string{e.Source, e.Target}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
