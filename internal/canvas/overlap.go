package canvas

import (
	"math"

	"github.com/arlide/mural/internal/models"
)

// DefaultMergeThreshold is the minimum overlap ratio at which a drag-stop
// proposes a merge.
const DefaultMergeThreshold = 0.35

// OverlapRatio computes the bounding-box overlap between two notes as
// intersectionArea / min(areaA, areaB), in [0, 1]. Normalizing by the
// smaller note's area (rather than the union) makes a small note mostly
// covered by a larger one score high even when the larger one is only
// partly covered.
func OverlapRatio(a, b models.Note) float64 {
	w := math.Min(a.Position.X+a.Width, b.Position.X+b.Width) - math.Max(a.Position.X, b.Position.X)
	h := math.Min(a.Position.Y+a.Height, b.Position.Y+b.Height) - math.Max(a.Position.Y, b.Position.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	minArea := math.Min(a.Width*a.Height, b.Width*b.Height)
	if minArea <= 0 {
		return 0
	}
	return (w * h) / minArea
}

// DragStop runs overlap detection for the note whose drag just ended. The
// best-overlapping other note at or above the threshold becomes the merge
// candidate paired with the dragged note; ties keep the earliest note in
// collection order. With no qualifying overlap, a candidate that referenced
// the dragged note is cleared.
//
// DragStop is safe to call even when no drag was ever started (aborted
// gestures): an unknown id only clears a stale candidate that names it.
func (s *Store) DragStop(id string) *models.MergeCandidate {
	s.mu.Lock()
	i := s.findLocked(id)
	if i < 0 {
		referenced := s.candidate.References(id)
		if referenced {
			s.candidate = nil
		}
		s.mu.Unlock()
		if referenced {
			s.notify(Event{Kind: EventMergeCleared})
		}
		return nil
	}

	s.notes[i].Dragging = false
	dragged := s.notes[i]

	bestID := ""
	bestRatio := 0.0
	for j := range s.notes {
		if j == i {
			continue
		}
		r := OverlapRatio(dragged, s.notes[j])
		if r >= s.mergeThreshold && r > bestRatio {
			bestRatio = r
			bestID = s.notes[j].ID
		}
	}
	s.mu.Unlock()

	if bestID == "" {
		if s.Candidate().References(id) {
			return s.SetMergeCandidate(nil, "")
		}
		s.notify(Event{Kind: EventNoteUpdated, ID: id})
		return nil
	}
	cand := s.SetMergeCandidate([]string{id, bestID}, id)
	s.notify(Event{Kind: EventNoteUpdated, ID: id})
	return cand
}
