package canvas

import (
	"sync"

	"github.com/google/uuid"

	"github.com/arlide/mural/internal/models"
)

// Event kinds emitted by the store to its subscribers.
const (
	EventNoteCreated    = "note.created"
	EventNoteUpdated    = "note.updated"
	EventNoteDeleted    = "note.deleted"
	EventEdgeCreated    = "edge.created"
	EventMergeProposed  = "merge.proposed"
	EventMergeCleared   = "merge.cleared"
	EventMergeCompleted = "merge.completed"
	EventCanvasReplaced = "canvas.replaced"
)

// Event describes a single store mutation. ID names the affected note or
// edge where one exists.
type Event struct {
	Kind string
	ID   string
}

// Store is the single authoritative container for canvas state: notes,
// edges, the monotonic z-order counter, and the ephemeral merge candidate.
//
// All operations execute synchronously to completion; a mutex serializes
// mutators since the store sits behind an HTTP boundary. Consumers observe
// mutations through Subscribe rather than polling.
type Store struct {
	mu        sync.Mutex
	notes     []models.Note
	edges     []models.Edge
	nextZ     int64
	candidate *models.MergeCandidate

	mergeThreshold float64

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// NewStore creates an empty store with the default merge threshold.
func NewStore() *Store {
	return &Store{
		nextZ:          1,
		mergeThreshold: DefaultMergeThreshold,
		subs:           make(map[int]func(Event)),
	}
}

// SetMergeThreshold overrides the minimum overlap ratio that proposes a
// merge. Values outside (0,1] are ignored.
func (s *Store) SetMergeThreshold(t float64) {
	if t <= 0 || t > 1 {
		return
	}
	s.mu.Lock()
	s.mergeThreshold = t
	s.mu.Unlock()
}

// Subscribe registers a callback invoked synchronously after every mutation.
// The returned function removes the subscription and is safe to call more
// than once.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify delivers events to subscribers. Must be called without holding mu
// so that subscribers may read the store.
func (s *Store) notify(events ...Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// bumpZ returns the next z-order value. Caller must hold mu.
func (s *Store) bumpZ() int64 {
	z := s.nextZ
	s.nextZ++
	return z
}

func (s *Store) findLocked(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateOptions carries optional initial fields for a new note.
type CreateOptions struct {
	Text   string
	Width  float64
	Height float64
	Style  map[string]any
}

// CreateNote appends a new normalized note at position and returns it. The
// note receives the next z-order value so it paints on top.
func (s *Store) CreateNote(position models.Point, opts CreateOptions) models.Note {
	s.mu.Lock()
	n := Normalize(models.Note{
		ID:       uuid.NewString(),
		Position: position,
		Width:    opts.Width,
		Height:   opts.Height,
		Text:     opts.Text,
		Z:        s.bumpZ(),
		Style:    opts.Style,
	}, 0)
	s.notes = append(s.notes, n)
	s.mu.Unlock()

	s.notify(Event{Kind: EventNoteCreated, ID: n.ID})
	return n
}

// CreateChild creates a new note at position and an edge from parentID to
// it. Returns false without mutating when the parent is unknown.
func (s *Store) CreateChild(parentID string, position models.Point, text string) (models.Note, models.Edge, bool) {
	s.mu.Lock()
	if s.findLocked(parentID) < 0 {
		s.mu.Unlock()
		return models.Note{}, models.Edge{}, false
	}
	n := Normalize(models.Note{
		ID:       uuid.NewString(),
		Position: position,
		Text:     text,
		Z:        s.bumpZ(),
	}, 0)
	e := models.Edge{ID: uuid.NewString(), Source: parentID, Target: n.ID}
	s.notes = append(s.notes, n)
	s.edges = append(s.edges, e)
	s.mu.Unlock()

	s.notify(
		Event{Kind: EventNoteCreated, ID: n.ID},
		Event{Kind: EventEdgeCreated, ID: e.ID},
	)
	return n, e, true
}

// Patch carries partial note updates; nil fields are left unchanged.
type Patch struct {
	Position *models.Point
	Width    *float64
	Height   *float64
	Text     *string
	Dragging *bool
	Style    map[string]any
}

// UpdateNote merges patch into the note and re-normalizes it. Unknown ids
// are a no-op.
func (s *Store) UpdateNote(id string, patch Patch) (models.Note, bool) {
	s.mu.Lock()
	i := s.findLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Note{}, false
	}
	n := s.notes[i]
	if patch.Position != nil {
		n.Position = *patch.Position
	}
	if patch.Width != nil {
		n.Width = *patch.Width
	}
	if patch.Height != nil {
		n.Height = *patch.Height
	}
	if patch.Text != nil {
		n.Text = *patch.Text
	}
	if patch.Dragging != nil {
		n.Dragging = *patch.Dragging
	}
	if patch.Style != nil {
		n.Style = patch.Style
	}
	n = Normalize(n, n.Z)
	s.notes[i] = n
	s.mu.Unlock()

	s.notify(Event{Kind: EventNoteUpdated, ID: id})
	return n, true
}

// Resize clamps the given dimensions into legal bounds and applies them.
// Unknown ids are a no-op.
func (s *Store) Resize(id string, width, height float64) (models.Note, bool) {
	return s.UpdateNote(id, Patch{Width: &width, Height: &height})
}

// BringToFront assigns a freshly incremented z-order value to the note so
// "last touched" is always topmost. Unknown ids are a no-op.
func (s *Store) BringToFront(id string) (models.Note, bool) {
	s.mu.Lock()
	i := s.findLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Note{}, false
	}
	s.notes[i].Z = s.bumpZ()
	n := s.notes[i]
	s.mu.Unlock()

	s.notify(Event{Kind: EventNoteUpdated, ID: id})
	return n, true
}

// Connect creates a directed edge between two existing notes. Returns false
// without mutating when either endpoint is unknown.
func (s *Store) Connect(source, target string, style map[string]any) (models.Edge, bool) {
	s.mu.Lock()
	if s.findLocked(source) < 0 || s.findLocked(target) < 0 {
		s.mu.Unlock()
		return models.Edge{}, false
	}
	e := models.Edge{ID: uuid.NewString(), Source: source, Target: target, Style: style}
	s.edges = append(s.edges, e)
	s.mu.Unlock()

	s.notify(Event{Kind: EventEdgeCreated, ID: e.ID})
	return e, true
}

// DeleteNote removes the note, every edge incident to it, and clears the
// merge candidate if it referenced the note. Unknown ids are a no-op.
func (s *Store) DeleteNote(id string) bool {
	s.mu.Lock()
	i := s.findLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source == id || e.Target == id {
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept

	events := []Event{{Kind: EventNoteDeleted, ID: id}}
	if s.candidate.References(id) {
		s.candidate = nil
		events = append(events, Event{Kind: EventMergeCleared})
	}
	s.mu.Unlock()

	s.notify(events...)
	return true
}

// ReplaceAll loads notes and edges wholesale, used by startup restore and
// import. Every note is normalized; a note without its own z-order falls
// back to its 1-indexed position in the input sequence. The z counter is
// recomputed as the maximum observed z-order (at least 1). The merge
// candidate is cleared.
func (s *Store) ReplaceAll(notes []models.Note, edges []models.Edge) {
	s.mu.Lock()
	loaded := make([]models.Note, len(notes))
	var maxZ int64 = 1
	for i, n := range notes {
		ln := Normalize(n, int64(i+1))
		if ln.ID == "" {
			ln.ID = uuid.NewString()
		}
		if ln.Z > maxZ {
			maxZ = ln.Z
		}
		loaded[i] = ln
	}
	s.notes = loaded
	s.edges = append([]models.Edge(nil), edges...)
	s.nextZ = maxZ + 1
	s.candidate = nil
	s.mu.Unlock()

	s.notify(Event{Kind: EventCanvasReplaced})
}

// SetMergeCandidate records a merge proposal. IDs are deduplicated and
// filtered to live notes; ending up with fewer than two ids clears the
// candidate, which is the defined way to clear it, not an error.
func (s *Store) SetMergeCandidate(ids []string, triggeredBy string) *models.MergeCandidate {
	s.mu.Lock()
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if s.findLocked(id) < 0 {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var ev Event
	if len(unique) < 2 {
		hadCandidate := s.candidate != nil
		s.candidate = nil
		s.mu.Unlock()
		if hadCandidate {
			s.notify(Event{Kind: EventMergeCleared})
		}
		return nil
	}
	s.candidate = &models.MergeCandidate{IDs: unique, TriggeredBy: triggeredBy}
	ev = Event{Kind: EventMergeProposed, ID: triggeredBy}
	out := cloneCandidate(s.candidate)
	s.mu.Unlock()

	s.notify(ev)
	return out
}

// Candidate returns a copy of the current merge candidate, or nil.
func (s *Store) Candidate() *models.MergeCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCandidate(s.candidate)
}

// Note returns the note with the given id.
func (s *Store) Note(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findLocked(id); i >= 0 {
		return s.notes[i], true
	}
	return models.Note{}, false
}

// Snapshot returns copies of the current note and edge collections.
func (s *Store) Snapshot() ([]models.Note, []models.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := append([]models.Note(nil), s.notes...)
	edges := append([]models.Edge(nil), s.edges...)
	return notes, edges
}

func cloneCandidate(c *models.MergeCandidate) *models.MergeCandidate {
	if c == nil {
		return nil
	}
	return &models.MergeCandidate{
		IDs:         append([]string(nil), c.IDs...),
		TriggeredBy: c.TriggeredBy,
	}
}
