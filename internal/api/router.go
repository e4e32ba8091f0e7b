package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arlide/mural/internal/canvasservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *canvasservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Canvas state.
	r.Get("/canvas", h.GetCanvas)

	// Notes.
	r.Post("/notes", h.CreateNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{id}/resize", h.ResizeNote)
	r.Post("/notes/{id}/front", h.BringToFront)
	r.Post("/notes/{id}/dragstop", h.DragStop)
	r.Post("/notes/{id}/children", h.CreateChild)

	// Edges.
	r.Post("/edges", h.CreateEdge)

	// Merge resolver.
	r.Post("/merge/confirm", h.ConfirmMerge)

	// Import/export.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
