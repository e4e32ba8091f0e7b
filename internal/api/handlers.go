package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arlide/mural/internal/apperr"
	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/canvasservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *canvasservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *canvasservice.Service) *Handler {
	return &Handler{svc: svc}
}

func noteID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// GetCanvas handles GET /api/canvas.
//
//	@Summary		Get the full canvas state
//	@Tags			canvas
//	@Produce		json
//	@Success		200	{object}	CanvasResponse
//	@Security		BearerAuth
//	@Router			/canvas [get]
func (h *Handler) GetCanvas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.State(r.Context()))
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note at a position
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note := h.svc.CreateNote(r.Context(), req.Position, canvas.CreateOptions{
		Text:   req.Text,
		Width:  req.Width,
		Height: req.Height,
		Style:  req.Style,
	})
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Apply a partial update to a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note ID"
//	@Param			body	body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), noteID(r), canvas.Patch{
		Position: req.Position,
		Width:    req.Width,
		Height:   req.Height,
		Text:     req.Text,
		Dragging: req.Dragging,
		Style:    req.Style,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("update note failed", slog.String("id", noteID(r)), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// ResizeNote handles POST /api/notes/{id}/resize.
//
//	@Summary		Resize a note (dimensions are clamped)
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note ID"
//	@Param			body	body		ResizeRequest	true	"New dimensions"
//	@Success		200		{object}	models.Note
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/resize [post]
func (h *Handler) ResizeNote(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.Resize(r.Context(), noteID(r), req.Width, req.Height)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// BringToFront handles POST /api/notes/{id}/front.
//
//	@Summary		Raise a note above all others
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/front [post]
func (h *Handler) BringToFront(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.BringToFront(r.Context(), noteID(r))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DragStop handles POST /api/notes/{id}/dragstop.
//
//	@Summary		End a drag and run overlap detection
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note ID"
//	@Success		200	{object}	DragStopResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/dragstop [post]
func (h *Handler) DragStop(w http.ResponseWriter, r *http.Request) {
	candidate := h.svc.DragStop(r.Context(), noteID(r))
	writeJSON(w, http.StatusOK, DragStopResponse{MergeCandidate: candidate})
}

// CreateChild handles POST /api/notes/{id}/children.
//
//	@Summary		Create a note linked from an existing one
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Parent note ID"
//	@Param			body	body		CreateChildRequest	true	"Child to create"
//	@Success		201		{object}	ChildResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/children [post]
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req CreateChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, edge, err := h.svc.CreateChild(r.Context(), noteID(r), req.Position, req.Text)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusCreated, ChildResponse{Note: note, Edge: edge})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note and its incident edges
//	@Tags			notes
//	@Param			id	path	string	true	"Note ID"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), noteID(r)); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateEdge handles POST /api/edges.
//
//	@Summary		Connect two notes with a directed edge
//	@Tags			edges
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateEdgeRequest	true	"Edge to create"
//	@Success		201		{object}	models.Edge
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/edges [post]
func (h *Handler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Source == "" || req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and target are required"))
		return
	}
	edge, err := h.svc.Connect(r.Context(), req.Source, req.Target, req.Style)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

// ConfirmMerge handles POST /api/merge/confirm.
//
//	@Summary		Fuse the current merge candidate pair
//	@Tags			merge
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConfirmMergeRequest	true	"Confirming note"
//	@Success		200		{object}	MergeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/merge/confirm [post]
func (h *Handler) ConfirmMerge(w http.ResponseWriter, r *http.Request) {
	var req ConfirmMergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	note, merged := h.svc.ConfirmMerge(r.Context(), req.ID)
	resp := MergeResponse{Merged: merged}
	if merged {
		resp.Note = &note
	}
	writeJSON(w, http.StatusOK, resp)
}

// Export handles GET /api/export.
//
//	@Summary		Download the canvas as a portable JSON file
//	@Tags			transfer
//	@Produce		json
//	@Success		200	{object}	codec.File
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.svc.Export(r.Context())
	if err != nil {
		slog.Error("export failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/import.
//
//	@Summary		Replace the canvas with an uploaded export file
//	@Tags			transfer
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	ImportResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	nodes, edges, err := h.svc.Import(r.Context(), body)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidSnapshot) {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid canvas file"))
		} else {
			slog.Error("import failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Nodes: nodes, Edges: edges})
}
