package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/service"
)

// NoteHandler serves the /api/notes endpoints.
//
// The handler only translates HTTP to service calls: it decodes the body,
// reads URL and query parameters, and maps errors to status codes. Every
// rule about what a valid note is lives in service.NoteService.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// HandleList returns notes, optionally filtered by a search query.
//
// HTTP: GET /api/notes?q=milk&limit=20&offset=40
//
// The result is always a JSON array, "[]" when nothing matches.
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	notes, err := h.notes.List(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleGetByID returns a single note.
//
// HTTP: GET /api/notes/{id}
func (h *NoteHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleCreate saves a new note.
//
// HTTP: POST /api/notes
// REQUEST BODY: {"title": "Groceries", "content": "milk", "tags": "home", "event_date": "2024-05-01"}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.NotePatch
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid note JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/notes/{id}
//
// Absent fields are left alone. For tags, position, event_date and
// event_time an explicit null clears the stored value.
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.NotePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleDelete removes a note.
//
// HTTP: DELETE /api/notes/{id} → 204 No Content
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.notes.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
