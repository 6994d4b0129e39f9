package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/session"
)

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "get session failed")
		return nil, false
	}
	return s, true
}

// OpenSession handles POST /api/sessions.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.sessions.Open(r.Context(), req.Path)
	if err != nil {
		writeError(w, err, "open session failed", slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, s.State())
}

// GetSession handles GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

// Input handles POST /api/sessions/{id}/input.
func (h *Handler) Input(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req InputRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.Input(req.event(), req.selection())
	if err != nil {
		writeError(w, err, "session input failed", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// MoveCaret handles POST /api/sessions/{id}/caret.
func (h *Handler) MoveCaret(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req CaretRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.MoveCaret(req.Caret)
	if err != nil {
		writeError(w, err, "move caret failed", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Undo handles POST /api/sessions/{id}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	u, err := s.Undo()
	if err != nil {
		writeError(w, err, "undo failed", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Redo handles POST /api/sessions/{id}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	u, err := s.Redo()
	if err != nil {
		writeError(w, err, "redo failed", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// SaveSession handles POST /api/sessions/{id}/save.
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	sum, err := s.Save(r.Context())
	if err != nil {
		writeError(w, err, "save session failed", slog.String("session", s.ID()))
		return
	}
	writeJSON(w, http.StatusOK, SaveResponse{Path: s.Path(), Checksum: sum})
}

// Diff handles GET /api/sessions/{id}/diff.
func (h *Handler) Diff(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	d := s.Diff()
	writeJSON(w, http.StatusOK, DiffResponse{Diff: d, Dirty: d != ""})
}

// Preview handles GET /api/sessions/{id}/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	html, err := s.Preview()
	if err != nil {
		writeError(w, err, "preview failed", slog.String("session", s.ID()))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// CloseSession handles DELETE /api/sessions/{id}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, err, "close session failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
