package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/docservice"
	"github.com/starford/quire/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	docs     *docservice.Service
	sessions *session.Manager
}

// NewHandler creates a new Handler.
func NewHandler(docs *docservice.Service, sessions *session.Manager) *Handler {
	return &Handler{docs: docs, sessions: sessions}
}

// documentPath extracts the document path from the URL (everything after
// /api/documents/). Encoded slashes are accepted.
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListDocuments handles GET /api/documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.docs.List(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		writeError(w, err, "list documents failed")
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.docs.Get(r.Context(), path)
	if err != nil {
		writeError(w, err, "get document failed", slog.String("path", path))
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := h.docs.Create(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, err, "create document failed", slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/documents/*. An If-Match header must carry
// the checksum of the stored text.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateDocumentRequest
	if !decode(w, r, &req) {
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	doc, err := h.docs.Update(r.Context(), path, []byte(*req.Content), ifMatch)
	if err != nil {
		writeError(w, err, "update document failed", slog.String("path", path))
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/*.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.docs.Delete(r.Context(), path); err != nil {
		writeError(w, err, "delete document failed", slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.docs.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search failed", slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(hits))
}
