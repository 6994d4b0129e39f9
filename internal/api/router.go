package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/docservice"
	"github.com/starford/quire/internal/session"
)

// NewRouter creates a chi router with all API routes mounted. authEnabled
// controls whether Bearer token auth is enforced. sseHandler, if non-nil, is
// mounted at GET /events behind the same auth.
func NewRouter(docs *docservice.Service, sessions *session.Manager, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(docs, sessions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	r.Get("/search", h.Search)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/input", h.Input)
			r.Post("/caret", h.MoveCaret)
			r.Post("/undo", h.Undo)
			r.Post("/redo", h.Redo)
			r.Post("/save", h.SaveSession)
			r.Get("/diff", h.Diff)
			r.Get("/preview", h.Preview)
		})
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
